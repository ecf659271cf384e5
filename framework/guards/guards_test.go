package guards_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/guards"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

var secret = []byte("test-secret")

func newEC(auth string, handlerMeta map[string]any) *pipeline.ExecutionContext {
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if auth != "" {
		r.Header.Set("Authorization", auth)
	}
	return pipeline.NewExecutionContext(httptest.NewRecorder(), r).
		Bind(pipeline.Handle{Method: "Index", Route: "/admin", HandlerMeta: handlerMeta})
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// ── BearerToken ──────────────────────────────────────────────────────────────

func TestBearerToken(t *testing.T) {
	verify := func(_ context.Context, token string) (any, error) {
		if token != "good" {
			return nil, errors.New("unknown token")
		}
		return "alice", nil
	}
	g := guards.BearerToken(verify)

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing header", "", 401},
		{"wrong scheme", "Basic abc", 401},
		{"unknown token", "Bearer bad", 401},
		{"valid", "Bearer good", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := newEC(tt.auth, nil)
			err := pipeline.RunGuards(ec, []pipeline.Guard{g})
			if tt.status == 0 {
				if err != nil {
					t.Fatalf("unexpected %v", err)
				}
				if p, _ := guards.Principal(ec); p != "alice" {
					t.Errorf("principal: %v", p)
				}
				return
			}
			if exceptions.Status(err) != tt.status {
				t.Errorf("got %v, want status %d", err, tt.status)
			}
		})
	}
}

func TestBearerToken_VerifierStatusSurfaced(t *testing.T) {
	g := guards.BearerToken(func(context.Context, string) (any, error) {
		return nil, exceptions.New(http.StatusPaymentRequired, "Subscription expired")
	})
	err := pipeline.RunGuards(newEC("Bearer x", nil), []pipeline.Guard{g})
	if exceptions.Status(err) != http.StatusPaymentRequired {
		t.Errorf("got %v", err)
	}
}

// ── JWT ──────────────────────────────────────────────────────────────────────

func TestJWT(t *testing.T) {
	valid := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub": "42", "exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub": "42", "exp": time.Now().Add(-time.Hour).Unix(),
	})
	otherKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "42"})
	unsigned := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "42"})

	tests := map[string]struct {
		token string
		ok    bool
	}{
		"valid":     {valid, true},
		"expired":   {expired, false},
		"wrong key": {otherKey, false},
		"alg none":  {unsigned, false},
		"garbage":   {"not.a.jwt", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ec := newEC("Bearer "+tt.token, nil)
			err := pipeline.RunGuards(ec, []pipeline.Guard{guards.JWT(secret)})
			if !tt.ok {
				if exceptions.Status(err) != http.StatusUnauthorized {
					t.Errorf("got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected %v", err)
			}
			claims, ok := guards.Claims(ec)
			if !ok || claims["sub"] != "42" {
				t.Errorf("claims: %v", claims)
			}
			sub, err := guards.CurrentUser("sub", ec)
			if err != nil || sub != "42" {
				t.Errorf("CurrentUser: %v, %v", sub, err)
			}
		})
	}
}

func TestCurrentUser_Unauthenticated(t *testing.T) {
	_, err := guards.CurrentUser(nil, newEC("", nil))
	if exceptions.Status(err) != http.StatusUnauthorized {
		t.Errorf("got %v", err)
	}
}

// ── Roles ────────────────────────────────────────────────────────────────────

func TestRoles(t *testing.T) {
	admin := map[string]any{guards.RolesKey: []string{"admin"}}
	adminToken := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"roles": []string{"user", "admin"}})
	userToken := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"roles": []string{"user"}})

	tests := []struct {
		name string
		auth string
		meta map[string]any
		ok   bool
	}{
		{"open route", "Bearer " + userToken, nil, true},
		{"claim matches", "Bearer " + adminToken, admin, true},
		{"claim missing role", "Bearer " + userToken, admin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := newEC(tt.auth, tt.meta)
			err := pipeline.RunGuards(ec, []pipeline.Guard{guards.JWT(secret), guards.Roles()})
			if tt.ok && err != nil {
				t.Fatalf("unexpected %v", err)
			}
			if !tt.ok && exceptions.Status(err) != http.StatusForbidden {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestRoles_ExplicitRoles(t *testing.T) {
	ec := newEC("", map[string]any{guards.RolesKey: []string{"ops"}})
	guards.WithRoles(ec, "ops")
	if err := pipeline.RunGuards(ec, []pipeline.Guard{guards.Roles()}); err != nil {
		t.Errorf("unexpected %v", err)
	}
}
