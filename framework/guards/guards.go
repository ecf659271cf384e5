// Package guards contains the built-in access-control guards.
//
//	ctrl := metadata.NewController[*AdminController]("/admin").
//	    UseGuards(guards.JWT(secret), guards.Roles()).
//	    SetMetadata(guards.RolesKey, []string{"admin"})
package guards

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/metadata"
	"github.com/km-arc/go-dispatch/framework/pipeline"
)

type key string

const (
	// RolesKey is the route/controller metadata key listing required roles.
	// It is also the JWT claim Roles reads the caller's roles from.
	RolesKey = "roles"

	principalKey key = "principal"
	userRolesKey key = "roles"
)

var hmacMethods = []string{"HS256", "HS384", "HS512"}

// ── Bearer token ─────────────────────────────────────────────────────────────

// Verifier checks a bearer token and returns the authenticated principal.
type Verifier func(ctx context.Context, token string) (any, error)

// BearerToken rejects requests without a valid "Authorization: Bearer"
// header with 401. The principal returned by verify is available through
// Principal.
func BearerToken(verify Verifier) pipeline.Guard {
	return pipeline.GuardFunc(func(ec *pipeline.ExecutionContext) (bool, error) {
		token := ec.Request().BearerToken()
		if token == "" {
			return false, exceptions.Unauthorized("Unauthenticated.")
		}
		principal, err := verify(ec.Context(), token)
		if err != nil {
			if _, ok := exceptions.AsStatusCoder(err); ok {
				return false, err
			}
			return false, exceptions.Unauthorized("Invalid token").WithCause(err)
		}
		ec.Set(principalKey, principal)
		return true, nil
	})
}

// Principal returns the value stored by BearerToken.
func Principal(ec *pipeline.ExecutionContext) (any, bool) {
	return ec.Get(principalKey)
}

// ── JWT ──────────────────────────────────────────────────────────────────────

// JWT verifies HMAC-signed bearer tokens with secret. The claims are
// available through Claims, and a "roles" claim feeds the Roles guard.
func JWT(secret []byte, opts ...jwt.ParserOption) pipeline.Guard {
	parser := jwt.NewParser(append([]jwt.ParserOption{jwt.WithValidMethods(hmacMethods)}, opts...)...)
	return BearerToken(func(_ context.Context, raw string) (any, error) {
		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}); err != nil {
			return nil, errors.Wrap(err, "parsing jwt")
		}
		return claims, nil
	})
}

// Claims returns the claims of a token verified by JWT.
func Claims(ec *pipeline.ExecutionContext) (jwt.MapClaims, bool) {
	v, ok := Principal(ec)
	if !ok {
		return nil, false
	}
	claims, ok := v.(jwt.MapClaims)
	return claims, ok
}

// CurrentUser is a custom parameter factory returning the verified
// principal, or the claim named by data when the principal is JWT claims.
//
//	ctrl.Get("/me", "Me").Bind(metadata.Custom(guards.CurrentUser, "sub"))
func CurrentUser(data any, ec *pipeline.ExecutionContext) (any, error) {
	principal, ok := Principal(ec)
	if !ok {
		return nil, exceptions.Unauthorized("Unauthenticated.")
	}
	name, _ := data.(string)
	if claims, ok := principal.(jwt.MapClaims); ok && name != "" {
		return claims[name], nil
	}
	return principal, nil
}

var _ metadata.CustomFactory = CurrentUser

// ── Roles ────────────────────────────────────────────────────────────────────

// WithRoles records the caller's roles for Roles, for authentication
// schemes other than JWT.
func WithRoles(ec *pipeline.ExecutionContext, roles ...string) {
	ec.Set(userRolesKey, roles)
}

// Roles allows the request when the caller has at least one of the roles
// declared under RolesKey on the route (or, failing that, the controller).
// Routes without declared roles are open.
func Roles() pipeline.Guard {
	return pipeline.GuardFunc(func(ec *pipeline.ExecutionContext) (bool, error) {
		required, ok := metadata.GetAllAndOverride[[]string](ec, RolesKey)
		if !ok || len(required) == 0 {
			return true, nil
		}
		return slices.ContainsFunc(callerRoles(ec), func(r string) bool {
			return slices.Contains(required, r)
		}), nil
	})
}

func callerRoles(ec *pipeline.ExecutionContext) []string {
	if v, ok := ec.Get(userRolesKey); ok {
		roles, _ := v.([]string)
		return roles
	}
	claims, ok := Claims(ec)
	if !ok {
		return nil
	}
	var roles []string
	switch v := claims[RolesKey].(type) {
	case []any:
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	case string:
		roles = append(roles, v)
	}
	return roles
}
