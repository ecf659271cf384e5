package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-dispatch/framework/app"
	"github.com/km-arc/go-dispatch/framework/config"
	"github.com/km-arc/go-dispatch/framework/module"
)

var secret = []byte("cats-secret")

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Name: "cats", Prefix: "api"}}
	a, err := app.New(&module.Module{Name: "app", Imports: []*module.Module{CatsModule(secret)}},
		app.WithConfig(cfg), app.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return a.Handler()
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + s
}

func TestCatsAPI(t *testing.T) {
	h := newHandler(t)
	user := token(t, jwt.MapClaims{"sub": "u1", "roles": []string{"user"}})
	admin := token(t, jwt.MapClaims{"sub": "a1", "roles": []string{"admin"}})

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		body   string
		status int
		want   string
	}{
		{"list seeded", "GET", "/api/cats", "", "", 200, `"name":"Tom"`},
		{"limit out of range", "GET", "/api/cats?limit=0", "", "", 422, `"limit"`},
		{"find", "GET", "/api/cats/1", "", "", 200, `"id":1`},
		{"find missing", "GET", "/api/cats/99", "", "", 404, `"Cat not found"`},
		{"find bad id", "GET", "/api/cats/x", "", "", 400, `numeric string`},
		{"create anonymous", "POST", "/api/cats", "", `{"name":"Kit"}`, 401, `"statusCode":401`},
		{"create invalid", "POST", "/api/cats", user, `{"name":"K","age":40}`, 422, `"age"`},
		{"create", "POST", "/api/cats", user, `{"name":"  Kit ","age":1}`, 201, `"name":"Kit"`},
		{"me", "GET", "/api/cats/me", user, "", 200, `"sub":"u1"`},
		{"delete as user", "DELETE", "/api/cats/2", user, "", 403, `"Forbidden resource"`},
		{"delete as admin", "DELETE", "/api/cats/2", admin, "", 204, ""},
		{"deleted", "GET", "/api/cats/2", "", "", 404, ""},
		{"unknown route", "PATCH", "/api/cats", "", "", 404, `"Cannot PATCH /api/cats"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body %s does not contain %s", rec.Body, tt.want)
			}
			if rec.Code >= 400 {
				var body map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["statusCode"] != float64(rec.Code) {
					t.Errorf("error body should carry statusCode: %s", rec.Body)
				}
			}
		})
	}
}
