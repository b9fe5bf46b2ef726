package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfigFromEnvDevMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "dev")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.Mode != ModeDev {
		t.Fatalf("mode=%q", cfg.Mode)
	}
	if len(cfg.DevRoles) == 0 {
		t.Fatalf("expected default dev roles")
	}
}

func TestConfigValidateRequiresIssuerForOIDC(t *testing.T) {
	cfg := Config{Mode: ModeOIDC, RolesClaim: "roles", EmailClaim: "email", SubjectClaim: "sub"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected issuer error")
	}
}

func TestConfigFromEnvRejectsUnknownMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "other")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected mode error")
	}
}

func TestMiddlewareSkipPrefixes(t *testing.T) {
	var called bool
	handler := Middleware{
		Authenticator: failingAuthenticator{},
		SkipPrefixes:  []string{"/healthz"},
	}.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !called {
		t.Fatalf("expected skip prefix to bypass auth")
	}
}

func TestMiddlewareRejectsUnauthenticated(t *testing.T) {
	var denied *DenyEvent
	handler := Middleware{
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Authenticator: failingAuthenticator{},
		Audit: func(ctx context.Context, event DenyEvent) error {
			denied = &event
			return nil
		},
	}.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/0x1/metadata", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
	if denied == nil || denied.Reason != "unauthenticated" {
		t.Fatalf("deny event=%+v", denied)
	}
}

func TestMiddlewareAuthorize(t *testing.T) {
	cfg := Config{Mode: ModeDev, DevSubject: "0x01", DevRoles: []string{RoleViewer}}
	handler := Middleware{
		Authenticator: NewDevAuthenticator(cfg),
		Authorize:     MethodRoleAuthorizer(),
	}.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/0x1/metadata", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("viewer GET status=%d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/records/0x1/metadata", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer PUT status=%d, want 403", rec.Code)
	}
}

func TestAnonymousAuthenticatorCallerHeader(t *testing.T) {
	ctx := context.Background()

	identity, err := AnonymousAuthenticator{}.Authenticate(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if identity.Subject != "anonymous" {
		t.Fatalf("subject=%q, want anonymous", identity.Subject)
	}

	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	req.Header.Set(CallerAddressHeader, " 0x00000000000000000000000000000000000000aa ")
	identity, err = AnonymousAuthenticator{}.Authenticate(ctx, req)
	if err != nil {
		t.Fatalf("Authenticate() err=%v", err)
	}
	if identity.Subject != "0x00000000000000000000000000000000000000aa" {
		t.Fatalf("subject=%q, want header address", identity.Subject)
	}
}

func TestRequiredRoleForRequest(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/records/0x1/metadata", RoleViewer},
		{http.MethodPatch, "/records/0x1/name", RoleEditor},
		{http.MethodPost, "/records", RoleAdmin},
		{http.MethodPut, "/records/0x1/permissions", RoleAdmin},
		{http.MethodPut, "/records/0x1/controller", RoleAdmin},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		if got := RequiredRoleForRequest(r); got != tc.want {
			t.Fatalf("%s %s: role=%q, want %q", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestHasAtLeast(t *testing.T) {
	if !HasAtLeast([]string{"admin"}, RoleEditor) {
		t.Fatalf("admin must satisfy editor")
	}
	if HasAtLeast([]string{"viewer"}, RoleEditor) {
		t.Fatalf("viewer must not satisfy editor")
	}
	if HasAtLeast(nil, RoleViewer) {
		t.Fatalf("no roles must not satisfy viewer")
	}
}

type failingAuthenticator struct{}

func (failingAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	return Identity{}, ErrUnauthenticated
}
