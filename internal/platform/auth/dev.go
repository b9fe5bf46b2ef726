package auth

import (
	"context"
	"net/http"
	"strings"
)

type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

type DevAuthenticator struct {
	identity Identity
}

func NewDevAuthenticator(cfg Config) *DevAuthenticator {
	return &DevAuthenticator{
		identity: Identity{
			Subject: cfg.DevSubject,
			Email:   cfg.DevEmail,
			Roles:   cfg.DevRoles,
		},
	}
}

func (a *DevAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	return a.identity, nil
}

// CallerAddressHeader names the acting principal when authentication is
// disabled. Mutators need a parseable caller address, so without it
// disabled mode is effectively read-only.
const CallerAddressHeader = "X-Caller-Address"

// AnonymousAuthenticator serves AUTH_MODE=disabled.
type AnonymousAuthenticator struct{}

func (AnonymousAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	if subject := strings.TrimSpace(r.Header.Get(CallerAddressHeader)); subject != "" {
		return Identity{Subject: subject}, nil
	}
	return Identity{Subject: "anonymous"}, nil
}
