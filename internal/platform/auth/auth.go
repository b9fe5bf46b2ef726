// Package auth authenticates API callers. Three modes are supported:
// oidc verifies bearer tokens against an OIDC issuer, dev injects a
// fixed identity for local work, disabled lets everything through as
// anonymous.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chainworks-labs/ipmeta/internal/platform/env"
)

type Mode string

const (
	ModeOIDC     Mode = "oidc"
	ModeDev      Mode = "dev"
	ModeDisabled Mode = "disabled"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Config struct {
	Mode Mode

	RolesClaim   string
	EmailClaim   string
	SubjectClaim string

	OIDCIssuerURL string
	OIDCClientID  string

	// UserInfoFallback queries the issuer's userinfo endpoint when the
	// verified token lacks the subject claim.
	UserInfoFallback bool

	DevSubject string
	DevEmail   string
	DevRoles   []string
}

func ConfigFromEnv() (Config, error) {
	modeRaw := strings.ToLower(strings.TrimSpace(env.String("AUTH_MODE", string(ModeOIDC))))
	var mode Mode
	switch modeRaw {
	case string(ModeOIDC):
		mode = ModeOIDC
	case string(ModeDev):
		mode = ModeDev
	case string(ModeDisabled):
		mode = ModeDisabled
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be one of: oidc, dev, disabled (got %q)", modeRaw)
	}

	userInfoFallback, err := env.Bool("AUTH_USERINFO_FALLBACK", true)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Mode:             mode,
		RolesClaim:       env.String("AUTH_ROLES_CLAIM", "roles"),
		EmailClaim:       env.String("AUTH_EMAIL_CLAIM", "email"),
		SubjectClaim:     env.String("AUTH_SUBJECT_CLAIM", "sub"),
		OIDCIssuerURL:    env.String("OIDC_ISSUER_URL", ""),
		OIDCClientID:     env.String("OIDC_CLIENT_ID", ""),
		UserInfoFallback: userInfoFallback,
		DevSubject:       env.String("DEV_AUTH_SUBJECT", "0x00000000000000000000000000000000000000d1"),
		DevEmail:         env.String("DEV_AUTH_EMAIL", "dev-user@example.local"),
		DevRoles:         parseCSV(env.String("DEV_AUTH_ROLES", "admin")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(string(c.Mode)) == "" {
		return errors.New("AUTH_MODE is required")
	}
	if strings.TrimSpace(c.RolesClaim) == "" {
		return errors.New("AUTH_ROLES_CLAIM is required")
	}
	if strings.TrimSpace(c.EmailClaim) == "" {
		return errors.New("AUTH_EMAIL_CLAIM is required")
	}
	if strings.TrimSpace(c.SubjectClaim) == "" {
		return errors.New("AUTH_SUBJECT_CLAIM is required")
	}

	switch c.Mode {
	case ModeOIDC:
		if strings.TrimSpace(c.OIDCIssuerURL) == "" {
			return errors.New("OIDC_ISSUER_URL is required when AUTH_MODE=oidc")
		}
		if strings.TrimSpace(c.OIDCClientID) == "" {
			return errors.New("OIDC_CLIENT_ID is required when AUTH_MODE=oidc")
		}
	case ModeDev:
		if strings.TrimSpace(c.DevSubject) == "" {
			return errors.New("DEV_AUTH_SUBJECT is required when AUTH_MODE=dev")
		}
		if len(c.DevRoles) == 0 {
			return errors.New("DEV_AUTH_ROLES must be non-empty when AUTH_MODE=dev")
		}
	case ModeDisabled:
	default:
		return fmt.Errorf("unsupported auth mode: %q", c.Mode)
	}

	return nil
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := strings.ToLower(strings.TrimSpace(part))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
