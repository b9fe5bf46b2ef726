package auth

import (
	"context"
	"net"
	"strings"

	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/repo"
)

// DenyAuditFunc bridges middleware denials into the append-only audit
// trail.
func DenyAuditFunc(appender repo.AuditEventAppender, service string) AuditFunc {
	return func(ctx context.Context, event DenyEvent) error {
		actor := "anonymous"
		if strings.TrimSpace(event.Subject) != "" {
			actor = strings.TrimSpace(event.Subject)
		}

		var ip net.IP
		host, _, err := net.SplitHostPort(event.RemoteAddr)
		if err == nil {
			ip = net.ParseIP(host)
		}

		_, err = appender.Append(ctx, domain.AuditEvent{
			OccurredAt:   event.Time,
			Actor:        actor,
			Action:       "auth." + strings.TrimSpace(event.Reason),
			ResourceType: "http",
			ResourceID:   event.Method + " " + event.Path,
			RequestID:    event.RequestID,
			IP:           ip,
			UserAgent:    event.UserAgent,
			Payload: map[string]any{
				"service": service,
				"status":  event.Status,
				"reason":  event.Reason,
				"error":   event.Error,
				"subject": event.Subject,
				"email":   event.Email,
				"roles":   event.Roles,
			},
		})
		return err
	}
}
