package repo

import (
	"context"
	"errors"

	"github.com/chainworks-labs/ipmeta/internal/domain"
)

var ErrNotFound = errors.New("not found")

// MetadataRepository persists the structured metadata record per
// identifier. Put replaces the whole record; there is no delete.
type MetadataRepository interface {
	Get(ctx context.Context, id domain.RecordID) (domain.MetadataRecord, error)
	Put(ctx context.Context, id domain.RecordID, record domain.MetadataRecord) error
}

// PermissionRepository stores explicit permission entries. Get returns
// ErrNotFound when no entry exists for the exact tuple.
type PermissionRepository interface {
	Set(ctx context.Context, permission domain.Permission) error
	Get(ctx context.Context, id domain.RecordID, principal, resource domain.Address, selector string) (domain.PermissionLevel, error)
}

// RegistrationRepository is the record directory backing store.
// SetController records ownership transfers observed upstream.
type RegistrationRepository interface {
	Create(ctx context.Context, registration domain.Registration) error
	Get(ctx context.Context, id domain.RecordID) (domain.Registration, error)
	SetController(ctx context.Context, id domain.RecordID, controller domain.Address) error
}

// AuditEventAppender ensures append-only audit writes.
type AuditEventAppender interface {
	Append(ctx context.Context, event domain.AuditEvent) (int64, error)
}
