// Package access decides whether a principal may perform one specific
// mutating action on one record. The resolver core only depends on the
// DecisionPoint interface; Controller is the permission-table
// implementation the service deploys with.
package access

import (
	"context"
	"errors"

	"github.com/chainworks-labs/ipmeta/internal/domain"
)

// ErrUnauthorized is the distinct signal for a denied mutation, so
// callers can branch on "permission denied" versus other failures.
var ErrUnauthorized = errors.New("unauthorized")

// DecisionPoint answers allow/deny for (record, principal, resource,
// selector) tuples. Implementations must be side-effect free from the
// caller's perspective.
type DecisionPoint interface {
	CheckPermission(ctx context.Context, id domain.RecordID, principal, resource domain.Address, selector string) (bool, error)
}

// DecisionFunc adapts a function to the DecisionPoint interface.
type DecisionFunc func(ctx context.Context, id domain.RecordID, principal, resource domain.Address, selector string) (bool, error)

func (f DecisionFunc) CheckPermission(ctx context.Context, id domain.RecordID, principal, resource domain.Address, selector string) (bool, error) {
	return f(ctx, id, principal, resource, selector)
}
