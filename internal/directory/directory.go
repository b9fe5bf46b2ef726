// Package directory maps record identifiers to their registration state
// and current controlling account. The resolver never stores ownership;
// it asks here on every read.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/repo"
)

// Directory is the resolver's read-only view of the record registry.
// OwnerOf returns the zero address for unregistered identifiers.
type Directory interface {
	OwnerOf(ctx context.Context, id domain.RecordID) (domain.Address, error)
	IsRegistered(ctx context.Context, id domain.RecordID) (bool, error)
}

// Registry is the repository-backed directory the service deploys with.
type Registry struct {
	registrations repo.RegistrationRepository
}

func NewRegistry(registrations repo.RegistrationRepository) *Registry {
	if registrations == nil {
		return nil
	}
	return &Registry{registrations: registrations}
}

func (r *Registry) Register(ctx context.Context, registration domain.Registration) error {
	if r == nil || r.registrations == nil {
		return fmt.Errorf("registry not initialized")
	}
	if err := registration.Validate(); err != nil {
		return err
	}
	return r.registrations.Create(ctx, registration)
}

// Transfer reassigns the controlling account for a registered record.
func (r *Registry) Transfer(ctx context.Context, id domain.RecordID, controller domain.Address) error {
	if r == nil || r.registrations == nil {
		return fmt.Errorf("registry not initialized")
	}
	if id.IsZero() {
		return fmt.Errorf("record id is required")
	}
	if controller.IsZero() {
		return fmt.Errorf("controller is required")
	}
	return r.registrations.SetController(ctx, id, controller)
}

func (r *Registry) OwnerOf(ctx context.Context, id domain.RecordID) (domain.Address, error) {
	if r == nil || r.registrations == nil {
		return domain.ZeroAddress, fmt.Errorf("registry not initialized")
	}
	registration, err := r.registrations.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.ZeroAddress, nil
	}
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("registration lookup: %w", err)
	}
	return registration.Controller, nil
}

func (r *Registry) IsRegistered(ctx context.Context, id domain.RecordID) (bool, error) {
	if r == nil || r.registrations == nil {
		return false, fmt.Errorf("registry not initialized")
	}
	_, err := r.registrations.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("registration lookup: %w", err)
	}
	return true, nil
}
