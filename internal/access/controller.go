package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/repo"
)

// Controller resolves permissions from explicit stored entries with
// wildcard fallback: the exact selector first, then the any-selector
// entry for the same resource, then the any-resource any-selector entry.
// Abstain (or no entry) falls through to the next tier; the final
// fallback is deny. There is no implicit owner bypass.
type Controller struct {
	permissions repo.PermissionRepository
}

func NewController(permissions repo.PermissionRepository) *Controller {
	if permissions == nil {
		return nil
	}
	return &Controller{permissions: permissions}
}

func (c *Controller) SetPermission(ctx context.Context, permission domain.Permission) error {
	if c == nil || c.permissions == nil {
		return fmt.Errorf("access controller not initialized")
	}
	if err := permission.Validate(); err != nil {
		return err
	}
	return c.permissions.Set(ctx, permission)
}

func (c *Controller) CheckPermission(ctx context.Context, id domain.RecordID, principal, resource domain.Address, selector string) (bool, error) {
	if c == nil || c.permissions == nil {
		return false, fmt.Errorf("access controller not initialized")
	}
	if id.IsZero() || principal.IsZero() || selector == "" {
		return false, nil
	}

	tiers := []struct {
		resource domain.Address
		selector string
	}{
		{resource, selector},
		{resource, domain.SelectorWildcard},
		{domain.ZeroAddress, domain.SelectorWildcard},
	}
	for _, tier := range tiers {
		level, err := c.permissions.Get(ctx, id, principal, tier.resource, tier.selector)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("permission lookup: %w", err)
		}
		switch level {
		case domain.PermissionAllow:
			return true, nil
		case domain.PermissionDeny:
			return false, nil
		}
	}
	return false, nil
}
