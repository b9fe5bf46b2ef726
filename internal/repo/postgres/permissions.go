package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chainworks-labs/ipmeta/internal/domain"
)

type PermissionStore struct {
	db DB
}

func NewPermissionStore(db DB) *PermissionStore {
	if db == nil {
		return nil
	}
	return &PermissionStore{db: db}
}

func (s *PermissionStore) Set(ctx context.Context, permission domain.Permission) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("permission store not initialized")
	}
	if err := permission.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO permissions (
			record_id,
			principal,
			resource,
			selector,
			level,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (record_id, principal, resource, selector) DO UPDATE SET
			level = EXCLUDED.level,
			updated_at = EXCLUDED.updated_at`,
		hexKey(permission.ID[:]),
		permission.Principal.Hex(),
		permission.Resource.Hex(),
		permission.Selector,
		permission.Level.String(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}

func (s *PermissionStore) Get(ctx context.Context, id domain.RecordID, principal, resource domain.Address, selector string) (domain.PermissionLevel, error) {
	if s == nil || s.db == nil {
		return domain.PermissionAbstain, fmt.Errorf("permission store not initialized")
	}
	var levelRaw string
	row := s.db.QueryRowContext(
		ctx,
		`SELECT level
		 FROM permissions
		 WHERE record_id = $1 AND principal = $2 AND resource = $3 AND selector = $4`,
		hexKey(id[:]),
		principal.Hex(),
		resource.Hex(),
		selector,
	)
	if err := row.Scan(&levelRaw); err != nil {
		return domain.PermissionAbstain, handleNotFound(err)
	}
	level, err := domain.ParsePermissionLevel(levelRaw)
	if err != nil {
		return domain.PermissionAbstain, fmt.Errorf("decode level: %w", err)
	}
	return level, nil
}
