package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/repo"
)

type RegistrationStore struct {
	db DB
}

func NewRegistrationStore(db DB) *RegistrationStore {
	if db == nil {
		return nil
	}
	return &RegistrationStore{db: db}
}

func (s *RegistrationStore) Create(ctx context.Context, registration domain.Registration) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("registration store not initialized")
	}
	if err := registration.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO registrations (
			record_id,
			controller,
			source,
			registered_at
		) VALUES ($1,$2,$3,$4)`,
		hexKey(registration.ID[:]),
		registration.Controller.Hex(),
		registration.Source,
		time.Now().UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("record %s already registered: %w", registration.ID, err)
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *RegistrationStore) Get(ctx context.Context, id domain.RecordID) (domain.Registration, error) {
	if s == nil || s.db == nil {
		return domain.Registration{}, fmt.Errorf("registration store not initialized")
	}
	var (
		controllerHex string
		source        string
	)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT controller, source
		 FROM registrations
		 WHERE record_id = $1`,
		hexKey(id[:]),
	)
	if err := row.Scan(&controllerHex, &source); err != nil {
		return domain.Registration{}, handleNotFound(err)
	}
	controller, err := domain.ParseAddress(controllerHex)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("decode controller: %w", err)
	}
	return domain.Registration{ID: id, Controller: controller, Source: source}, nil
}

// SetController records an ownership transfer observed upstream.
func (s *RegistrationStore) SetController(ctx context.Context, id domain.RecordID, controller domain.Address) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("registration store not initialized")
	}
	if controller.IsZero() {
		return fmt.Errorf("controller is required")
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE registrations SET controller = $2 WHERE record_id = $1`,
		hexKey(id[:]),
		controller.Hex(),
	)
	if err != nil {
		return fmt.Errorf("update controller: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update controller: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
