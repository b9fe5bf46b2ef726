// Package metadata is the resolver core: an access-gated store of
// structured metadata records and the document synthesizer serving the
// derived descriptor view.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainworks-labs/ipmeta/internal/access"
	"github.com/chainworks-labs/ipmeta/internal/directory"
	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/repo"
)

// Store persists one MetadataRecord per identifier and gates every
// mutation through the access decision point. Reads are never gated;
// missing records degrade to zero values. Ownership is resolved live
// through the directory on every call and is never stored.
type Store struct {
	records  repo.MetadataRepository
	dir      directory.Directory
	decision access.DecisionPoint
	resource domain.Address
}

// View is the assembled read model: the seven stored fields plus the
// live owner lookup.
type View struct {
	Record domain.MetadataRecord
	Owner  domain.Address
}

// NewStore wires the store to its collaborators. resource is this
// resolver's own address, passed as the target of every permission
// check.
func NewStore(records repo.MetadataRepository, dir directory.Directory, decision access.DecisionPoint, resource domain.Address) *Store {
	if records == nil || dir == nil || decision == nil {
		return nil
	}
	return &Store{records: records, dir: dir, decision: decision, resource: resource}
}

// Resource returns the address permission checks are keyed against.
func (s *Store) Resource() domain.Address { return s.resource }

func (s *Store) authorize(ctx context.Context, id domain.RecordID, caller domain.Address, selector string) error {
	ok, err := s.decision.CheckPermission(ctx, id, caller, s.resource, selector)
	if err != nil {
		return fmt.Errorf("check permission: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s on %s for %s: %w", selector, id, caller, access.ErrUnauthorized)
	}
	return nil
}

// record loads the stored record, mapping a missing row to the zero
// value. That degradation is deliberate; existence checks belong to the
// directory.
func (s *Store) record(ctx context.Context, id domain.RecordID) (domain.MetadataRecord, error) {
	record, err := s.records.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.MetadataRecord{}, nil
	}
	if err != nil {
		return domain.MetadataRecord{}, fmt.Errorf("load record: %w", err)
	}
	return record, nil
}

// SetMetadata atomically replaces all seven fields. It requires the bulk
// selector specifically; field selectors do not imply it.
func (s *Store) SetMetadata(ctx context.Context, caller domain.Address, id domain.RecordID, record domain.MetadataRecord) error {
	if s == nil || s.records == nil {
		return fmt.Errorf("metadata store not initialized")
	}
	if id.IsZero() {
		return fmt.Errorf("record id is required")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if err := s.authorize(ctx, id, caller, SelectorSetMetadata); err != nil {
		return err
	}
	return s.records.Put(ctx, id, record)
}

func (s *Store) SetName(ctx context.Context, caller domain.Address, id domain.RecordID, value string) error {
	return s.setField(ctx, caller, id, SelectorSetName, func(record *domain.MetadataRecord) {
		record.Name = value
	})
}

func (s *Store) SetCategory(ctx context.Context, caller domain.Address, id domain.RecordID, value domain.Category) error {
	if !domain.ValidCategory(uint8(value)) {
		return fmt.Errorf("category out of range")
	}
	return s.setField(ctx, caller, id, SelectorSetCategory, func(record *domain.MetadataRecord) {
		record.Category = value
	})
}

func (s *Store) SetDescription(ctx context.Context, caller domain.Address, id domain.RecordID, value string) error {
	return s.setField(ctx, caller, id, SelectorSetDescription, func(record *domain.MetadataRecord) {
		record.Description = value
	})
}

func (s *Store) SetHash(ctx context.Context, caller domain.Address, id domain.RecordID, value domain.Hash) error {
	return s.setField(ctx, caller, id, SelectorSetHash, func(record *domain.MetadataRecord) {
		record.Hash = value
	})
}

// SetTokenURI sets the document override; empty restores the
// synthesized default.
func (s *Store) SetTokenURI(ctx context.Context, caller domain.Address, id domain.RecordID, value string) error {
	return s.setField(ctx, caller, id, SelectorSetTokenURI, func(record *domain.MetadataRecord) {
		record.URI = value
	})
}

func (s *Store) setField(ctx context.Context, caller domain.Address, id domain.RecordID, selector string, mutate func(*domain.MetadataRecord)) error {
	if s == nil || s.records == nil {
		return fmt.Errorf("metadata store not initialized")
	}
	if id.IsZero() {
		return fmt.Errorf("record id is required")
	}
	if err := s.authorize(ctx, id, caller, selector); err != nil {
		return err
	}
	record, err := s.record(ctx, id)
	if err != nil {
		return err
	}
	mutate(&record)
	return s.records.Put(ctx, id, record)
}

func (s *Store) Name(ctx context.Context, id domain.RecordID) (string, error) {
	record, err := s.record(ctx, id)
	return record.Name, err
}

func (s *Store) Category(ctx context.Context, id domain.RecordID) (domain.Category, error) {
	record, err := s.record(ctx, id)
	return record.Category, err
}

func (s *Store) Description(ctx context.Context, id domain.RecordID) (string, error) {
	record, err := s.record(ctx, id)
	return record.Description, err
}

func (s *Store) Hash(ctx context.Context, id domain.RecordID) (domain.Hash, error) {
	record, err := s.record(ctx, id)
	return record.Hash, err
}

func (s *Store) RegistrationDate(ctx context.Context, id domain.RecordID) (uint64, error) {
	record, err := s.record(ctx, id)
	return record.RegistrationDate, err
}

func (s *Store) Registrant(ctx context.Context, id domain.RecordID) (domain.Address, error) {
	record, err := s.record(ctx, id)
	return record.Registrant, err
}

func (s *Store) TokenURIOverride(ctx context.Context, id domain.RecordID) (string, error) {
	record, err := s.record(ctx, id)
	return record.URI, err
}

// Owner resolves the current controller through the directory; zero for
// unregistered identifiers.
func (s *Store) Owner(ctx context.Context, id domain.RecordID) (domain.Address, error) {
	return s.dir.OwnerOf(ctx, id)
}

// Metadata assembles the full view: stored fields plus live owner.
func (s *Store) Metadata(ctx context.Context, id domain.RecordID) (View, error) {
	record, err := s.record(ctx, id)
	if err != nil {
		return View{}, err
	}
	owner, err := s.dir.OwnerOf(ctx, id)
	if err != nil {
		return View{}, err
	}
	return View{Record: record, Owner: owner}, nil
}
