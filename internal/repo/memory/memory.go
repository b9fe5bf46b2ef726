// Package memory provides in-process repository implementations for
// tests and single-node dev deployments. All stores serialize access
// with a mutex; callers get value copies, never shared references.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/repo"
)

type MetadataStore struct {
	mu      sync.RWMutex
	records map[domain.RecordID]domain.MetadataRecord
}

func NewMetadataStore() *MetadataStore {
	return &MetadataStore{records: make(map[domain.RecordID]domain.MetadataRecord)}
}

func (s *MetadataStore) Get(ctx context.Context, id domain.RecordID) (domain.MetadataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return domain.MetadataRecord{}, repo.ErrNotFound
	}
	return record, nil
}

func (s *MetadataStore) Put(ctx context.Context, id domain.RecordID, record domain.MetadataRecord) error {
	if id.IsZero() {
		return fmt.Errorf("record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record
	return nil
}

type permissionKey struct {
	id        domain.RecordID
	principal domain.Address
	resource  domain.Address
	selector  string
}

type PermissionStore struct {
	mu      sync.RWMutex
	entries map[permissionKey]domain.PermissionLevel
}

func NewPermissionStore() *PermissionStore {
	return &PermissionStore{entries: make(map[permissionKey]domain.PermissionLevel)}
}

func (s *PermissionStore) Set(ctx context.Context, permission domain.Permission) error {
	if err := permission.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[permissionKey{
		id:        permission.ID,
		principal: permission.Principal,
		resource:  permission.Resource,
		selector:  permission.Selector,
	}] = permission.Level
	return nil
}

func (s *PermissionStore) Get(ctx context.Context, id domain.RecordID, principal, resource domain.Address, selector string) (domain.PermissionLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	level, ok := s.entries[permissionKey{id: id, principal: principal, resource: resource, selector: selector}]
	if !ok {
		return domain.PermissionAbstain, repo.ErrNotFound
	}
	return level, nil
}

type RegistrationStore struct {
	mu      sync.RWMutex
	entries map[domain.RecordID]domain.Registration
}

func NewRegistrationStore() *RegistrationStore {
	return &RegistrationStore{entries: make(map[domain.RecordID]domain.Registration)}
}

func (s *RegistrationStore) Create(ctx context.Context, registration domain.Registration) error {
	if err := registration.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[registration.ID]; ok {
		return fmt.Errorf("record %s already registered", registration.ID)
	}
	s.entries[registration.ID] = registration
	return nil
}

func (s *RegistrationStore) Get(ctx context.Context, id domain.RecordID) (domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registration, ok := s.entries[id]
	if !ok {
		return domain.Registration{}, repo.ErrNotFound
	}
	return registration, nil
}

// SetController reassigns ownership in place, mirroring an on-chain
// transfer observed by the directory.
func (s *RegistrationStore) SetController(ctx context.Context, id domain.RecordID, controller domain.Address) error {
	if controller.IsZero() {
		return fmt.Errorf("controller is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	registration, ok := s.entries[id]
	if !ok {
		return repo.ErrNotFound
	}
	registration.Controller = controller
	s.entries[id] = registration
	return nil
}

type AuditAppender struct {
	mu     sync.Mutex
	nextID int64
	Events []domain.AuditEvent
}

func NewAuditAppender() *AuditAppender {
	return &AuditAppender{}
}

func (a *AuditAppender) Append(ctx context.Context, event domain.AuditEvent) (int64, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	a.Events = append(a.Events, event)
	return a.nextID, nil
}
