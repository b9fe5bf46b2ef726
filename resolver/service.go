package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/chainworks-labs/ipmeta/internal/access"
	"github.com/chainworks-labs/ipmeta/internal/directory"
	"github.com/chainworks-labs/ipmeta/internal/docstore"
	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/metadata"
	"github.com/chainworks-labs/ipmeta/internal/repo"
)

type auditContext struct {
	Actor     string
	RequestID string
	IP        net.IP
	UserAgent string
	Path      string
	Service   string
}

// resolverService coordinates the metadata store, access controller,
// record directory and document archive, and writes the audit trail for
// every mutation.
type resolverService struct {
	store    *metadata.Store
	synth    *metadata.Synthesizer
	registry *directory.Registry
	control  *access.Controller
	docs     *docstore.Store
	audit    repo.AuditEventAppender
	now      func() time.Time
}

func newResolverService(store *metadata.Store, synth *metadata.Synthesizer, registry *directory.Registry, control *access.Controller, docs *docstore.Store, audit repo.AuditEventAppender) *resolverService {
	return &resolverService{
		store:    store,
		synth:    synth,
		registry: registry,
		control:  control,
		docs:     docs,
		audit:    audit,
		now:      time.Now,
	}
}

func (s *resolverService) RegisterRecord(ctx context.Context, registration domain.Registration, auditCtx auditContext) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("resolver service not initialized")
	}
	if err := s.registry.Register(ctx, registration); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, "record.register", registration.ID, map[string]any{
		"controller": registration.Controller.Hex(),
		"source":     registration.Source,
	})
	return nil
}

func (s *resolverService) TransferController(ctx context.Context, id domain.RecordID, controller domain.Address, auditCtx auditContext) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("resolver service not initialized")
	}
	if err := s.registry.Transfer(ctx, id, controller); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, "record.transfer", id, map[string]any{
		"controller": controller.Hex(),
	})
	return nil
}

func (s *resolverService) SetPermission(ctx context.Context, permission domain.Permission, auditCtx auditContext) error {
	if s == nil || s.control == nil {
		return fmt.Errorf("resolver service not initialized")
	}
	if err := s.control.SetPermission(ctx, permission); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, "permission.set", permission.ID, map[string]any{
		"principal": permission.Principal.Hex(),
		"resource":  permission.Resource.Hex(),
		"selector":  permission.Selector,
		"level":     permission.Level.String(),
	})
	return nil
}

func (s *resolverService) SetMetadata(ctx context.Context, caller domain.Address, id domain.RecordID, record domain.MetadataRecord, auditCtx auditContext) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("resolver service not initialized")
	}
	if err := s.store.SetMetadata(ctx, caller, id, record); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, metadata.SelectorSetMetadata, id, map[string]any{
		"name":              record.Name,
		"category":          record.Category.Label(),
		"registration_date": record.RegistrationDate,
		"registrant":        record.Registrant.Hex(),
	})
	return nil
}

func (s *resolverService) SetName(ctx context.Context, caller domain.Address, id domain.RecordID, name string, auditCtx auditContext) error {
	if err := s.store.SetName(ctx, caller, id, name); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, metadata.SelectorSetName, id, map[string]any{"name": name})
	return nil
}

func (s *resolverService) SetCategory(ctx context.Context, caller domain.Address, id domain.RecordID, category domain.Category, auditCtx auditContext) error {
	if err := s.store.SetCategory(ctx, caller, id, category); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, metadata.SelectorSetCategory, id, map[string]any{"category": category.Label()})
	return nil
}

func (s *resolverService) SetDescription(ctx context.Context, caller domain.Address, id domain.RecordID, description string, auditCtx auditContext) error {
	if err := s.store.SetDescription(ctx, caller, id, description); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, metadata.SelectorSetDescription, id, map[string]any{"description": description})
	return nil
}

func (s *resolverService) SetHash(ctx context.Context, caller domain.Address, id domain.RecordID, hash domain.Hash, auditCtx auditContext) error {
	if err := s.store.SetHash(ctx, caller, id, hash); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, metadata.SelectorSetHash, id, map[string]any{"hash": hash.Hex()})
	return nil
}

func (s *resolverService) SetTokenURI(ctx context.Context, caller domain.Address, id domain.RecordID, uri string, auditCtx auditContext) error {
	if err := s.store.SetTokenURI(ctx, caller, id, uri); err != nil {
		return err
	}
	s.appendAudit(ctx, auditCtx, metadata.SelectorSetTokenURI, id, map[string]any{"token_uri": uri})
	return nil
}

func (s *resolverService) Metadata(ctx context.Context, id domain.RecordID) (metadata.View, error) {
	return s.store.Metadata(ctx, id)
}

func (s *resolverService) Owner(ctx context.Context, id domain.RecordID) (domain.Address, error) {
	return s.store.Owner(ctx, id)
}

func (s *resolverService) TokenURI(ctx context.Context, id domain.RecordID) (string, error) {
	return s.synth.TokenURI(ctx, id)
}

// PublishDocument archives the current synthesized document. Returns
// the object key alongside the URI that was archived. With setOverride
// the archived object's reference also becomes the record's token URI,
// which requires the caller to hold the token-uri selector.
func (s *resolverService) PublishDocument(ctx context.Context, id domain.RecordID, caller domain.Address, setOverride bool, auditCtx auditContext) (string, string, error) {
	if s == nil || s.docs == nil {
		return "", "", fmt.Errorf("document archive not configured")
	}
	if setOverride {
		ok, err := s.control.CheckPermission(ctx, id, caller, s.store.Resource(), metadata.SelectorSetTokenURI)
		if err != nil {
			return "", "", fmt.Errorf("check permission: %w", err)
		}
		if !ok {
			return "", "", fmt.Errorf("%s on %s for %s: %w", metadata.SelectorSetTokenURI, id, caller, access.ErrUnauthorized)
		}
	}
	uri, err := s.synth.TokenURI(ctx, id)
	if err != nil {
		return "", "", err
	}
	if uri == "" {
		return "", "", repo.ErrNotFound
	}
	key, err := s.docs.Publish(ctx, id, auditCtx.Actor, uri)
	if err != nil {
		return "", "", err
	}
	if setOverride {
		if err := s.store.SetTokenURI(ctx, caller, id, s.docs.ObjectRef(key)); err != nil {
			return "", "", err
		}
	}
	s.appendAudit(ctx, auditCtx, "document.publish", id, map[string]any{
		"object_key":   key,
		"set_override": setOverride,
	})
	return key, uri, nil
}

func (s *resolverService) appendAudit(ctx context.Context, auditCtx auditContext, action string, id domain.RecordID, payload map[string]any) {
	if s.audit == nil {
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["service"] = auditCtx.Service
	payload["request_path"] = auditCtx.Path
	_, _ = s.audit.Append(ctx, domain.AuditEvent{
		OccurredAt:   s.now().UTC(),
		Actor:        auditCtx.Actor,
		Action:       action,
		ResourceType: "record",
		ResourceID:   id.Hex(),
		RequestID:    auditCtx.RequestID,
		IP:           auditCtx.IP,
		UserAgent:    auditCtx.UserAgent,
		Payload:      payload,
	})
}
