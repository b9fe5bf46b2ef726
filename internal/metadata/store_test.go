package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/chainworks-labs/ipmeta/internal/access"
	"github.com/chainworks-labs/ipmeta/internal/directory"
	"github.com/chainworks-labs/ipmeta/internal/domain"
	"github.com/chainworks-labs/ipmeta/internal/repo/memory"
)

func addr(b byte) domain.Address {
	var a domain.Address
	a[19] = b
	return a
}

var testResource = addr(0xee)

type testResolver struct {
	store      *Store
	synth      *Synthesizer
	controller *access.Controller
	regs       *memory.RegistrationStore
}

func newTestResolver(t *testing.T) *testResolver {
	t.Helper()
	controller := access.NewController(memory.NewPermissionStore())
	regs := memory.NewRegistrationStore()
	store := NewStore(memory.NewMetadataStore(), directory.NewRegistry(regs), controller, testResource)
	if store == nil {
		t.Fatalf("expected store")
	}
	return &testResolver{
		store:      store,
		synth:      NewSynthesizer(store),
		controller: controller,
		regs:       regs,
	}
}

func (r *testResolver) grant(t *testing.T, id domain.RecordID, principal domain.Address, selector string) {
	t.Helper()
	err := r.controller.SetPermission(context.Background(), domain.Permission{
		ID:        id,
		Principal: principal,
		Resource:  testResource,
		Selector:  selector,
		Level:     domain.PermissionAllow,
	})
	if err != nil {
		t.Fatalf("SetPermission() err=%v", err)
	}
}

func sampleRecord(registrant domain.Address) domain.MetadataRecord {
	return domain.MetadataRecord{
		Name:             "IPRecord",
		Category:         domain.CategoryCopyright,
		Description:      "IPs all the way down.",
		RegistrationDate: 999999,
		Registrant:       registrant,
	}
}

func TestSetMetadata_UnauthorizedLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	caller := addr(0x01)

	err := r.store.SetMetadata(ctx, caller, id, sampleRecord(caller))
	if !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("SetMetadata() err=%v, want ErrUnauthorized", err)
	}

	name, err := r.store.Name(ctx, id)
	if err != nil {
		t.Fatalf("Name() err=%v", err)
	}
	if name != "" {
		t.Fatalf("Name()=%q, want empty after denied write", name)
	}
}

func TestSetMetadata_RequiresBulkSelector(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	caller := addr(0x01)

	// Every field selector granted, but not the bulk one.
	for _, selector := range []string{SelectorSetName, SelectorSetCategory, SelectorSetDescription, SelectorSetHash, SelectorSetTokenURI} {
		r.grant(t, id, caller, selector)
	}
	if err := r.store.SetMetadata(ctx, caller, id, sampleRecord(caller)); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("SetMetadata() err=%v, want ErrUnauthorized", err)
	}

	r.grant(t, id, caller, SelectorSetMetadata)
	if err := r.store.SetMetadata(ctx, caller, id, sampleRecord(caller)); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}
}

func TestBulkSelectorDoesNotImplyFieldSelectors(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	caller := addr(0x01)

	r.grant(t, id, caller, SelectorSetMetadata)
	if err := r.store.SetMetadata(ctx, caller, id, sampleRecord(caller)); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}
	if err := r.store.SetName(ctx, caller, id, "renamed"); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("SetName() err=%v, want ErrUnauthorized", err)
	}

	name, err := r.store.Name(ctx, id)
	if err != nil {
		t.Fatalf("Name() err=%v", err)
	}
	if name != "IPRecord" {
		t.Fatalf("Name()=%q, want IPRecord after denied rename", name)
	}
}

func TestFieldSelectorPermitsOnlyItsMutator(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	caller := addr(0x01)

	r.grant(t, id, caller, SelectorSetName)
	if err := r.store.SetName(ctx, caller, id, "only-name"); err != nil {
		t.Fatalf("SetName() err=%v", err)
	}
	if err := r.store.SetDescription(ctx, caller, id, "nope"); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("SetDescription() err=%v, want ErrUnauthorized", err)
	}
	if err := r.store.SetHash(ctx, caller, id, domain.Hash{31: 1}); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("SetHash() err=%v, want ErrUnauthorized", err)
	}

	view, err := r.store.Metadata(ctx, id)
	if err != nil {
		t.Fatalf("Metadata() err=%v", err)
	}
	if view.Record.Name != "only-name" || view.Record.Description != "" || !view.Record.Hash.IsZero() {
		t.Fatalf("unexpected record after partial grants: %+v", view.Record)
	}
}

func TestWildcardSelectorGrantPermitsAllMutators(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(7)
	caller := addr(0x02)

	r.grant(t, id, caller, domain.SelectorWildcard)
	if err := r.store.SetMetadata(ctx, caller, id, sampleRecord(caller)); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}
	if err := r.store.SetDescription(ctx, caller, id, "updated"); err != nil {
		t.Fatalf("SetDescription() err=%v", err)
	}
}

func TestReadAfterWriteConsistency(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	caller := addr(0x01)
	owner := addr(0x0a)

	if err := r.regs.Create(ctx, domain.Registration{ID: id, Controller: owner, Source: "test"}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}

	record := sampleRecord(addr(0x0b))
	record.Hash = domain.Hash{0: 0xde, 31: 0xad}
	record.URI = "ipfs://override"
	r.grant(t, id, caller, SelectorSetMetadata)
	if err := r.store.SetMetadata(ctx, caller, id, record); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}

	name, _ := r.store.Name(ctx, id)
	category, _ := r.store.Category(ctx, id)
	description, _ := r.store.Description(ctx, id)
	hash, _ := r.store.Hash(ctx, id)
	date, _ := r.store.RegistrationDate(ctx, id)
	registrant, _ := r.store.Registrant(ctx, id)
	uri, _ := r.store.TokenURIOverride(ctx, id)

	if name != record.Name || category != record.Category || description != record.Description {
		t.Fatalf("getter mismatch: %q %v %q", name, category, description)
	}
	if hash != record.Hash || date != record.RegistrationDate || registrant != record.Registrant || uri != record.URI {
		t.Fatalf("getter mismatch: %v %d %v %q", hash, date, registrant, uri)
	}

	view, err := r.store.Metadata(ctx, id)
	if err != nil {
		t.Fatalf("Metadata() err=%v", err)
	}
	if view.Record != record {
		t.Fatalf("Metadata record=%+v, want %+v", view.Record, record)
	}
	if view.Owner != owner {
		t.Fatalf("Metadata owner=%s, want %s", view.Owner, owner)
	}
}

func TestOwnerLiveness(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	first := addr(0x0a)
	second := addr(0x0b)

	got, err := r.store.Owner(ctx, id)
	if err != nil {
		t.Fatalf("Owner() err=%v", err)
	}
	if !got.IsZero() {
		t.Fatalf("Owner()=%s, want zero for unregistered id", got)
	}

	if err := r.regs.Create(ctx, domain.Registration{ID: id, Controller: first, Source: "test"}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	caller := addr(0x01)
	r.grant(t, id, caller, SelectorSetMetadata)
	record := sampleRecord(first)
	if err := r.store.SetMetadata(ctx, caller, id, record); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}

	if err := r.regs.SetController(ctx, id, second); err != nil {
		t.Fatalf("SetController() err=%v", err)
	}
	got, err = r.store.Owner(ctx, id)
	if err != nil {
		t.Fatalf("Owner() err=%v", err)
	}
	if got != second {
		t.Fatalf("Owner()=%s, want %s after transfer", got, second)
	}

	// Registrant is a frozen snapshot, independent of ownership.
	registrant, err := r.store.Registrant(ctx, id)
	if err != nil {
		t.Fatalf("Registrant() err=%v", err)
	}
	if registrant != first {
		t.Fatalf("Registrant()=%s, want %s", registrant, first)
	}
}

func TestReadsOnMissingRecordReturnZeroValues(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(404)

	name, err := r.store.Name(ctx, id)
	if err != nil || name != "" {
		t.Fatalf("Name()=%q err=%v, want empty/nil", name, err)
	}
	category, err := r.store.Category(ctx, id)
	if err != nil || category != domain.CategoryCopyright {
		t.Fatalf("Category()=%v err=%v, want default member/nil", category, err)
	}
	hash, err := r.store.Hash(ctx, id)
	if err != nil || !hash.IsZero() {
		t.Fatalf("Hash()=%v err=%v, want zero/nil", hash, err)
	}
	date, err := r.store.RegistrationDate(ctx, id)
	if err != nil || date != 0 {
		t.Fatalf("RegistrationDate()=%d err=%v, want 0/nil", date, err)
	}
	registrant, err := r.store.Registrant(ctx, id)
	if err != nil || !registrant.IsZero() {
		t.Fatalf("Registrant()=%s err=%v, want zero/nil", registrant, err)
	}
	view, err := r.store.Metadata(ctx, id)
	if err != nil {
		t.Fatalf("Metadata() err=%v", err)
	}
	if !view.Record.IsZero() || !view.Owner.IsZero() {
		t.Fatalf("Metadata()=%+v, want zero view", view)
	}
}

func TestSetMetadata_RejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	caller := addr(0x01)
	r.grant(t, id, caller, SelectorSetMetadata)

	record := sampleRecord(caller)
	record.Registrant = domain.ZeroAddress
	if err := r.store.SetMetadata(ctx, caller, id, record); err == nil {
		t.Fatalf("expected registrant error")
	}
}

func TestCapabilityIntrospection(t *testing.T) {
	if !Supports(CapabilityMetadataResolver) {
		t.Fatalf("expected resolver capability")
	}
	if Supports("ipmeta.other.v1") {
		t.Fatalf("unexpected capability")
	}
	selectors := Selectors()
	if len(selectors) != 6 {
		t.Fatalf("Selectors()=%d entries, want 6", len(selectors))
	}
	seen := map[string]struct{}{}
	for _, selector := range selectors {
		if _, ok := seen[selector]; ok {
			t.Fatalf("duplicate selector %q", selector)
		}
		seen[selector] = struct{}{}
	}
}
