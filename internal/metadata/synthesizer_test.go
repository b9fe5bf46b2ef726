package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/chainworks-labs/ipmeta/internal/domain"
)

func decodeDocument(t *testing.T, uri string) document {
	t.Helper()
	if !strings.HasPrefix(uri, DataURIPrefix) {
		t.Fatalf("uri %q missing data URI prefix", uri)
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	var doc document
	if err := json.Unmarshal(blob, &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	return doc
}

func attributeValue(t *testing.T, doc document, traitType string) string {
	t.Helper()
	for _, attr := range doc.Attributes {
		if attr.TraitType == traitType {
			return attr.Value
		}
	}
	t.Fatalf("attribute %q missing", traitType)
	return ""
}

func TestTokenURI_EmptyWhenNoRecord(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)

	uri, err := r.synth.TokenURI(ctx, domain.RecordIDFromUint64(404))
	if err != nil {
		t.Fatalf("TokenURI() err=%v", err)
	}
	if uri != "" {
		t.Fatalf("TokenURI()=%q, want empty", uri)
	}
}

func TestTokenURI_OverridePrecedence(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	caller := addr(0x01)

	record := sampleRecord(caller)
	record.URI = "https://meta.example/doc.json?x=1&y=2"
	r.grant(t, id, caller, SelectorSetMetadata)
	if err := r.store.SetMetadata(ctx, caller, id, record); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}

	uri, err := r.synth.TokenURI(ctx, id)
	if err != nil {
		t.Fatalf("TokenURI() err=%v", err)
	}
	if uri != record.URI {
		t.Fatalf("TokenURI()=%q, want override verbatim", uri)
	}
}

func TestTokenURI_ConcreteScenario(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(1)
	alice := addr(0xa1)
	caller := addr(0x01)

	if err := r.regs.Create(ctx, domain.Registration{ID: id, Controller: alice, Source: "test"}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	r.grant(t, id, caller, SelectorSetMetadata)
	if err := r.store.SetMetadata(ctx, caller, id, domain.MetadataRecord{
		Name:             "IPRecord",
		Category:         domain.CategoryCopyright,
		Description:      "IPs all the way down.",
		RegistrationDate: 999999,
		Registrant:       alice,
	}); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}

	uri, err := r.synth.TokenURI(ctx, id)
	if err != nil {
		t.Fatalf("TokenURI() err=%v", err)
	}
	doc := decodeDocument(t, uri)

	if doc.Name != "IP Asset #0x1" {
		t.Fatalf("name=%q, want IP Asset #0x1", doc.Name)
	}
	if doc.Description != "IPs all the way down." {
		t.Fatalf("description=%q", doc.Description)
	}
	if got := attributeValue(t, doc, "Name"); got != "IPRecord" {
		t.Fatalf("Name=%q", got)
	}
	if got := attributeValue(t, doc, "Owner"); got != alice.Hex() {
		t.Fatalf("Owner=%q, want %q", got, alice.Hex())
	}
	if got := attributeValue(t, doc, "Category"); got != "Copyright" {
		t.Fatalf("Category=%q", got)
	}
	if got := attributeValue(t, doc, "Registrant"); got != alice.Hex() {
		t.Fatalf("Registrant=%q, want %q", got, alice.Hex())
	}
	wantHash := "0x" + strings.Repeat("0", 64)
	if got := attributeValue(t, doc, "Hash"); got != wantHash {
		t.Fatalf("Hash=%q, want %q", got, wantHash)
	}
	if got := attributeValue(t, doc, "Registration Date"); got != "999999" {
		t.Fatalf("Registration Date=%q", got)
	}
}

func TestTokenURI_Deterministic(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(9)
	caller := addr(0x01)

	r.grant(t, id, caller, SelectorSetMetadata)
	if err := r.store.SetMetadata(ctx, caller, id, sampleRecord(addr(0x0b))); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}

	first, err := r.synth.TokenURI(ctx, id)
	if err != nil {
		t.Fatalf("TokenURI() err=%v", err)
	}
	second, err := r.synth.TokenURI(ctx, id)
	if err != nil {
		t.Fatalf("TokenURI() err=%v", err)
	}
	if first != second {
		t.Fatalf("synthesis not deterministic:\n%q\n%q", first, second)
	}
}

func TestTokenURI_SingleFieldChangesSingleAttribute(t *testing.T) {
	newHash := domain.Hash{31: 0x42}

	cases := []struct {
		name   string
		trait  string
		want   string
		mutate func(t *testing.T, r *testResolver, caller domain.Address, id domain.RecordID)
	}{
		{
			name:  "name",
			trait: "Name",
			want:  "Renamed",
			mutate: func(t *testing.T, r *testResolver, caller domain.Address, id domain.RecordID) {
				r.grant(t, id, caller, SelectorSetName)
				if err := r.store.SetName(context.Background(), caller, id, "Renamed"); err != nil {
					t.Fatalf("SetName() err=%v", err)
				}
			},
		},
		{
			name:  "category",
			trait: "Category",
			want:  "Patent",
			mutate: func(t *testing.T, r *testResolver, caller domain.Address, id domain.RecordID) {
				r.grant(t, id, caller, SelectorSetCategory)
				if err := r.store.SetCategory(context.Background(), caller, id, domain.CategoryPatent); err != nil {
					t.Fatalf("SetCategory() err=%v", err)
				}
			},
		},
		{
			name:  "hash",
			trait: "Hash",
			want:  newHash.Hex(),
			mutate: func(t *testing.T, r *testResolver, caller domain.Address, id domain.RecordID) {
				r.grant(t, id, caller, SelectorSetHash)
				if err := r.store.SetHash(context.Background(), caller, id, newHash); err != nil {
					t.Fatalf("SetHash() err=%v", err)
				}
			},
		},
		{
			// No field selector covers the registration date; the bulk
			// write with one field changed pins the same property.
			name:  "registration date",
			trait: "Registration Date",
			want:  "123456",
			mutate: func(t *testing.T, r *testResolver, caller domain.Address, id domain.RecordID) {
				record := sampleRecord(addr(0x0b))
				record.RegistrationDate = 123456
				if err := r.store.SetMetadata(context.Background(), caller, id, record); err != nil {
					t.Fatalf("SetMetadata() err=%v", err)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			r := newTestResolver(t)
			id := domain.RecordIDFromUint64(9)
			caller := addr(0x01)

			r.grant(t, id, caller, SelectorSetMetadata)
			if err := r.store.SetMetadata(ctx, caller, id, sampleRecord(addr(0x0b))); err != nil {
				t.Fatalf("SetMetadata() err=%v", err)
			}

			before := decodeDocument(t, mustTokenURI(t, r, id))
			tc.mutate(t, r, caller, id)
			after := decodeDocument(t, mustTokenURI(t, r, id))

			if before.Description != after.Description {
				t.Fatalf("description changed unexpectedly: %q vs %q", before.Description, after.Description)
			}
			assertSingleAttributeChanged(t, before, after, tc.trait, tc.want)
		})
	}
}

func TestTokenURI_DescriptionChangesDocumentBodyOnly(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)
	id := domain.RecordIDFromUint64(9)
	caller := addr(0x01)

	r.grant(t, id, caller, SelectorSetMetadata)
	r.grant(t, id, caller, SelectorSetDescription)
	if err := r.store.SetMetadata(ctx, caller, id, sampleRecord(addr(0x0b))); err != nil {
		t.Fatalf("SetMetadata() err=%v", err)
	}

	before := decodeDocument(t, mustTokenURI(t, r, id))
	if err := r.store.SetDescription(ctx, caller, id, "revised description"); err != nil {
		t.Fatalf("SetDescription() err=%v", err)
	}
	after := decodeDocument(t, mustTokenURI(t, r, id))

	if after.Description != "revised description" {
		t.Fatalf("description=%q, want revised description", after.Description)
	}
	assertSingleAttributeChanged(t, before, after, "", "")
}

// assertSingleAttributeChanged verifies order and count are stable and
// only the named attribute (none when trait is empty) took a new value.
func assertSingleAttributeChanged(t *testing.T, before, after document, trait, want string) {
	t.Helper()
	if len(before.Attributes) != len(after.Attributes) {
		t.Fatalf("attribute count changed: %d vs %d", len(before.Attributes), len(after.Attributes))
	}
	for i := range before.Attributes {
		a, b := before.Attributes[i], after.Attributes[i]
		if a.TraitType != b.TraitType {
			t.Fatalf("attribute order changed at %d: %q vs %q", i, a.TraitType, b.TraitType)
		}
		if a.TraitType == trait {
			if b.Value != want {
				t.Fatalf("%s=%q, want %q", trait, b.Value, want)
			}
			if a.Value == b.Value {
				t.Fatalf("%s did not change from %q", trait, a.Value)
			}
			continue
		}
		if a.Value != b.Value {
			t.Fatalf("attribute %q changed unexpectedly: %q vs %q", a.TraitType, a.Value, b.Value)
		}
	}
}

func mustTokenURI(t *testing.T, r *testResolver, id domain.RecordID) string {
	t.Helper()
	uri, err := r.synth.TokenURI(context.Background(), id)
	if err != nil {
		t.Fatalf("TokenURI() err=%v", err)
	}
	return uri
}
