package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chainworks-labs/ipmeta/internal/domain"
)

// DataURIPrefix declares the media type of synthesized documents.
const DataURIPrefix = "data:application/json;base64,"

// Synthesizer produces the externally served descriptor document for a
// record. An explicit URI override wins verbatim; otherwise the document
// is generated on the fly from the stored fields and the live owner.
type Synthesizer struct {
	store *Store
}

func NewSynthesizer(store *Store) *Synthesizer {
	if store == nil {
		return nil
	}
	return &Synthesizer{store: store}
}

type documentAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type document struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Attributes  []documentAttribute `json:"attributes"`
}

// TokenURI returns the descriptor for id: empty when no metadata is
// stored, the stored override verbatim when set, otherwise a
// deterministic base64 JSON data URI.
func (s *Synthesizer) TokenURI(ctx context.Context, id domain.RecordID) (string, error) {
	if s == nil || s.store == nil {
		return "", fmt.Errorf("synthesizer not initialized")
	}
	record, err := s.store.record(ctx, id)
	if err != nil {
		return "", err
	}
	if record.IsZero() {
		return "", nil
	}
	if record.URI != "" {
		return record.URI, nil
	}

	owner, err := s.store.Owner(ctx, id)
	if err != nil {
		return "", err
	}
	return synthesize(id, record, owner)
}

func synthesize(id domain.RecordID, record domain.MetadataRecord, owner domain.Address) (string, error) {
	doc := document{
		Name:        "IP Asset #" + id.Hex(),
		Description: record.Description,
		Attributes: []documentAttribute{
			{TraitType: "Name", Value: record.Name},
			{TraitType: "Owner", Value: owner.Hex()},
			{TraitType: "Category", Value: record.Category.Label()},
			{TraitType: "Registrant", Value: record.Registrant.Hex()},
			{TraitType: "Hash", Value: record.Hash.Hex()},
			{TraitType: "Registration Date", Value: strconv.FormatUint(record.RegistrationDate, 10)},
		},
	}
	blob, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(blob), nil
}
