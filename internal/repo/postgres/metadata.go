package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chainworks-labs/ipmeta/internal/domain"
)

type MetadataStore struct {
	db DB
}

func NewMetadataStore(db DB) *MetadataStore {
	if db == nil {
		return nil
	}
	return &MetadataStore{db: db}
}

func (s *MetadataStore) Get(ctx context.Context, id domain.RecordID) (domain.MetadataRecord, error) {
	if s == nil || s.db == nil {
		return domain.MetadataRecord{}, fmt.Errorf("metadata store not initialized")
	}
	var (
		name             string
		category         int16
		description      string
		hashHex          string
		registrationDate int64
		registrantHex    string
		tokenURI         string
	)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, category, description, hash, registration_date, registrant, token_uri
		 FROM metadata_records
		 WHERE record_id = $1`,
		hexKey(id[:]),
	)
	if err := row.Scan(&name, &category, &description, &hashHex, &registrationDate, &registrantHex, &tokenURI); err != nil {
		return domain.MetadataRecord{}, handleNotFound(err)
	}

	hash, err := domain.ParseHash(hashHex)
	if err != nil {
		return domain.MetadataRecord{}, fmt.Errorf("decode hash: %w", err)
	}
	registrant, err := domain.ParseAddress(registrantHex)
	if err != nil {
		return domain.MetadataRecord{}, fmt.Errorf("decode registrant: %w", err)
	}
	if !domain.ValidCategory(uint8(category)) {
		return domain.MetadataRecord{}, fmt.Errorf("decode category: value %d out of range", category)
	}

	return domain.MetadataRecord{
		Name:             name,
		Category:         domain.Category(category),
		Description:      description,
		Hash:             hash,
		RegistrationDate: uint64(registrationDate),
		Registrant:       registrant,
		URI:              tokenURI,
	}, nil
}

func (s *MetadataStore) Put(ctx context.Context, id domain.RecordID, record domain.MetadataRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("metadata store not initialized")
	}
	if id.IsZero() {
		return fmt.Errorf("record id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO metadata_records (
			record_id,
			name,
			category,
			description,
			hash,
			registration_date,
			registrant,
			token_uri,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (record_id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			hash = EXCLUDED.hash,
			registration_date = EXCLUDED.registration_date,
			registrant = EXCLUDED.registrant,
			token_uri = EXCLUDED.token_uri,
			updated_at = EXCLUDED.updated_at`,
		hexKey(id[:]),
		record.Name,
		int16(record.Category),
		record.Description,
		record.Hash.Hex(),
		int64(record.RegistrationDate),
		record.Registrant.Hex(),
		record.URI,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert metadata record: %w", err)
	}
	return nil
}
