package domain

import (
	"errors"
	"strings"
)

// MetadataRecord is the structured metadata stored per record identifier.
// The zero value means "no metadata stored"; a record springs into
// existence on the first successful write and is never deleted.
type MetadataRecord struct {
	Name             string
	Category         Category
	Description      string
	Hash             Hash
	RegistrationDate uint64
	Registrant       Address
	URI              string
}

// IsZero reports whether no metadata has been stored.
func (r MetadataRecord) IsZero() bool {
	return r == MetadataRecord{}
}

// Validate applies to bulk writes, which must carry the full record.
// Field-level setters may leave other fields zero.
func (r MetadataRecord) Validate() error {
	if !ValidCategory(uint8(r.Category)) {
		return errors.New("category out of range")
	}
	if r.Registrant.IsZero() {
		return errors.New("registrant is required")
	}
	return nil
}

// Registration is the directory entry binding a record identifier to its
// current controlling account. Ownership is always read live from here,
// never copied into the metadata record.
type Registration struct {
	ID         RecordID
	Controller Address
	Source     string
}

func (r Registration) Validate() error {
	if r.ID.IsZero() {
		return errors.New("record id is required")
	}
	if r.Controller.IsZero() {
		return errors.New("controller is required")
	}
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("source is required")
	}
	return nil
}
