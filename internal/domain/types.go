package domain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RecordID is the opaque 256-bit identifier naming one metadata-bearing
// record. The zero value is not a valid identifier.
type RecordID [32]byte

// Address is a 160-bit account identifier. The zero value means
// "unset" or "unregistered".
type Address [20]byte

// Hash is a 256-bit content fingerprint. All-zero means "unset" but is
// still rendered in full when a document is synthesized.
type Hash [32]byte

var ZeroAddress = Address{}

// RecordIDFromUint64 builds an identifier from a small integer.
func RecordIDFromUint64(v uint64) RecordID {
	var id RecordID
	for i := 0; i < 8; i++ {
		id[31-i] = byte(v >> (8 * i))
	}
	return id
}

// ParseRecordID accepts a 0x-prefixed hex string (up to 64 digits) or a
// decimal numeral.
func ParseRecordID(raw string) (RecordID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RecordID{}, errors.New("record id is required")
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		digits := raw[2:]
		if digits == "" || len(digits) > 64 {
			return RecordID{}, fmt.Errorf("invalid record id %q", raw)
		}
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		buf, err := hex.DecodeString(digits)
		if err != nil {
			return RecordID{}, fmt.Errorf("invalid record id %q", raw)
		}
		var id RecordID
		copy(id[32-len(buf):], buf)
		return id, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return RecordID{}, fmt.Errorf("invalid record id %q", raw)
	}
	return RecordIDFromUint64(v), nil
}

// Hex renders the identifier as 0x-prefixed minimal lowercase hex, the
// form used in synthesized document titles.
func (id RecordID) Hex() string {
	start := 0
	for start < 31 && id[start] == 0 {
		start++
	}
	out := fmt.Sprintf("%x", id[start])
	for _, b := range id[start+1:] {
		out += fmt.Sprintf("%02x", b)
	}
	return "0x" + out
}

func (id RecordID) String() string { return id.Hex() }

func (id RecordID) IsZero() bool { return id == RecordID{} }

// ParseAddress accepts a 0x-prefixed fixed-width hex string.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return Address{}, fmt.Errorf("invalid address %q", raw)
	}
	buf, err := hex.DecodeString(raw[2:])
	if err != nil || len(buf) != 20 {
		return Address{}, fmt.Errorf("invalid address %q", raw)
	}
	var addr Address
	copy(addr[:], buf)
	return addr, nil
}

// Hex renders the address as 0x plus 40 lowercase hex digits.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

func (a Address) IsZero() bool { return a == Address{} }

// ParseHash accepts a 0x-prefixed 64-digit hex string.
func ParseHash(raw string) (Hash, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return Hash{}, fmt.Errorf("invalid hash %q", raw)
	}
	buf, err := hex.DecodeString(raw[2:])
	if err != nil || len(buf) != 32 {
		return Hash{}, fmt.Errorf("invalid hash %q", raw)
	}
	var h Hash
	copy(h[:], buf)
	return h, nil
}

// Hex renders the digest as 0x plus 64 lowercase hex digits, the
// all-zero case included.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) IsZero() bool { return h == Hash{} }
