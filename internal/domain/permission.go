package domain

import (
	"errors"
	"fmt"
	"strings"
)

// PermissionLevel is the stored decision for one permission entry.
// Abstain entries fall through to the next wildcard tier during
// resolution; the final fallback is deny.
type PermissionLevel uint8

const (
	PermissionAbstain PermissionLevel = iota
	PermissionAllow
	PermissionDeny
)

// SelectorWildcard matches every action selector in a permission entry.
const SelectorWildcard = "*"

func (l PermissionLevel) String() string {
	switch l {
	case PermissionAbstain:
		return "abstain"
	case PermissionAllow:
		return "allow"
	case PermissionDeny:
		return "deny"
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

func ParsePermissionLevel(raw string) (PermissionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "abstain":
		return PermissionAbstain, nil
	case "allow":
		return PermissionAllow, nil
	case "deny":
		return PermissionDeny, nil
	}
	return 0, fmt.Errorf("unsupported permission level %q", raw)
}

// Permission grants or denies one principal one action selector against
// one resource for one record. A zero Resource matches any resource and
// SelectorWildcard matches any selector.
type Permission struct {
	ID        RecordID
	Principal Address
	Resource  Address
	Selector  string
	Level     PermissionLevel
}

func (p Permission) Validate() error {
	if p.ID.IsZero() {
		return errors.New("record id is required")
	}
	if p.Principal.IsZero() {
		return errors.New("principal is required")
	}
	if strings.TrimSpace(p.Selector) == "" {
		return errors.New("selector is required")
	}
	if p.Level > PermissionDeny {
		return fmt.Errorf("unsupported permission level %d", uint8(p.Level))
	}
	return nil
}
