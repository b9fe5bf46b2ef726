package domain

import (
	"fmt"
	"strings"
)

// Category classifies an intellectual-property record. The set is closed;
// storage encodes the numeric value, documents render the label.
type Category uint8

const (
	CategoryCopyright Category = iota
	CategoryPatent
	CategoryTrademark
	CategoryTradeSecret
)

// Label returns the human-readable name rendered into synthesized
// documents. An unmapped value is a data-model invariant violation, not a
// recoverable condition.
func (c Category) Label() string {
	switch c {
	case CategoryCopyright:
		return "Copyright"
	case CategoryPatent:
		return "Patent"
	case CategoryTrademark:
		return "Trademark"
	case CategoryTradeSecret:
		return "Trade Secret"
	}
	panic(fmt.Sprintf("unmapped category %d", uint8(c)))
}

func (c Category) String() string { return c.Label() }

// ParseCategory resolves a label (case-insensitive) back to its category.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "copyright":
		return CategoryCopyright, nil
	case "patent":
		return CategoryPatent, nil
	case "trademark":
		return CategoryTrademark, nil
	case "trade secret", "trade_secret":
		return CategoryTradeSecret, nil
	}
	return 0, fmt.Errorf("unsupported category %q", raw)
}

// ValidCategory reports whether the numeric value is a member of the set.
func ValidCategory(v uint8) bool {
	return v <= uint8(CategoryTradeSecret)
}
