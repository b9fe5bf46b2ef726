package domain

import "testing"

func TestCategoryLabels(t *testing.T) {
	cases := map[Category]string{
		CategoryCopyright:   "Copyright",
		CategoryPatent:      "Patent",
		CategoryTrademark:   "Trademark",
		CategoryTradeSecret: "Trade Secret",
	}
	for category, want := range cases {
		if got := category.Label(); got != want {
			t.Fatalf("Label(%d)=%q, want %q", uint8(category), got, want)
		}
		parsed, err := ParseCategory(want)
		if err != nil {
			t.Fatalf("ParseCategory(%q) err=%v", want, err)
		}
		if parsed != category {
			t.Fatalf("ParseCategory(%q)=%d, want %d", want, uint8(parsed), uint8(category))
		}
	}
}

func TestCategoryLabel_PanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	_ = Category(200).Label()
}

func TestParseCategory_Invalid(t *testing.T) {
	if _, err := ParseCategory("franchise"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMetadataRecordValidate(t *testing.T) {
	registrant, err := ParseAddress("0x00000000000000000000000000000000000000a1")
	if err != nil {
		t.Fatalf("ParseAddress() err=%v", err)
	}
	record := MetadataRecord{Name: "IPRecord", Category: CategoryCopyright, Registrant: registrant}
	if err := record.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	if err := (MetadataRecord{Name: "x"}).Validate(); err == nil {
		t.Fatalf("expected registrant error")
	}
	bad := record
	bad.Category = Category(99)
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected category error")
	}
}
