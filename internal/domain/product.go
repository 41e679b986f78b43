package domain

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// ProductID identifies a catalog product. The storefront front end sends
// numeric ids, so both 1 and "1" decode to the same ProductID.
type ProductID string

func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("product id must be a string or number: %w", err)
		}
		*id = ProductID(n.String())
		return nil
	}
}

// Slot names one independently persisted collection of a session.
type Slot string

const (
	SlotCart     Slot = "cart"
	SlotWishlist Slot = "wishlist"
)

// Slots lists every slot in load order.
var Slots = []Slot{SlotCart, SlotWishlist}

func (s Slot) Valid() bool {
	return s == SlotCart || s == SlotWishlist
}

// Product is the display payload copied from the catalog when an item is
// added. It is carried as-is and never refreshed.
type Product struct {
	Name       string          `json:"name,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image,omitempty"`
	Category   string          `json:"category,omitempty"`
	Rating     float64         `json:"rating,omitempty"`
	Sizes      []string        `json:"sizes,omitempty"`
	InStock    *bool           `json:"in_stock,omitempty"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

func (p Product) clone() Product {
	p.Sizes = slices.Clone(p.Sizes)
	p.Attributes = maps.Clone(p.Attributes)
	if p.InStock != nil {
		v := *p.InStock
		p.InStock = &v
	}
	return p
}

// Size returns a pointer to a copy of s, for building items with a size.
func Size(s string) *string {
	return &s
}

// sameSize treats nil as its own variant, distinct from every string
// including "".
func sameSize(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneSize(s *string) *string {
	if s == nil {
		return nil
	}
	return Size(*s)
}

// SizeLabel renders a size for logs and events.
func SizeLabel(s *string) string {
	if s == nil {
		return "<none>"
	}
	return fmt.Sprintf("%q", *s)
}
