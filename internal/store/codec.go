package store

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/utafrali/storefront/internal/domain"
)

// Each slot is stored as a JSON array of its records, in collection order.

// EncodeCart serializes the cart slot.
func EncodeCart(c domain.Cart) ([]byte, error) {
	items := c.Items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return json.Marshal(items)
}

// DecodeCart parses a cart slot. Records are re-added one by one, so
// duplicate identities merge and non-positive quantities are dropped.
func DecodeCart(data []byte) (domain.Cart, error) {
	var items []domain.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	var c domain.Cart
	for _, item := range items {
		c.Add(item)
	}
	return c, nil
}

// EncodeWishlist serializes the wishlist slot.
func EncodeWishlist(w domain.Wishlist) ([]byte, error) {
	entries := w.Entries
	if entries == nil {
		entries = []domain.WishlistEntry{}
	}
	return json.Marshal(entries)
}

// DecodeWishlist parses a wishlist slot, keeping the first entry per product.
func DecodeWishlist(data []byte) (domain.Wishlist, error) {
	var entries []domain.WishlistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return domain.Wishlist{}, fmt.Errorf("decode wishlist: %w", err)
	}
	var w domain.Wishlist
	for _, e := range entries {
		w.Add(e)
	}
	return w, nil
}

// EncodeChange serializes the snapshot carried by ch.
func EncodeChange(ch Change) ([]byte, error) {
	switch ch.Slot {
	case domain.SlotCart:
		return EncodeCart(ch.Cart)
	case domain.SlotWishlist:
		return EncodeWishlist(ch.Wishlist)
	default:
		return nil, fmt.Errorf("unknown slot %q", ch.Slot)
	}
}
