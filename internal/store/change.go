package store

import "github.com/utafrali/storefront/internal/domain"

// Origin tells subscribers where a change came from.
type Origin int

const (
	// OriginLocal is a mutation issued through this Store.
	OriginLocal Origin = iota
	// OriginExternal is a wholesale replacement with state another instance
	// already persisted.
	OriginExternal
)

func (o Origin) String() string {
	if o == OriginExternal {
		return "external"
	}
	return "local"
}

// Change describes the state of one slot right after a mutation. Only the
// field matching Slot is populated. Snapshots are copies and may be retained.
type Change struct {
	Slot     domain.Slot
	Version  uint64
	Origin   Origin
	Cart     domain.Cart
	Wishlist domain.Wishlist
}

// Subscriber receives changes in mutation order. It runs while the store's
// write lock is held, so it must not block or call back into the Store.
type Subscriber func(Change)
