package store

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// Store holds the cart and wishlist of one session. Every operation is
// atomic; operations that change state notify subscribers, no-ops do not.
//
// The Store does not validate input. Callers are expected to reject empty
// product ids and non-positive quantities before calling it.
type Store struct {
	mu       sync.RWMutex
	cart     domain.Cart
	wishlist domain.Wishlist
	versions map[domain.Slot]uint64

	subs   map[int]Subscriber
	nextID int
}

// New returns an empty Store.
func New() *Store {
	return NewWithState(domain.Cart{}, domain.Wishlist{})
}

// NewWithState returns a Store seeded with previously persisted state.
func NewWithState(cart domain.Cart, wishlist domain.Wishlist) *Store {
	return &Store{
		cart:     cart.Clone(),
		wishlist: wishlist.Clone(),
		versions: make(map[domain.Slot]uint64, len(domain.Slots)),
		subs:     make(map[int]Subscriber),
	}
}

// Subscribe registers fn for future changes and returns a func that
// removes it.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify must be called with s.mu held for writing.
func (s *Store) notify(slot domain.Slot, origin Origin) {
	s.versions[slot]++
	if len(s.subs) == 0 {
		return
	}

	ch := Change{Slot: slot, Version: s.versions[slot], Origin: origin}
	switch slot {
	case domain.SlotCart:
		ch.Cart = s.cart.Clone()
	case domain.SlotWishlist:
		ch.Wishlist = s.wishlist.Clone()
	}
	for _, fn := range s.subs {
		fn(ch)
	}
}

// EditCart applies fn to the cart. fn reports whether it changed the cart.
// The returned copy and version are read under the same lock as the edit,
// so they are exactly the state fn produced.
func (s *Store) EditCart(fn func(*domain.Cart) bool) (changed bool, cart domain.Cart, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if changed = fn(&s.cart); changed {
		s.notify(domain.SlotCart, OriginLocal)
	}
	return changed, s.cart.Clone(), s.versions[domain.SlotCart]
}

// EditWishlist is EditCart for the wishlist.
func (s *Store) EditWishlist(fn func(*domain.Wishlist) bool) (changed bool, wishlist domain.Wishlist, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if changed = fn(&s.wishlist); changed {
		s.notify(domain.SlotWishlist, OriginLocal)
	}
	return changed, s.wishlist.Clone(), s.versions[domain.SlotWishlist]
}

func (s *Store) mutateCart(fn func(*domain.Cart) bool) bool {
	changed, _, _ := s.EditCart(fn)
	return changed
}

func (s *Store) mutateWishlist(fn func(*domain.Wishlist) bool) bool {
	changed, _, _ := s.EditWishlist(fn)
	return changed
}

// AddToCart merges item into the line with the same (product, size) or
// appends it. It reports whether the cart changed.
func (s *Store) AddToCart(item domain.CartLineItem) bool {
	return s.mutateCart(func(c *domain.Cart) bool { return c.Add(item) })
}

// RemoveFromCart removes the line for (id, size) if present.
func (s *Store) RemoveFromCart(id domain.ProductID, size *string) bool {
	return s.mutateCart(func(c *domain.Cart) bool { return c.Remove(id, size) })
}

// UpdateCartQuantity adds delta to the line for (id, size), removing the
// line when its quantity would drop to zero or below.
func (s *Store) UpdateCartQuantity(id domain.ProductID, size *string, delta int) bool {
	return s.mutateCart(func(c *domain.Cart) bool { return c.UpdateQuantity(id, size, delta) })
}

// ClearCart empties the cart.
func (s *Store) ClearCart() bool {
	return s.mutateCart(func(c *domain.Cart) bool { return c.Clear() })
}

// AddToWishlist adds entry unless its product is already saved.
func (s *Store) AddToWishlist(entry domain.WishlistEntry) bool {
	return s.mutateWishlist(func(w *domain.Wishlist) bool { return w.Add(entry) })
}

// RemoveFromWishlist removes the entry for id if present.
func (s *Store) RemoveFromWishlist(id domain.ProductID) bool {
	return s.mutateWishlist(func(w *domain.Wishlist) bool { return w.Remove(id) })
}

// UpdateWishlistItemSize sets the size preference of the entry for id.
func (s *Store) UpdateWishlistItemSize(id domain.ProductID, size *string) bool {
	return s.mutateWishlist(func(w *domain.Wishlist) bool { return w.SetSize(id, size) })
}

// IsInWishlist reports whether id is saved.
func (s *Store) IsInWishlist(id domain.ProductID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wishlist.Contains(id)
}

// Cart returns a copy of the cart.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Wishlist returns a copy of the wishlist.
func (s *Store) Wishlist() domain.Wishlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wishlist.Clone()
}

// ItemCount is the sum of cart quantities.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.ItemCount()
}

// TotalPrice is the sum of price * quantity over the cart.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalPrice()
}

// FormattedTotal is TotalPrice with two decimals.
func (s *Store) FormattedTotal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.FormattedTotal()
}

// Version returns how many changes slot has seen since the Store was built.
func (s *Store) Version(slot domain.Slot) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[slot]
}

// ReplaceCart swaps the whole cart for state loaded from elsewhere.
// Subscribers see the change with OriginExternal.
func (s *Store) ReplaceCart(cart domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart.Clone()
	s.notify(domain.SlotCart, OriginExternal)
}

// ReplaceWishlist swaps the whole wishlist for state loaded from elsewhere.
func (s *Store) ReplaceWishlist(wishlist domain.Wishlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlist = wishlist.Clone()
	s.notify(domain.SlotWishlist, OriginExternal)
}
