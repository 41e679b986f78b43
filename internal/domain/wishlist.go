package domain

// WishlistEntry is a saved product. Its identity is ProductID alone; the
// size is a preference that may be set later.
type WishlistEntry struct {
	ProductID    ProductID `json:"product_id"`
	SelectedSize *string   `json:"selected_size,omitempty"`
	Product
}

func (e WishlistEntry) clone() WishlistEntry {
	e.SelectedSize = cloneSize(e.SelectedSize)
	e.Product = e.Product.clone()
	return e
}

// Wishlist is an ordered collection holding at most one entry per product.
type Wishlist struct {
	Entries []WishlistEntry
}

// IndexOf returns the position of the entry for id, or -1.
func (w *Wishlist) IndexOf(id ProductID) int {
	for i := range w.Entries {
		if w.Entries[i].ProductID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is on the wishlist.
func (w Wishlist) Contains(id ProductID) bool {
	return w.IndexOf(id) >= 0
}

// Find returns a copy of the entry for id.
func (w Wishlist) Find(id ProductID) (WishlistEntry, bool) {
	idx := w.IndexOf(id)
	if idx < 0 {
		return WishlistEntry{}, false
	}
	return w.Entries[idx].clone(), true
}

// Add appends entry unless the product is already present, in which case
// the existing entry is kept untouched.
func (w *Wishlist) Add(entry WishlistEntry) bool {
	if w.IndexOf(entry.ProductID) >= 0 {
		return false
	}
	w.Entries = append(w.Entries, entry.clone())
	return true
}

// Remove deletes the entry for id. Absent entries are a no-op.
func (w *Wishlist) Remove(id ProductID) bool {
	idx := w.IndexOf(id)
	if idx < 0 {
		return false
	}
	w.Entries = append(w.Entries[:idx], w.Entries[idx+1:]...)
	return true
}

// SetSize sets the size preference of the entry for id. A nil size clears
// it. Absent entries are a no-op.
func (w *Wishlist) SetSize(id ProductID, size *string) bool {
	idx := w.IndexOf(id)
	if idx < 0 || sameSize(w.Entries[idx].SelectedSize, size) {
		return false
	}
	w.Entries[idx].SelectedSize = cloneSize(size)
	return true
}

// Len is the number of entries.
func (w Wishlist) Len() int {
	return len(w.Entries)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (w Wishlist) Clone() Wishlist {
	if w.Entries == nil {
		return Wishlist{}
	}
	entries := make([]WishlistEntry, len(w.Entries))
	for i, e := range w.Entries {
		entries[i] = e.clone()
	}
	return Wishlist{Entries: entries}
}
