package domain

import (
	"github.com/shopspring/decimal"
)

// CartLineItem is one row of the cart. Its identity is the pair
// (ProductID, SelectedSize).
type CartLineItem struct {
	ProductID    ProductID `json:"product_id"`
	SelectedSize *string   `json:"selected_size,omitempty"`
	Quantity     int       `json:"quantity"`
	Product
}

// Subtotal is Price * Quantity.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartLineItem) clone() CartLineItem {
	i.SelectedSize = cloneSize(i.SelectedSize)
	i.Product = i.Product.clone()
	return i
}

// Cart is an ordered collection of line items. At most one item exists per
// identity pair and every item has Quantity >= 1.
//
// Mutating methods report whether the collection changed.
type Cart struct {
	Items []CartLineItem
}

// IndexOf returns the position of the item matching (id, size), or -1.
func (c *Cart) IndexOf(id ProductID, size *string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == id && sameSize(c.Items[i].SelectedSize, size) {
			return i
		}
	}
	return -1
}

// Add merges item into an existing line with the same identity, adding its
// quantity in place, or appends it. A merge that leaves the quantity at or
// below zero removes the line; a new item without a positive quantity is
// not added.
func (c *Cart) Add(item CartLineItem) bool {
	if idx := c.IndexOf(item.ProductID, item.SelectedSize); idx >= 0 {
		return c.adjust(idx, item.Quantity)
	}
	if item.Quantity <= 0 {
		return false
	}
	c.Items = append(c.Items, item.clone())
	return true
}

// Remove deletes the line matching (id, size). Absent lines are a no-op.
func (c *Cart) Remove(id ProductID, size *string) bool {
	idx := c.IndexOf(id, size)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// UpdateQuantity adds delta to the matching line's quantity. A result at or
// below zero removes the line. Absent lines and a zero delta are no-ops.
func (c *Cart) UpdateQuantity(id ProductID, size *string, delta int) bool {
	idx := c.IndexOf(id, size)
	if idx < 0 {
		return false
	}
	return c.adjust(idx, delta)
}

func (c *Cart) adjust(idx, delta int) bool {
	if delta == 0 {
		return false
	}
	next := c.Items[idx].Quantity + delta
	if next <= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		return true
	}
	c.Items[idx].Quantity = next
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() bool {
	if len(c.Items) == 0 {
		return false
	}
	c.Items = nil
	return true
}

// ItemCount is the sum of quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// TotalPrice is the sum of Price * Quantity.
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// FormattedTotal renders TotalPrice with two decimal places, e.g. "30.00".
func (c Cart) FormattedTotal() string {
	return c.TotalPrice().StringFixed(2)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c Cart) Clone() Cart {
	if c.Items == nil {
		return Cart{}
	}
	items := make([]CartLineItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = item.clone()
	}
	return Cart{Items: items}
}
