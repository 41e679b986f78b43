package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineItem(id string, size *string, qty int, price int64) CartLineItem {
	return CartLineItem{
		ProductID:    ProductID(id),
		SelectedSize: size,
		Quantity:     qty,
		Product:      Product{Name: "Product " + id, Price: decimal.NewFromInt(price)},
	}
}

func ids(c Cart) []ProductID {
	out := make([]ProductID, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.ProductID)
	}
	return out
}

func TestCart_AddMergesSameIdentity(t *testing.T) {
	var c Cart
	assert.True(t, c.Add(lineItem("1", Size("M"), 2, 10)))
	assert.True(t, c.Add(lineItem("1", Size("M"), 1, 10)))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "30.00", c.FormattedTotal())
}

func TestCart_SizeIsPartOfIdentity(t *testing.T) {
	var c Cart
	c.Add(lineItem("1", nil, 1, 5))
	c.Add(lineItem("1", Size(""), 1, 5))
	c.Add(lineItem("1", Size("M"), 1, 5))
	c.Add(lineItem("1", Size("L"), 1, 5))

	assert.Len(t, c.Items, 4)
	assert.Equal(t, 0, c.IndexOf("1", nil))
	assert.Equal(t, 1, c.IndexOf("1", Size("")))
	assert.Equal(t, 2, c.IndexOf("1", Size("M")))
}

func TestCart_MergeKeepsPosition(t *testing.T) {
	var c Cart
	c.Add(lineItem("A", nil, 1, 1))
	c.Add(lineItem("B", nil, 1, 1))
	c.Add(lineItem("C", nil, 1, 1))
	c.Add(lineItem("B", nil, 4, 1))

	assert.Equal(t, []ProductID{"A", "B", "C"}, ids(c))
	assert.Equal(t, 5, c.Items[1].Quantity)
}

func TestCart_MergeKeepsFirstPayload(t *testing.T) {
	var c Cart
	first := lineItem("1", nil, 1, 10)
	second := lineItem("1", nil, 1, 99)
	second.Name = "renamed"
	c.Add(first)
	c.Add(second)

	assert.Equal(t, "Product 1", c.Items[0].Name)
	assert.True(t, c.Items[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestCart_AddNonPositiveQuantity(t *testing.T) {
	var c Cart
	assert.False(t, c.Add(lineItem("1", nil, 0, 1)))
	assert.False(t, c.Add(lineItem("1", nil, -2, 1)))
	assert.Empty(t, c.Items)

	c.Add(lineItem("2", nil, 2, 1))
	assert.True(t, c.Add(lineItem("2", nil, -5, 1)))
	assert.Empty(t, c.Items)
}

func TestCart_UpdateQuantity(t *testing.T) {
	var c Cart
	c.Add(lineItem("1", Size("M"), 2, 10))

	assert.True(t, c.UpdateQuantity("1", Size("M"), 3))
	assert.Equal(t, 5, c.Items[0].Quantity)

	assert.True(t, c.UpdateQuantity("1", Size("M"), -1))
	assert.Equal(t, 4, c.Items[0].Quantity)

	assert.False(t, c.UpdateQuantity("1", Size("M"), 0))
	assert.False(t, c.UpdateQuantity("1", Size("L"), 1))
	assert.False(t, c.UpdateQuantity("1", nil, 1))
}

func TestCart_UpdateQuantityFloorRemoves(t *testing.T) {
	for _, delta := range []int{-1, -2, -100} {
		var c Cart
		c.Add(lineItem("keep", nil, 1, 1))
		c.Add(lineItem("1", Size("M"), 1, 1))

		before := len(c.Items)
		assert.True(t, c.UpdateQuantity("1", Size("M"), delta))
		assert.Len(t, c.Items, before-1)
		assert.Equal(t, -1, c.IndexOf("1", Size("M")))
	}
}

func TestCart_Remove(t *testing.T) {
	var c Cart
	assert.False(t, c.Remove("99", Size("XL")))
	assert.Empty(t, c.Items)

	c.Add(lineItem("1", nil, 1, 1))
	c.Add(lineItem("2", nil, 1, 1))
	c.Add(lineItem("3", nil, 1, 1))

	assert.False(t, c.Remove("2", Size("")))
	assert.True(t, c.Remove("2", nil))
	assert.Equal(t, []ProductID{"1", "3"}, ids(c))
}

func TestCart_Clear(t *testing.T) {
	var c Cart
	assert.False(t, c.Clear())
	c.Add(lineItem("1", nil, 1, 1))
	assert.True(t, c.Clear())
	assert.Empty(t, c.Items)
	assert.Equal(t, "0.00", c.FormattedTotal())
}

func TestCart_Totals(t *testing.T) {
	var c Cart
	c.Add(lineItem("1", nil, 2, 10))
	c.Add(CartLineItem{ProductID: "2", Quantity: 3, Product: Product{Price: decimal.RequireFromString("0.10")}})
	c.Add(CartLineItem{ProductID: "3", Quantity: 1, Product: Product{Price: decimal.RequireFromString("19.999")}})

	assert.Equal(t, 6, c.ItemCount())
	assert.True(t, c.TotalPrice().Equal(decimal.RequireFromString("40.299")))
	assert.Equal(t, "40.30", c.FormattedTotal())

	c.UpdateQuantity("1", nil, -1)
	assert.Equal(t, 5, c.ItemCount())
	assert.Equal(t, "30.30", c.FormattedTotal())
}

func TestCart_CloneIsDeep(t *testing.T) {
	var c Cart
	item := lineItem("1", Size("M"), 1, 1)
	item.Sizes = []string{"S", "M"}
	c.Add(item)

	cp := c.Clone()
	*cp.Items[0].SelectedSize = "L"
	cp.Items[0].Sizes[0] = "XS"
	cp.Items[0].Quantity = 9

	assert.Equal(t, "M", *c.Items[0].SelectedSize)
	assert.Equal(t, "S", c.Items[0].Sizes[0])
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestCart_AddCopiesCallerItem(t *testing.T) {
	var c Cart
	size := "M"
	c.Add(CartLineItem{ProductID: "1", SelectedSize: &size, Quantity: 1})
	size = "XL"

	assert.Equal(t, 0, c.IndexOf("1", Size("M")))
}
