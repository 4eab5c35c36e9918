package cart

import (
	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// Clone copies lines, including each line's image slice.
func Clone(items []model.CartLineItem) []model.CartLineItem {
	if items == nil {
		return nil
	}
	out := make([]model.CartLineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Images != nil {
			out[i].Images = append([]string(nil), item.Images...)
		}
	}
	return out
}

func indexOf(items []model.CartLineItem, key model.LineKey) int {
	for i := range items {
		if items[i].Key() == key {
			return i
		}
	}
	return -1
}

// AddLine increments the quantity of the line sharing line's key, or appends
// line with quantity 1.
func AddLine(items []model.CartLineItem, line model.CartLineItem) []model.CartLineItem {
	out := Clone(items)
	if i := indexOf(out, line.Key()); i >= 0 {
		out[i].Quantity++
		return out
	}
	line.Quantity = 1
	line.Images = append([]string(nil), line.Images...)
	return append(out, line)
}

// RemoveLine drops the line with key. A missing key leaves the cart as is.
func RemoveLine(items []model.CartLineItem, key model.LineKey) []model.CartLineItem {
	out := make([]model.CartLineItem, 0, len(items))
	for _, item := range Clone(items) {
		if item.Key() != key {
			out = append(out, item)
		}
	}
	return out
}

// SetQuantity overwrites the quantity of the line with key; quantity <= 0 removes it.
func SetQuantity(items []model.CartLineItem, key model.LineKey, quantity int) []model.CartLineItem {
	if quantity <= 0 {
		return RemoveLine(items, key)
	}
	out := Clone(items)
	if i := indexOf(out, key); i >= 0 {
		out[i].Quantity = quantity
	}
	return out
}

// Count is the sum of quantities.
func Count(items []model.CartLineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Total is the sum of price x quantity, rounded to cents.
func Total(items []model.CartLineItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum.Round(2).InexactFloat64()
}
