package cart

import (
	"testing"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
)

func line(productID uint, size, color string, qty int, price float64) model.CartLineItem {
	return model.CartLineItem{
		ProductID:     productID,
		SelectedSize:  size,
		SelectedColor: color,
		Quantity:      qty,
		Price:         price,
		Name:          "Product",
		Images:        []string{"https://cdn.example.com/p.jpg"},
	}
}

func TestAddLine_IncrementsMatchingKey(t *testing.T) {
	items := AddLine(nil, line(1, "M", "Black", 5, 10))
	assert.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity, "new lines always start at one")

	items = AddLine(items, line(1, "M", "Black", 1, 10))
	assert.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	items = AddLine(items, line(1, "L", "Black", 1, 10))
	assert.Len(t, items, 2)
	assert.Equal(t, "L", items[1].SelectedSize)
}

func TestAddLine_DoesNotModifyInput(t *testing.T) {
	original := []model.CartLineItem{line(1, "M", "Black", 1, 10)}
	_ = AddLine(original, line(1, "M", "Black", 1, 10))
	assert.Equal(t, 1, original[0].Quantity)
}

func TestSetQuantity(t *testing.T) {
	items := []model.CartLineItem{line(1, "M", "Black", 1, 10), line(2, "N/A", "N/A", 1, 5)}

	items = SetQuantity(items, model.LineKey{ProductID: 1, Size: "M", Color: "Black"}, 4)
	assert.Equal(t, 4, items[0].Quantity)

	unchanged := SetQuantity(items, model.LineKey{ProductID: 9}, 3)
	assert.Equal(t, items, unchanged)

	items = SetQuantity(items, model.LineKey{ProductID: 2, Size: "N/A", Color: "N/A"}, 0)
	assert.Len(t, items, 1)

	items = SetQuantity(items, model.LineKey{ProductID: 1, Size: "M", Color: "Black"}, -1)
	assert.Empty(t, items)
}

func TestRemoveLine_MissingKey(t *testing.T) {
	items := []model.CartLineItem{line(1, "M", "Black", 2, 10)}
	out := RemoveLine(items, model.LineKey{ProductID: 1, Size: "S", Color: "Black"})
	assert.Equal(t, items, out)
}

func TestCountAndTotal(t *testing.T) {
	items := []model.CartLineItem{
		line(1, "M", "Black", 3, 19.99),
		line(2, "N/A", "N/A", 2, 0.1),
	}
	assert.Equal(t, 5, Count(items))
	assert.Equal(t, 60.17, Total(items))

	assert.Equal(t, 0, Count(nil))
	assert.Equal(t, 0.0, Total(nil))
}

func TestClone_DeepCopiesImages(t *testing.T) {
	items := []model.CartLineItem{line(1, "M", "Black", 1, 10)}
	cloned := Clone(items)
	cloned[0].Images[0] = "changed"
	assert.Equal(t, "https://cdn.example.com/p.jpg", items[0].Images[0])
	assert.Nil(t, Clone(nil))
}
