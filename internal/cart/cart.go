package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SchemaVersion tags persisted carts; anything else loads as an empty cart.
const SchemaVersion = 1

var newLineID = func() string { return ulid.Make().String() }

// Line is one product variant in the cart. Amounts are whole DZD.
type Line struct {
	ID        string    `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Size      *string   `json:"size,omitempty"`
	Color     *string   `json:"color,omitempty"`
}

// LineTotal is unitPrice x quantity.
func (l Line) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Promo is the single promo code attached to a cart. Discount is the amount
// computed when the code was applied.
type Promo struct {
	Code        string    `json:"code"`
	AffiliateID uuid.UUID `json:"affiliate_id"`
	Discount    int64     `json:"discount"`
}

// Cart is the shopper's basket for one session.
type Cart struct {
	Version int    `json:"v"`
	Lines   []Line `json:"lines"`
	Promo   *Promo `json:"promo,omitempty"`
}

// Product is the catalog data needed to add a line.
type Product struct {
	ID        uuid.UUID
	Title     string
	UnitPrice int64
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{Version: SchemaVersion, Lines: []Line{}}
}

// AddLine merges into the line with the same (product, size, color) or
// appends a new one. quantity <= 0 counts as 1.
func (c *Cart) AddLine(product Product, quantity int, size, color *string) Line {
	if quantity <= 0 {
		quantity = 1
	}
	size = normalizeVariant(size)
	color = normalizeVariant(color)

	for i := range c.Lines {
		line := &c.Lines[i]
		if line.ProductID == product.ID && sameVariant(line.Size, size) && sameVariant(line.Color, color) {
			line.Quantity += quantity
			return *line
		}
	}

	line := Line{
		ID:        newLineID(),
		ProductID: product.ID,
		Title:     product.Title,
		UnitPrice: product.UnitPrice,
		Quantity:  quantity,
		Size:      size,
		Color:     color,
	}
	c.Lines = append(c.Lines, line)
	return line
}

// SetQuantity updates a line; quantity <= 0 removes it. It reports whether
// the line existed.
func (c *Cart) SetQuantity(lineID string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveLine(lineID)
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

// RemoveLine drops a line. Removing an unknown line is a no-op.
func (c *Cart) RemoveLine(lineID string) bool {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart and drops any promo.
func (c *Cart) Clear() {
	c.Lines = []Line{}
	c.Promo = nil
}

// Subtotal is the sum of unitPrice x quantity over all lines.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.LineTotal()
	}
	return total
}

// ApplyPromo replaces any promo already on the cart.
func (c *Cart) ApplyPromo(p Promo) {
	c.Promo = &p
}

func (c *Cart) ClearPromo() {
	c.Promo = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount is the total quantity across lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// valid reports whether a decoded cart is usable as-is.
func (c *Cart) valid() bool {
	if c.Version != SchemaVersion {
		return false
	}
	seen := make(map[string]struct{}, len(c.Lines))
	for _, line := range c.Lines {
		if line.ID == "" || line.ProductID == uuid.Nil || line.Quantity < 1 || line.UnitPrice < 0 {
			return false
		}
		if _, dup := seen[line.ID]; dup {
			return false
		}
		seen[line.ID] = struct{}{}
	}
	if c.Promo != nil && (c.Promo.Code == "" || c.Promo.Discount < 0) {
		return false
	}
	return true
}

func normalizeVariant(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameVariant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
