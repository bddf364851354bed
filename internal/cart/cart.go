package cart

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a priced menu item as seen at the moment it is added.
type Item struct {
	ID        uuid.UUID
	VendorID  uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
}

// Line is one distinct item in the cart.
type Line struct {
	ItemID    uuid.UUID       `json:"item_id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice times Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per item id, each with quantity >= 1, in insertion order.
// The zero value is an empty cart.
type Cart struct {
	lines []Line
}

// New returns a cart seeded with the given lines. Lines with quantity < 1 are dropped and
// repeated item ids are merged.
func New(lines []Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := c.index(l.ItemID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

func (c *Cart) index(itemID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// Add increments the existing line for item or appends a new line with quantity 1.
func (c *Cart) Add(item Item) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{
		ItemID:    item.ID,
		VendorID:  item.VendorID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Quantity:  1,
	})
}

// SetQuantity replaces the quantity of an existing line. qty <= 0 removes the line and an
// unknown id is ignored.
func (c *Cart) SetQuantity(itemID uuid.UUID, qty int) {
	i := c.index(itemID)
	if i < 0 {
		return
	}
	if qty <= 0 {
		c.removeAt(i)
		return
	}
	c.lines[i].Quantity = qty
}

// Remove drops the line for itemID if present.
func (c *Cart) Remove(itemID uuid.UUID) {
	if i := c.index(itemID); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// Total sums every line's subtotal.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// VendorID returns the vendor of the cart's items, or uuid.Nil when empty.
func (c *Cart) VendorID() uuid.UUID {
	if len(c.lines) == 0 {
		return uuid.Nil
	}
	return c.lines[0].VendorID
}

type snapshot struct {
	Lines []Line `json:"lines"`
}

// MarshalJSON encodes the lines in cart order.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{Lines: c.Lines()})
}

// UnmarshalJSON rebuilds the cart through New, so stored data cannot break its invariants.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	*c = *New(snap.Lines)
	return nil
}
