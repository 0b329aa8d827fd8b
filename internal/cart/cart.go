package cart

import (
	"errors"
	"fmt"

	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/pricing"
)

// ErrInvalidQuantity is returned by Restore when an entry is not a positive
// multiple of its product's pack size.
var ErrInvalidQuantity = errors.New("cart: quantity is not a positive multiple of the pack size")

// Line is one product in the cart. Quantity is always a positive multiple of
// Product.MinOrder.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Entry is the persisted form of a line.
type Entry struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart holds at most one line per product, in insertion order. The zero value
// is an empty cart ready to use.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(productID string) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add grows the line for p by one pack, creating it with one pack when absent.
func (c *Cart) Add(p catalog.Product) Line {
	step := packSize(p)
	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity += step
		return c.lines[i]
	}
	line := Line{Product: p, Quantity: step}
	c.lines = append(c.lines, line)
	return line
}

// Increment grows an existing line by one pack. It reports false when no line
// exists for productID.
func (c *Cart) Increment(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity += packSize(c.lines[i].Product)
	return true
}

// Decrement shrinks an existing line by one pack and removes it once less than
// one pack would remain. It reports false when no line exists for productID.
func (c *Cart) Decrement(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	step := packSize(c.lines[i].Product)
	next := c.lines[i].Quantity - step
	if next < step {
		c.removeAt(i)
		return true
	}
	c.lines[i].Quantity = next
	return true
}

// Remove drops the line for productID. It reports false when no line exists.
func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for productID.
func (c *Cart) Line(productID string) (Line, bool) {
	i := c.index(productID)
	if i < 0 {
		return Line{}, false
	}
	return c.lines[i], true
}

// Len is the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// Summary prices every line under pl and aggregates the result. It is
// recomputed on every call.
func (c *Cart) Summary(pl catalog.PriceList, taxBps int) pricing.Summary {
	items := make([]pricing.Item, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, pricing.Item{
			Qty:       l.Quantity,
			UnitPrice: pricing.FinalUnitPrice(l.Product.Price, pl.DiscountPercentage),
		})
	}
	return pricing.Compute(items, taxBps)
}

// Entries flattens the cart for persistence.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, Entry{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return out
}

// Restore rebuilds a cart from persisted entries, resolving products through
// lookup. Entries for unknown products, duplicate products, or quantities that
// break the pack rule are rejected.
func Restore(entries []Entry, lookup func(id string) (catalog.Product, error)) (*Cart, error) {
	c := New()
	for _, e := range entries {
		p, err := lookup(e.ProductID)
		if err != nil {
			return nil, fmt.Errorf("restore cart line %q: %w", e.ProductID, err)
		}
		step := packSize(p)
		if e.Quantity < step || e.Quantity%step != 0 {
			return nil, fmt.Errorf("restore cart line %q (qty %d, pack %d): %w", e.ProductID, e.Quantity, step, ErrInvalidQuantity)
		}
		if c.index(p.ID) >= 0 {
			return nil, fmt.Errorf("restore cart: duplicate line %q", p.ID)
		}
		c.lines = append(c.lines, Line{Product: p, Quantity: e.Quantity})
	}
	return c, nil
}

func packSize(p catalog.Product) int {
	if p.MinOrder < 1 {
		return 1
	}
	return p.MinOrder
}
