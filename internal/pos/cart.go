// Package pos implements the point-of-sale cart: menu items staged with
// quantities before they are submitted as one order.
package pos

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/api"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNoTable   = errors.New("table number is required")
)

// Line is one cart entry.
type Line struct {
	Item     api.MenuItem
	Quantity int
}

// Price returns the unit price of the line.
func (l Line) Price() decimal.Decimal {
	return decimal.NewFromFloat(l.Item.Price)
}

// Subtotal returns Price × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per menu item id, in insertion order. It is
// not safe for concurrent use.
type Cart struct {
	lines []Line
}

func (c *Cart) index(id string) int {
	for i, l := range c.lines {
		if l.Item.ID == id {
			return i
		}
	}
	return -1
}

// Add puts one unit of item in the cart. Availability is the caller's
// concern; the cart stages whatever it is given.
func (c *Cart) Add(item api.MenuItem) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
}

// Remove drops the line for id whatever its quantity.
func (c *Cart) Remove(id string) {
	if i := c.index(id); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// ChangeQuantity adds delta to the quantity of id. A result below 1 leaves
// the line unchanged; use Remove to drop it.
func (c *Cart) ChangeQuantity(id string, delta int) {
	i := c.index(id)
	if i < 0 {
		return
	}
	if q := c.lines[i].Quantity + delta; q >= 1 {
		c.lines[i].Quantity = q
	}
}

// Total returns the sum of line subtotals rounded to cents.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum.Round(2)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct items.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Quantity returns the quantity of id, or 0.
func (c *Cart) Quantity(id string) int {
	if i := c.index(id); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Request builds the create-order request for the cart contents.
func (c *Cart) Request(table int, customer string) api.CreateOrderRequest {
	items := make([]api.OrderLineInput, len(c.lines))
	for i, l := range c.lines {
		price := l.Price()
		items[i] = api.OrderLineInput{MenuItem: l.Item.ID, Quantity: l.Quantity, Price: &price}
	}
	total := c.Total()
	return api.CreateOrderRequest{
		TableNumber:  table,
		CustomerName: strings.TrimSpace(customer),
		Items:        items,
		TotalAmount:  &total,
	}
}

// Submitter places orders.
type Submitter interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.Order, error)
}

// Checkout submits the cart as an order for table. The cart is cleared only
// when the order was accepted.
func (c *Cart) Checkout(ctx context.Context, s Submitter, table int, customer string) (*api.Order, error) {
	if c.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if table < 1 {
		return nil, ErrNoTable
	}
	o, err := s.CreateOrder(ctx, c.Request(table, customer))
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}
	c.Clear()
	return o, nil
}
