// Package api defines the JSON wire types of the back-office REST API and
// their conversions from domain types. Both the HTTP handler and the Go
// client use them.
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/analytics"
	"github.com/xenking/backoffice/internal/domain/menu"
	"github.com/xenking/backoffice/internal/domain/order"
)

// Message is the body of error responses and of simple acknowledgements.
type Message struct {
	Message string `json:"message"`
}

// MenuItem is a catalog entry on the wire. Money is a JSON number.
type MenuItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	Description     string    `json:"description,omitempty"`
	Ingredients     []string  `json:"ingredients"`
	IsAvailable     bool      `json:"isAvailable"`
	PreparationTime *int      `json:"preparationTime,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewMenuItem converts a catalog item.
func NewMenuItem(it menu.Item) MenuItem {
	ingredients := it.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return MenuItem{
		ID:              it.ID,
		Name:            it.Name,
		Category:        string(it.Category),
		Price:           it.Price.InexactFloat64(),
		Description:     it.Description,
		Ingredients:     ingredients,
		IsAvailable:     it.IsAvailable,
		PreparationTime: it.PreparationTime,
		ImageURL:        it.ImageURL,
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}

// NewMenuItems converts a list of catalog items. The result is never nil.
func NewMenuItems(items []menu.Item) []MenuItem {
	out := make([]MenuItem, len(items))
	for i, it := range items {
		out[i] = NewMenuItem(it)
	}
	return out
}

// MenuItemInput is the body of create and update requests. Absent fields are
// nil; for updates they keep the stored value.
type MenuItemInput struct {
	Name            *string          `json:"name,omitempty"`
	Category        *string          `json:"category,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Ingredients     []string         `json:"ingredients,omitempty"`
	IsAvailable     *bool            `json:"isAvailable,omitempty"`
	PreparationTime *int             `json:"preparationTime,omitempty"`
	ImageURL        *string          `json:"imageUrl,omitempty"`
}

// Draft converts the input for creation.
func (in MenuItemInput) Draft() menu.Draft {
	d := menu.Draft{
		Price:           in.Price,
		Ingredients:     in.Ingredients,
		IsAvailable:     in.IsAvailable,
		PreparationTime: in.PreparationTime,
	}
	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.Category != nil {
		d.Category = menu.Category(*in.Category)
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if in.ImageURL != nil {
		d.ImageURL = *in.ImageURL
	}
	return d
}

// Patch converts the input for a partial update.
func (in MenuItemInput) Patch() menu.Patch {
	p := menu.Patch{
		Name:            in.Name,
		Price:           in.Price,
		Description:     in.Description,
		Ingredients:     in.Ingredients,
		IsAvailable:     in.IsAvailable,
		PreparationTime: in.PreparationTime,
		ImageURL:        in.ImageURL,
	}
	if in.Category != nil {
		c := menu.Category(*in.Category)
		p.Category = &c
	}
	return p
}

// MenuItemRef is the display subset of a menu item embedded in order lines.
type MenuItemRef struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// OrderItem is one order line. MenuItem is null when the menu item has been
// deleted; Price is always the price charged.
type OrderItem struct {
	MenuItemID string       `json:"menuItemId"`
	MenuItem   *MenuItemRef `json:"menuItem"`
	Quantity   int          `json:"quantity"`
	Price      float64      `json:"price"`
}

// Order is a placed order with lines resolved to current menu display fields.
type Order struct {
	ID           string      `json:"id"`
	OrderNumber  string      `json:"orderNumber"`
	TableNumber  int         `json:"tableNumber"`
	CustomerName string      `json:"customerName,omitempty"`
	Items        []OrderItem `json:"items"`
	Status       string      `json:"status"`
	TotalAmount  float64     `json:"totalAmount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// NewOrder converts a resolved order.
func NewOrder(d order.Detail) Order {
	items := make([]OrderItem, len(d.Items))
	for i, l := range d.Items {
		items[i] = OrderItem{
			MenuItemID: l.MenuItemID,
			Quantity:   l.Quantity,
			Price:      l.Price.InexactFloat64(),
		}
		if it, ok := d.MenuItem(l); ok {
			items[i].MenuItem = &MenuItemRef{
				ID:       it.ID,
				Name:     it.Name,
				Price:    it.Price.InexactFloat64(),
				ImageURL: it.ImageURL,
			}
		}
	}
	return Order{
		ID:           d.ID,
		OrderNumber:  d.Number,
		TableNumber:  d.TableNumber,
		CustomerName: d.CustomerName,
		Items:        items,
		Status:       string(d.Status),
		TotalAmount:  d.TotalAmount.InexactFloat64(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// OrderPage is one page of the order list. Pages are 1-indexed.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
}

// NewOrderPage converts a page of orders.
func NewOrderPage(p order.Page) OrderPage {
	orders := make([]Order, len(p.Orders))
	for i, d := range p.Orders {
		orders[i] = NewOrder(d)
	}
	return OrderPage{Orders: orders, Page: p.Page, Pages: p.Pages}
}

// OrderLineInput is one line of a create-order request.
type OrderLineInput struct {
	MenuItem string           `json:"menuItem"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	TableNumber  int              `json:"tableNumber"`
	CustomerName string           `json:"customerName,omitempty"`
	Items        []OrderLineInput `json:"items"`
	TotalAmount  *decimal.Decimal `json:"totalAmount"`
}

// Domain converts the request for the order service. Every line must carry
// a price; an absent one is not read as zero.
func (r CreateOrderRequest) Domain() (order.CreateRequest, error) {
	lines := make([]order.Line, len(r.Items))
	for i, l := range r.Items {
		if l.Price == nil {
			return order.CreateRequest{}, apperr.Invalid("items", "item %d: price is required", i)
		}
		lines[i] = order.Line{MenuItemID: l.MenuItem, Quantity: l.Quantity, Price: *l.Price}
	}
	return order.CreateRequest{
		TableNumber:  r.TableNumber,
		CustomerName: r.CustomerName,
		Items:        lines,
		TotalAmount:  r.TotalAmount,
	}, nil
}

// StatusUpdate is the body of PATCH /api/orders/{id}/status.
type StatusUpdate struct {
	Status string `json:"status"`
}

// TopSeller is one entry of the top sellers ranking. MenuItem is null when
// the item has been deleted.
type TopSeller struct {
	MenuItemID string    `json:"menuItemId"`
	TotalQty   int       `json:"totalQty"`
	MenuItem   *MenuItem `json:"menuItem"`
}

// NewTopSellers converts a ranking. The result is never nil.
func NewTopSellers(sellers []analytics.TopSeller) []TopSeller {
	out := make([]TopSeller, len(sellers))
	for i, s := range sellers {
		out[i] = TopSeller{MenuItemID: s.MenuItemID, TotalQty: s.TotalQty}
		if s.Item != nil {
			it := NewMenuItem(*s.Item)
			out[i].MenuItem = &it
		}
	}
	return out
}
