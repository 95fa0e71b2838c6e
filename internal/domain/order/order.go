package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/menu"
)

var (
	// ErrNotFound is returned when an order id does not resolve.
	ErrNotFound = apperr.NotFound("Order")
	// ErrDuplicateNumber is returned by a Repository when the generated order
	// number collides with an existing order.
	ErrDuplicateNumber = errors.New("order number already exists")
)

// Status describes the kitchen and service progress of an order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusServed    Status = "Served"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every allowed status value.
var Statuses = []Status{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusServed,
	StatusDelivered,
	StatusCancelled,
}

// ParseStatus validates s against the allowed set.
func ParseStatus(s string) (Status, error) {
	for _, v := range Statuses {
		if Status(s) == v {
			return v, nil
		}
	}
	names := make([]string, len(Statuses))
	for i, v := range Statuses {
		names[i] = string(v)
	}
	return "", apperr.Invalid("status", "Invalid status. Allowed values: %s", strings.Join(names, ", "))
}

// Terminal reports whether no further kitchen work follows s.
func (s Status) Terminal() bool {
	switch s {
	case StatusServed, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Line is one ordered menu item. Price is a copy taken when the order was
// placed and never follows later catalog changes.
type Line struct {
	MenuItemID string          `json:"menuItem"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Subtotal returns Price × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a placed order. Everything except Status and UpdatedAt is fixed at
// creation.
type Order struct {
	ID           string
	Number       string
	TableNumber  int
	CustomerName string
	Items        []Line
	Status       Status
	TotalAmount  decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Total returns the sum of line subtotals rounded to cents.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum.Round(2)
}

// Detail pairs an order with the current catalog entries of its lines. A
// line whose menu item has been deleted has no entry in Menu.
type Detail struct {
	Order
	Menu map[string]menu.Item
}

// MenuItem returns the current catalog entry for a line, if it still exists.
func (d Detail) MenuItem(l Line) (menu.Item, bool) {
	it, ok := d.Menu[l.MenuItemID]
	return it, ok
}

// Page is one page of the order list.
type Page struct {
	Orders []Detail
	Page   int
	Pages  int
}

// ListQuery selects a window of orders, newest first.
type ListQuery struct {
	Status *Status
	Limit  int
	Offset int
}

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, error)
	Count(ctx context.Context, status *Status) (int, error)
	SetStatus(ctx context.Context, id string, status Status, at time.Time) (*Order, error)
}

// Catalog resolves menu items referenced by order lines.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error)
}

// EventType names an order lifecycle event.
type EventType string

const (
	EventCreated       EventType = "order.created"
	EventStatusChanged EventType = "order.status_changed"
)

// Event describes a lifecycle change of an order.
type Event struct {
	Type        EventType       `json:"type"`
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	TableNumber int             `json:"tableNumber"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	At          time.Time       `json:"at"`
}

// Publisher delivers order events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
