package order

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/menu"
)

const (
	// DefaultPageSize is the number of orders per list page.
	DefaultPageSize = 10

	maxNumberAttempts = 5
)

// Config holds tunables of the order Service.
type Config struct {
	PageSize int
}

// CreateRequest holds the input for placing an order. Item prices are the
// prices shown at the point of sale and become the frozen snapshot.
type CreateRequest struct {
	TableNumber  int
	CustomerName string
	Items        []Line
	TotalAmount  *decimal.Decimal
}

// Service implements the order lifecycle: placement, status transitions and
// listing.
type Service struct {
	orders   Repository
	catalog  Catalog
	events   Publisher
	pageSize int

	now       func() time.Time
	newID     func() string
	newNumber func(time.Time) string

	created       metric.Int64Counter
	statusChanges metric.Int64Counter
}

// NewService creates an order Service. A nil Publisher disables events.
func NewService(cfg Config, orders Repository, catalog Catalog, events Publisher, meter metric.Meter) (*Service, error) {
	created, err := meter.Int64Counter("backoffice.orders.created",
		metric.WithDescription("Orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	statusChanges, err := meter.Int64Counter("backoffice.orders.status_changes",
		metric.WithDescription("Order status updates by target status"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "status changes counter")
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		orders:        orders,
		catalog:       catalog,
		events:        events,
		pageSize:      pageSize,
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
		newNumber:     NewNumber,
		created:       created,
		statusChanges: statusChanges,
	}, nil
}

// Create validates the request, verifies the client total against the item
// lines, checks that every referenced menu item exists, and stores the order
// as Pending under a freshly generated order number.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Detail, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	items := make([]Line, len(req.Items))
	copy(items, req.Items)

	total := Total(items)
	if !req.TotalAmount.Round(2).Equal(total) {
		return nil, apperr.Invalid("totalAmount",
			"totalAmount %s does not match the item total %s", req.TotalAmount.StringFixed(2), total.StringFixed(2))
	}

	resolved, err := s.lookup(ctx, items)
	if err != nil {
		return nil, err
	}
	for _, l := range items {
		if _, ok := resolved[l.MenuItemID]; !ok {
			return nil, apperr.Invalid("items", "menu item %s not found", l.MenuItemID)
		}
	}

	now := s.now().UTC()
	o := &Order{
		ID:           s.newID(),
		TableNumber:  req.TableNumber,
		CustomerName: strings.TrimSpace(req.CustomerName),
		Items:        items,
		Status:       StatusPending,
		TotalAmount:  total,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.insert(ctx, o); err != nil {
		return nil, err
	}

	s.created.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.Int("table", o.TableNumber),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	s.publish(ctx, EventCreated, o)

	return &Detail{Order: *o, Menu: resolved}, nil
}

// insert stores o, regenerating the order number when it collides.
func (s *Service) insert(ctx context.Context, o *Order) error {
	for attempt := 1; ; attempt++ {
		o.Number = s.newNumber(s.now())
		err := s.orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return errors.Wrap(err, "create order")
		}
		if attempt == maxNumberAttempts {
			return apperr.Storage(err, "allocate order number")
		}
		zctx.From(ctx).Debug("Order number collision, retrying",
			zap.String("order_number", o.Number),
			zap.Int("attempt", attempt),
		)
	}
}

// SetStatus replaces the status of an order. Any allowed status may follow
// any other; progression is not enforced.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*Detail, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.SetStatus(ctx, id, st, s.now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "set order status")
	}

	s.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(st))))
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("status", string(st)),
	)
	s.publish(ctx, EventStatusChanged, o)

	details, err := s.resolve(ctx, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Get returns an order with its lines resolved against the current catalog.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	details, err := s.resolve(ctx, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// List returns a 1-indexed page of orders, newest first, optionally filtered
// by status. Pages beyond the last one are empty.
func (s *Service) List(ctx context.Context, page int, status string) (*Page, error) {
	var filter *Status
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &st
	}
	if page < 1 {
		page = 1
	}

	var (
		count  int
		orders []Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.orders.Count(gctx, filter)
		if err != nil {
			return errors.Wrap(err, "count orders")
		}
		count = n
		return nil
	})
	// Offset+Limit must fit in an int; such pages are far past the last one.
	if page-1 <= (math.MaxInt-s.pageSize)/s.pageSize {
		g.Go(func() error {
			list, err := s.orders.List(gctx, ListQuery{
				Status: filter,
				Limit:  s.pageSize,
				Offset: (page - 1) * s.pageSize,
			})
			if err != nil {
				return errors.Wrap(err, "list orders")
			}
			orders = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details, err := s.resolve(ctx, orders)
	if err != nil {
		return nil, err
	}
	return &Page{
		Orders: details,
		Page:   page,
		Pages:  (count + s.pageSize - 1) / s.pageSize,
	}, nil
}

// resolve attaches the current catalog entries to each order in one lookup.
func (s *Service) resolve(ctx context.Context, orders []Order) ([]Detail, error) {
	var lines []Line
	for _, o := range orders {
		lines = append(lines, o.Items...)
	}
	resolved, err := s.lookup(ctx, lines)
	if err != nil {
		return nil, err
	}

	details := make([]Detail, len(orders))
	for i, o := range orders {
		details[i] = Detail{Order: o, Menu: resolved}
	}
	return details, nil
}

func (s *Service) lookup(ctx context.Context, lines []Line) (map[string]menu.Item, error) {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.MenuItemID]; ok {
			continue
		}
		seen[l.MenuItemID] = struct{}{}
		ids = append(ids, l.MenuItemID)
	}

	out := make(map[string]menu.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve menu items")
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, typ EventType, o *Order) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, Event{
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		TableNumber: o.TableNumber,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		At:          o.UpdatedAt,
	})
	if err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("type", string(typ)),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func validateCreate(req CreateRequest) error {
	switch {
	case req.TableNumber == 0:
		return apperr.Invalid("tableNumber", "tableNumber is required")
	case req.TableNumber < 0:
		return apperr.Invalid("tableNumber", "tableNumber must be positive")
	case len(req.Items) == 0:
		return apperr.Invalid("items", "items are required")
	case req.TotalAmount == nil:
		return apperr.Invalid("totalAmount", "totalAmount is required")
	case req.TotalAmount.IsNegative():
		return apperr.Invalid("totalAmount", "totalAmount must not be negative")
	}
	for i, l := range req.Items {
		if l.MenuItemID == "" {
			return apperr.Invalid("items", "item %d: menuItem is required", i)
		}
		if l.Quantity < 1 {
			return apperr.Invalid("items", "item %d: quantity must be at least 1", i)
		}
		if l.Price.IsNegative() {
			return apperr.Invalid("items", "item %d: price must not be negative", i)
		}
	}
	return nil
}
