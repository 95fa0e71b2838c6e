package order

import (
	"context"
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/menu"
)

// --- Mock implementations ---

type mockCatalog struct {
	items map[string]menu.Item
	err   error
	calls int
}

func newCatalog(items ...menu.Item) *mockCatalog {
	m := &mockCatalog{items: make(map[string]menu.Item, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]menu.Item, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []menu.Item
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	orders     []*Order
	collisions int
	createErr  error
	attempts   int
	queries    []ListQuery
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.attempts++
	if m.createErr != nil {
		return m.createErr
	}
	if m.collisions > 0 {
		m.collisions--
		return ErrDuplicateNumber
	}
	cp := *o
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) filtered(status *Status) []Order {
	var out []Order
	for _, o := range m.orders {
		if status == nil || o.Status == *status {
			out = append(out, *o)
		}
	}
	slices.SortStableFunc(out, func(a, b Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func (m *mockOrderRepo) List(_ context.Context, q ListQuery) ([]Order, error) {
	m.queries = append(m.queries, q)
	all := m.filtered(q.Status)
	if q.Offset >= len(all) {
		return nil, nil
	}
	end := min(q.Offset+q.Limit, len(all))
	return all[q.Offset:end], nil
}

func (m *mockOrderRepo) Count(_ context.Context, status *Status) (int, error) {
	return len(m.filtered(status)), nil
}

func (m *mockOrderRepo) SetStatus(_ context.Context, id string, status Status, at time.Time) (*Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			o.Status = status
			o.UpdatedAt = at
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type mockPublisher struct {
	events []Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e Event) error {
	m.events = append(m.events, e)
	return m.err
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func menuItem(id, name, price string) menu.Item {
	return menu.Item{
		ID:          id,
		Name:        name,
		Category:    menu.CategoryMainCourse,
		Price:       dec(price),
		IsAvailable: true,
		ImageURL:    "https://img.example/" + id + ".jpg",
	}
}

func newTestService(t *testing.T, repo *mockOrderRepo, catalog *mockCatalog, pub Publisher) *Service {
	t.Helper()
	svc, err := NewService(Config{}, repo, catalog, pub, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return svc
}

// --- Tests ---

func TestCreate_TotalVerification(t *testing.T) {
	catalog := newCatalog(menuItem("a", "Burger", "10.00"), menuItem("b", "Fries", "5.00"))
	repo := &mockOrderRepo{}
	pub := &mockPublisher{}
	svc := newTestService(t, repo, catalog, pub)

	d, err := svc.Create(context.Background(), CreateRequest{
		TableNumber:  4,
		CustomerName: " Ana ",
		Items: []Line{
			{MenuItemID: "a", Quantity: 2, Price: dec("10.00")},
			{MenuItemID: "b", Quantity: 1, Price: dec("5.00")},
		},
		TotalAmount: decPtr("25.00"),
	})
	require.NoError(t, err)

	assert.True(t, dec("25.00").Equal(d.TotalAmount))
	assert.Equal(t, StatusPending, d.Status)
	assert.Equal(t, "Ana", d.CustomerName)
	assert.Regexp(t, `^ORD-\d{9}$`, d.Number)
	assert.NotEmpty(t, d.ID)
	require.Len(t, repo.orders, 1)

	it, ok := d.MenuItem(d.Items[0])
	require.True(t, ok)
	assert.Equal(t, "Burger", it.Name)

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventCreated, pub.events[0].Type)
	assert.Equal(t, d.Number, pub.events[0].OrderNumber)
}

func TestCreate_TotalMismatch(t *testing.T) {
	catalog := newCatalog(menuItem("a", "Burger", "10.00"), menuItem("b", "Fries", "5.00"))
	repo := &mockOrderRepo{}
	svc := newTestService(t, repo, catalog, nil)

	_, err := svc.Create(context.Background(), CreateRequest{
		TableNumber: 4,
		Items: []Line{
			{MenuItemID: "a", Quantity: 2, Price: dec("10.00")},
			{MenuItemID: "b", Quantity: 1, Price: dec("5.00")},
		},
		TotalAmount: decPtr("20.00"),
	})

	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "totalAmount", v.Field)
	assert.Empty(t, repo.orders)
}

func TestCreate_Validation(t *testing.T) {
	line := Line{MenuItemID: "a", Quantity: 1, Price: dec("10.00")}

	tests := []struct {
		name  string
		req   CreateRequest
		field string
	}{
		{
			name:  "missing table",
			req:   CreateRequest{Items: []Line{line}, TotalAmount: decPtr("10")},
			field: "tableNumber",
		},
		{
			name:  "negative table",
			req:   CreateRequest{TableNumber: -2, Items: []Line{line}, TotalAmount: decPtr("10")},
			field: "tableNumber",
		},
		{
			name:  "no items",
			req:   CreateRequest{TableNumber: 1, TotalAmount: decPtr("0")},
			field: "items",
		},
		{
			name:  "missing total",
			req:   CreateRequest{TableNumber: 1, Items: []Line{line}},
			field: "totalAmount",
		},
		{
			name: "zero quantity",
			req: CreateRequest{
				TableNumber: 1,
				Items:       []Line{{MenuItemID: "a", Quantity: 0, Price: dec("10")}},
				TotalAmount: decPtr("0"),
			},
			field: "items",
		},
		{
			name: "negative price",
			req: CreateRequest{
				TableNumber: 1,
				Items:       []Line{{MenuItemID: "a", Quantity: 1, Price: dec("-1")}},
				TotalAmount: decPtr("0"),
			},
			field: "items",
		},
		{
			name: "unknown menu item",
			req: CreateRequest{
				TableNumber: 1,
				Items:       []Line{{MenuItemID: "ghost", Quantity: 1, Price: dec("3")}},
				TotalAmount: decPtr("3"),
			},
			field: "items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrderRepo{}
			svc := newTestService(t, repo, newCatalog(menuItem("a", "Burger", "10.00")), nil)

			_, err := svc.Create(context.Background(), tt.req)

			var v *apperr.ValidationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.field, v.Field)
			assert.Zero(t, repo.attempts, "nothing is stored")
		})
	}
}

func TestCreate_RetriesNumberCollision(t *testing.T) {
	repo := &mockOrderRepo{collisions: 2}
	svc := newTestService(t, repo, newCatalog(menuItem("a", "Burger", "10.00")), nil)

	var n int
	svc.newNumber = func(time.Time) string {
		n++
		return fmt.Sprintf("ORD-%09d", n)
	}

	d, err := svc.Create(context.Background(), CreateRequest{
		TableNumber: 1,
		Items:       []Line{{MenuItemID: "a", Quantity: 1, Price: dec("10.00")}},
		TotalAmount: decPtr("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.attempts)
	assert.Equal(t, "ORD-000000003", d.Number)
}

func TestCreate_CollisionRetriesExhausted(t *testing.T) {
	repo := &mockOrderRepo{collisions: 100}
	svc := newTestService(t, repo, newCatalog(menuItem("a", "Burger", "10.00")), nil)

	_, err := svc.Create(context.Background(), CreateRequest{
		TableNumber: 1,
		Items:       []Line{{MenuItemID: "a", Quantity: 1, Price: dec("10.00")}},
		TotalAmount: decPtr("10"),
	})

	var s *apperr.StorageError
	require.ErrorAs(t, err, &s)
	require.ErrorIs(t, err, ErrDuplicateNumber)
	assert.Equal(t, maxNumberAttempts, repo.attempts)
}

func TestCreate_PublishFailureIsIgnored(t *testing.T) {
	repo := &mockOrderRepo{}
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := newTestService(t, repo, newCatalog(menuItem("a", "Burger", "10.00")), pub)

	_, err := svc.Create(context.Background(), CreateRequest{
		TableNumber: 1,
		Items:       []Line{{MenuItemID: "a", Quantity: 1, Price: dec("10.00")}},
		TotalAmount: decPtr("10.00"),
	})
	require.NoError(t, err)
	assert.Len(t, repo.orders, 1)
	assert.Len(t, pub.events, 1)
}

func seedOrder(repo *mockOrderRepo, id string, created time.Time, status Status, lines ...Line) {
	repo.orders = append(repo.orders, &Order{
		ID:          id,
		Number:      "ORD-" + id,
		TableNumber: 1,
		Items:       lines,
		Status:      status,
		TotalAmount: Total(lines),
		CreatedAt:   created,
		UpdatedAt:   created,
	})
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	repo := &mockOrderRepo{}
	seedOrder(repo, "o1", time.Now(), StatusPending)
	svc := newTestService(t, repo, newCatalog(), nil)

	_, err := svc.SetStatus(context.Background(), "o1", "Bogus")

	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Message, "Pending, Preparing, Ready, Served, Delivered, Cancelled")
	assert.Equal(t, StatusPending, repo.orders[0].Status, "order unchanged")
}

func TestSetStatus_UnknownStatusBeforeLookup(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, newCatalog(), nil)

	_, err := svc.SetStatus(context.Background(), "missing", "Bogus")
	assert.True(t, apperr.IsValidation(err))
	assert.False(t, apperr.IsNotFound(err))
}

func TestSetStatus_NotFound(t *testing.T) {
	svc := newTestService(t, &mockOrderRepo{}, newCatalog(), nil)

	_, err := svc.SetStatus(context.Background(), "missing", "Ready")
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSetStatus_PermissiveTransition(t *testing.T) {
	repo := &mockOrderRepo{}
	created := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	seedOrder(repo, "o1", created, StatusServed)
	pub := &mockPublisher{}
	svc := newTestService(t, repo, newCatalog(), pub)
	at := created.Add(time.Hour)
	svc.now = func() time.Time { return at }

	d, err := svc.SetStatus(context.Background(), "o1", "Pending")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, d.Status)
	assert.Equal(t, at, d.UpdatedAt)
	assert.Equal(t, created, d.CreatedAt)
	require.Len(t, pub.events, 1)
	assert.Equal(t, EventStatusChanged, pub.events[0].Type)
	assert.Equal(t, StatusPending, pub.events[0].Status)
}

func TestList_Pagination(t *testing.T) {
	repo := &mockOrderRepo{}
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range 25 {
		seedOrder(repo, fmt.Sprintf("o%02d", i), base.Add(time.Duration(i)*time.Minute), StatusPending)
	}
	svc := newTestService(t, repo, newCatalog(), nil)
	ctx := context.Background()

	p, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 1, p.Page)
	require.Len(t, p.Orders, 10)
	assert.Equal(t, "o24", p.Orders[0].ID, "newest first")

	p, err = svc.List(ctx, 3, "")
	require.NoError(t, err)
	assert.Len(t, p.Orders, 5)

	p, err = svc.List(ctx, 4, "")
	require.NoError(t, err)
	assert.Empty(t, p.Orders)
	assert.Equal(t, 3, p.Pages)

	p, err = svc.List(ctx, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
}

func TestList_PageOverflow(t *testing.T) {
	repo := &mockOrderRepo{}
	now := time.Now()
	for i := range 3 {
		seedOrder(repo, fmt.Sprintf("o%d", i), now, StatusPending)
	}
	svc := newTestService(t, repo, newCatalog(), nil)

	for _, page := range []int{math.MaxInt64 / 5, math.MaxInt64 / 10, math.MaxInt64} {
		p, err := svc.List(context.Background(), page, "")
		require.NoError(t, err, "page %d", page)
		assert.Empty(t, p.Orders)
		assert.Equal(t, page, p.Page)
		assert.Equal(t, 1, p.Pages)
	}
	for _, q := range repo.queries {
		assert.GreaterOrEqual(t, q.Offset, 0, "offset never wraps negative")
	}
}

func TestList_StatusFilter(t *testing.T) {
	repo := &mockOrderRepo{}
	now := time.Now()
	seedOrder(repo, "o1", now, StatusPending)
	seedOrder(repo, "o2", now, StatusReady)
	seedOrder(repo, "o3", now, StatusReady)
	svc := newTestService(t, repo, newCatalog(), nil)

	p, err := svc.List(context.Background(), 1, "Ready")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Pages)
	assert.Len(t, p.Orders, 2)

	_, err = svc.List(context.Background(), 1, "Eaten")
	assert.True(t, apperr.IsValidation(err))
}

func TestList_ResolvesMenuOnce(t *testing.T) {
	repo := &mockOrderRepo{}
	now := time.Now()
	seedOrder(repo, "o1", now, StatusPending, Line{MenuItemID: "a", Quantity: 1, Price: dec("9")})
	seedOrder(repo, "o2", now, StatusPending,
		Line{MenuItemID: "a", Quantity: 2, Price: dec("9")},
		Line{MenuItemID: "gone", Quantity: 1, Price: dec("3")},
	)
	catalog := newCatalog(menuItem("a", "Burger", "10.00"))
	svc := newTestService(t, repo, catalog, nil)

	p, err := svc.List(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.calls)

	for _, d := range p.Orders {
		for _, l := range d.Items {
			_, ok := d.MenuItem(l)
			assert.Equal(t, l.MenuItemID != "gone", ok, l.MenuItemID)
		}
	}
}

func TestGet(t *testing.T) {
	repo := &mockOrderRepo{}
	seedOrder(repo, "o1", time.Now(), StatusPending, Line{MenuItemID: "a", Quantity: 3, Price: dec("9.50")})
	svc := newTestService(t, repo, newCatalog(menuItem("a", "Burger", "10.00")), nil)

	d, err := svc.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.True(t, dec("28.50").Equal(d.TotalAmount))

	it, ok := d.MenuItem(d.Items[0])
	require.True(t, ok)
	assert.True(t, dec("10.00").Equal(it.Price), "resolved to the current catalog price")
	assert.True(t, dec("9.50").Equal(d.Items[0].Price), "line keeps the frozen price")

	_, err = svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}
