// Package dashboard keeps the staff views of orders and menu items in sync
// with the API. Status and availability changes are applied locally first;
// when the server rejects them the local state is replaced by a fresh read.
package dashboard

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/backoffice/internal/api"
	"github.com/xenking/backoffice/internal/client"
)

// OrderAPI is the part of the API the order board uses.
type OrderAPI interface {
	ListOrders(ctx context.Context, page int, status string) (*api.OrderPage, error)
	SetOrderStatus(ctx context.Context, id, status string) (*api.Order, error)
}

// Orders is a paginated order board with an optional status filter.
type Orders struct {
	api OrderAPI

	mu     sync.Mutex
	page   int
	pages  int
	status string
	orders []api.Order
}

// NewOrders creates an order board showing page 1 of all orders.
func NewOrders(a OrderAPI) *Orders {
	return &Orders{api: a, page: 1}
}

// Snapshot returns the current page content and position.
func (b *Orders) Snapshot() (orders []api.Order, page, pages int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.orders), b.page, b.pages
}

// Filter switches the status filter and goes back to page 1.
func (b *Orders) Filter(ctx context.Context, status string) error {
	b.mu.Lock()
	b.status, b.page = status, 1
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// Goto moves to page, clamped to [1, pages].
func (b *Orders) Goto(ctx context.Context, page int) error {
	b.mu.Lock()
	if b.pages > 0 && page > b.pages {
		page = b.pages
	}
	b.page = max(page, 1)
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// Refresh reloads the current page from the server.
func (b *Orders) Refresh(ctx context.Context) error {
	b.mu.Lock()
	page, status := b.page, b.status
	b.mu.Unlock()

	p, err := b.api.ListOrders(ctx, page, status)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders, b.page, b.pages = p.Orders, p.Page, p.Pages
	return nil
}

// SetStatus shows the new status immediately and then asks the server for
// it. On failure the board is reloaded and the server error returned.
func (b *Orders) SetStatus(ctx context.Context, id, status string) error {
	b.apply(id, func(o *api.Order) { o.Status = status })

	updated, err := b.api.SetOrderStatus(ctx, id, status)
	if err != nil {
		if rerr := b.Refresh(ctx); rerr != nil {
			return errors.Wrapf(err, "board left stale (%v)", rerr)
		}
		return err
	}
	b.apply(id, func(o *api.Order) { *o = *updated })
	return nil
}

func (b *Orders) apply(id string, fn func(*api.Order)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].ID == id {
			fn(&b.orders[i])
			return
		}
	}
}

// MenuAPI is the part of the API the menu board uses.
type MenuAPI interface {
	SearchMenu(ctx context.Context, f client.MenuFilter) ([]api.MenuItem, error)
	ToggleAvailability(ctx context.Context, id string) (*api.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
}

// Menu is the menu management board.
type Menu struct {
	api MenuAPI

	mu     sync.Mutex
	filter client.MenuFilter
	items  []api.MenuItem
}

// NewMenu creates an unfiltered menu board.
func NewMenu(a MenuAPI) *Menu {
	return &Menu{api: a}
}

// Items returns the items currently shown.
func (m *Menu) Items() []api.MenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// Filter replaces the search filter and reloads.
func (m *Menu) Filter(ctx context.Context, f client.MenuFilter) error {
	m.mu.Lock()
	m.filter = f
	m.mu.Unlock()
	return m.Refresh(ctx)
}

// Refresh reloads the items from the server.
func (m *Menu) Refresh(ctx context.Context) error {
	m.mu.Lock()
	f := m.filter
	m.mu.Unlock()

	items, err := m.api.SearchMenu(ctx, f)
	if err != nil {
		return errors.Wrap(err, "search menu")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	return nil
}

// Toggle flips availability locally and then on the server. On failure the
// board is reloaded; if that fails too the previous items are restored.
func (m *Menu) Toggle(ctx context.Context, id string) error {
	m.mu.Lock()
	prev := slices.Clone(m.items)
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].IsAvailable = !m.items[i].IsAvailable
		}
	}
	m.mu.Unlock()

	updated, err := m.api.ToggleAvailability(ctx, id)
	if err != nil {
		if rerr := m.Refresh(ctx); rerr != nil {
			m.mu.Lock()
			m.items = prev
			m.mu.Unlock()
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i] = *updated
		}
	}
	return nil
}

// Delete removes an item on the server, then from the board.
func (m *Menu) Delete(ctx context.Context, id string) error {
	if err := m.api.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = slices.DeleteFunc(m.items, func(it api.MenuItem) bool { return it.ID == id })
	return nil
}
