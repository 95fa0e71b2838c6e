// Package analytics derives sales figures from historical orders.
package analytics

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/backoffice/internal/domain/menu"
)

// DefaultTopSellersLimit is the number of items TopSellers returns when no
// limit is given.
const DefaultTopSellersLimit = 5

// ItemTotal is the quantity of one menu item summed over all order lines.
type ItemTotal struct {
	MenuItemID string
	Quantity   int
}

// TopSeller is a ranked menu item. Item is nil when the menu item has been
// deleted since it was ordered.
type TopSeller struct {
	MenuItemID string
	TotalQty   int
	Item       *menu.Item
}

// Repository aggregates order lines.
type Repository interface {
	// SumQuantities groups every order line by menu item id and sums
	// quantities. Order of the result is unspecified.
	SumQuantities(ctx context.Context) ([]ItemTotal, error)
}

// Catalog resolves menu items for display.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error)
}

// Service computes analytics on every call; nothing is cached.
type Service struct {
	orders  Repository
	catalog Catalog
	limit   int
}

// NewService creates an analytics Service. A non-positive defaultLimit falls
// back to DefaultTopSellersLimit.
func NewService(orders Repository, catalog Catalog, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = DefaultTopSellersLimit
	}
	return &Service{orders: orders, catalog: catalog, limit: defaultLimit}
}

// TopSellers ranks menu items by total quantity ordered, highest first, with
// ties broken by menu item id. A non-positive limit uses the default.
func (s *Service) TopSellers(ctx context.Context, limit int) ([]TopSeller, error) {
	if limit <= 0 {
		limit = s.limit
	}

	totals, err := s.orders.SumQuantities(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sum quantities")
	}
	Rank(totals)
	if len(totals) > limit {
		totals = totals[:limit]
	}
	if len(totals) == 0 {
		return []TopSeller{}, nil
	}

	ids := make([]string, len(totals))
	for i, t := range totals {
		ids[i] = t.MenuItemID
	}
	items, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve top sellers")
	}
	byID := make(map[string]menu.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	out := make([]TopSeller, len(totals))
	for i, t := range totals {
		out[i] = TopSeller{MenuItemID: t.MenuItemID, TotalQty: t.Quantity}
		if it, ok := byID[t.MenuItemID]; ok {
			out[i].Item = &it
		}
	}
	return out, nil
}

// Rank sorts totals by quantity descending, then by menu item id.
func Rank(totals []ItemTotal) {
	slices.SortFunc(totals, func(a, b ItemTotal) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return cmp.Compare(a.MenuItemID, b.MenuItemID)
	})
}
