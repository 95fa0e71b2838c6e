package menu

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/apperr"
)

// ErrNotFound is returned when a menu item id does not resolve.
var ErrNotFound = apperr.NotFound("Menu item")

// Category is one of the fixed menu sections.
type Category string

const (
	CategoryAppetizer  Category = "Appetizer"
	CategoryMainCourse Category = "Main Course"
	CategoryDessert    Category = "Dessert"
	CategoryBeverage   Category = "Beverage"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryAppetizer,
	CategoryMainCourse,
	CategoryDessert,
	CategoryBeverage,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Item is a sellable catalog entry. It is the source of truth for the current
// price and availability; orders keep their own copy of the price.
type Item struct {
	ID              string
	Name            string
	Category        Category
	Price           decimal.Decimal
	Description     string
	Ingredients     []string
	IsAvailable     bool
	PreparationTime *int
	ImageURL        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter constrains a catalog search. Nil fields impose no constraint.
type Filter struct {
	Text        string
	Category    *Category
	IsAvailable *bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
}

// Tokens splits the free-text part of the filter into lowercase search terms.
func (f Filter) Tokens() []string {
	return strings.Fields(strings.ToLower(f.Text))
}

// Matches reports whether item satisfies every present constraint of f. The
// text constraint holds when any token is a case-insensitive substring of the
// name, the description or one of the ingredients.
func (f Filter) Matches(item Item) bool {
	if f.Category != nil && item.Category != *f.Category {
		return false
	}
	if f.IsAvailable != nil && item.IsAvailable != *f.IsAvailable {
		return false
	}
	if f.MinPrice != nil && item.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && item.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	tokens := f.Tokens()
	if len(tokens) == 0 {
		return true
	}
	fields := make([]string, 0, len(item.Ingredients)+2)
	fields = append(fields, strings.ToLower(item.Name), strings.ToLower(item.Description))
	for _, ing := range item.Ingredients {
		fields = append(fields, strings.ToLower(ing))
	}
	for _, tok := range tokens {
		for _, field := range fields {
			if strings.Contains(field, tok) {
				return true
			}
		}
	}
	return false
}

// Draft holds the fields of a menu item being created. Name, Category and
// Price are required.
type Draft struct {
	Name            string
	Category        Category
	Price           *decimal.Decimal
	Description     string
	Ingredients     []string
	IsAvailable     *bool
	PreparationTime *int
	ImageURL        string
}

// Patch is a partial update. Nil fields keep the stored value.
type Patch struct {
	Name            *string
	Category        *Category
	Price           *decimal.Decimal
	Description     *string
	Ingredients     []string
	IsAvailable     *bool
	PreparationTime *int
	ImageURL        *string
}

// Repository persists menu items.
type Repository interface {
	Search(ctx context.Context, f Filter) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	ToggleAvailability(ctx context.Context, id string) (*Item, error)
}
