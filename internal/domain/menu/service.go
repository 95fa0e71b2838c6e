package menu

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/apperr"
)

// Service implements catalog operations on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a catalog Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Search returns the items matching f, newest first.
func (s *Service) Search(ctx context.Context, f Filter) ([]Item, error) {
	if f.Category != nil && !f.Category.Valid() {
		return nil, invalidCategory(*f.Category)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, apperr.Invalid("minPrice", "minPrice must not exceed maxPrice")
	}
	items, err := s.repo.Search(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "search menu")
	}
	return items, nil
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id string) (*Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get menu item")
	}
	return item, nil
}

// Create validates d and stores a new item. Availability defaults to true.
func (s *Service) Create(ctx context.Context, d Draft) (*Item, error) {
	if strings.TrimSpace(d.Name) == "" || d.Category == "" || d.Price == nil {
		return nil, apperr.Invalid("", "Please provide all required fields: name, category, price")
	}
	if !d.Category.Valid() {
		return nil, invalidCategory(d.Category)
	}
	if err := validatePrice(*d.Price); err != nil {
		return nil, err
	}
	if err := validatePreparationTime(d.PreparationTime); err != nil {
		return nil, err
	}

	available := true
	if d.IsAvailable != nil {
		available = *d.IsAvailable
	}
	now := s.now().UTC()
	item := &Item{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(d.Name),
		Category:        d.Category,
		Price:           *d.Price,
		Description:     d.Description,
		Ingredients:     d.Ingredients,
		IsAvailable:     available,
		PreparationTime: d.PreparationTime,
		ImageURL:        d.ImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, errors.Wrap(err, "create menu item")
	}
	return item, nil
}

// Update applies p to the stored item. Fields absent from p keep their value.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Item, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get menu item")
	}

	p.apply(item)
	item.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, errors.Wrap(err, "update menu item")
	}
	return item, nil
}

// Delete removes an item. Past orders are unaffected.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete menu item")
	}
	return nil
}

// ToggleAvailability flips IsAvailable in a single store round trip.
// Concurrent toggles race with last-write-wins semantics.
func (s *Service) ToggleAvailability(ctx context.Context, id string) (*Item, error) {
	item, err := s.repo.ToggleAvailability(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "toggle availability")
	}
	return item, nil
}

func (p Patch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperr.Invalid("name", "name must not be empty")
	}
	if p.Category != nil && !p.Category.Valid() {
		return invalidCategory(*p.Category)
	}
	if p.Price != nil {
		if err := validatePrice(*p.Price); err != nil {
			return err
		}
	}
	return validatePreparationTime(p.PreparationTime)
}

func (p Patch) apply(item *Item) {
	if p.Name != nil {
		item.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Ingredients != nil {
		item.Ingredients = p.Ingredients
	}
	if p.IsAvailable != nil {
		item.IsAvailable = *p.IsAvailable
	}
	if p.PreparationTime != nil {
		item.PreparationTime = p.PreparationTime
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.Invalid("price", "price must not be negative")
	}
	return nil
}

func validatePreparationTime(minutes *int) error {
	if minutes != nil && *minutes < 0 {
		return apperr.Invalid("preparationTime", "preparationTime must not be negative")
	}
	return nil
}

func invalidCategory(c Category) error {
	names := make([]string, len(Categories))
	for i, v := range Categories {
		names[i] = string(v)
	}
	return apperr.Invalid("category", "Invalid category %q. Allowed values: %s", string(c), strings.Join(names, ", "))
}
