package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/menu"
)

const menuColumns = `id, name, category, price, description, ingredients, is_available,
	preparation_time, image_url, created_at, updated_at`

const (
	getMenuItemSQL = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = $1`

	getMenuItemsSQL = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = ANY($1)`

	insertMenuItemSQL = `INSERT INTO menu_items (` + menuColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateMenuItemSQL = `UPDATE menu_items SET name = $2, category = $3, price = $4, description = $5,
		ingredients = $6, is_available = $7, preparation_time = $8, image_url = $9, updated_at = $10
		WHERE id = $1`

	deleteMenuItemSQL = `DELETE FROM menu_items WHERE id = $1`

	toggleMenuItemSQL = `UPDATE menu_items SET is_available = NOT is_available, updated_at = now()
		WHERE id = $1 RETURNING ` + menuColumns
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// Search returns matching items, newest first.
func (r *MenuRepository) Search(ctx context.Context, f menu.Filter) ([]menu.Item, error) {
	query, args := searchQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err, "search menu items")
	}
	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, apperr.Storage(err, "scan menu items")
	}
	return items, nil
}

// searchQuery builds the filtered SELECT. Free text is split into tokens; a
// row matches when any token occurs in the name, description or ingredients.
func searchQuery(f menu.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if tokens := f.Tokens(); len(tokens) > 0 {
		alts := make([]string, len(tokens))
		for i, tok := range tokens {
			p := arg("%" + escapeLike(tok) + "%")
			alts[i] = "name ILIKE " + p +
				" OR description ILIKE " + p +
				" OR array_to_string(ingredients, ' ') ILIKE " + p
		}
		conds = append(conds, "("+strings.Join(alts, " OR ")+")")
	}
	if f.Category != nil {
		conds = append(conds, "category = "+arg(string(*f.Category)))
	}
	if f.IsAvailable != nil {
		conds = append(conds, "is_available = "+arg(*f.IsAvailable))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}

	var b strings.Builder
	b.WriteString("SELECT " + menuColumns + " FROM menu_items")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id")
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GetByID returns one item or menu.ErrNotFound.
func (r *MenuRepository) GetByID(ctx context.Context, id string) (*menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemSQL, id)
	if err != nil {
		return nil, apperr.Storage(err, "get menu item")
	}
	return collectMenuItem(rows)
}

// GetByIDs returns the items that still exist among ids, in no particular
// order.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, getMenuItemsSQL, ids)
	if err != nil {
		return nil, apperr.Storage(err, "get menu items")
	}
	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, apperr.Storage(err, "scan menu items")
	}
	return items, nil
}

// Create inserts item.
func (r *MenuRepository) Create(ctx context.Context, item *menu.Item) error {
	_, err := r.pool.Exec(ctx, insertMenuItemSQL,
		item.ID, item.Name, string(item.Category), item.Price, item.Description,
		ingredients(item.Ingredients), item.IsAvailable, item.PreparationTime, item.ImageURL,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return apperr.Storage(err, "insert menu item")
	}
	return nil
}

// Update overwrites every mutable column of item.
func (r *MenuRepository) Update(ctx context.Context, item *menu.Item) error {
	tag, err := r.pool.Exec(ctx, updateMenuItemSQL,
		item.ID, item.Name, string(item.Category), item.Price, item.Description,
		ingredients(item.Ingredients), item.IsAvailable, item.PreparationTime, item.ImageURL,
		item.UpdatedAt,
	)
	if err != nil {
		return apperr.Storage(err, "update menu item")
	}
	if tag.RowsAffected() == 0 {
		return menu.ErrNotFound
	}
	return nil
}

// Delete removes an item.
func (r *MenuRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteMenuItemSQL, id)
	if err != nil {
		return apperr.Storage(err, "delete menu item")
	}
	if tag.RowsAffected() == 0 {
		return menu.ErrNotFound
	}
	return nil
}

// ToggleAvailability flips is_available in one statement and returns the
// updated row.
func (r *MenuRepository) ToggleAvailability(ctx context.Context, id string) (*menu.Item, error) {
	rows, err := r.pool.Query(ctx, toggleMenuItemSQL, id)
	if err != nil {
		return nil, apperr.Storage(err, "toggle availability")
	}
	return collectMenuItem(rows)
}

func collectMenuItem(rows pgx.Rows) (*menu.Item, error) {
	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, apperr.Storage(err, "scan menu item")
	}
	return &item, nil
}

func scanMenuItem(row pgx.CollectableRow) (menu.Item, error) {
	var (
		it       menu.Item
		category string
	)
	err := row.Scan(
		&it.ID, &it.Name, &category, &it.Price, &it.Description, &it.Ingredients,
		&it.IsAvailable, &it.PreparationTime, &it.ImageURL, &it.CreatedAt, &it.UpdatedAt,
	)
	it.Category = menu.Category(category)
	return it, err
}

// ingredients keeps the NOT NULL column satisfied for items without any.
func ingredients(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
