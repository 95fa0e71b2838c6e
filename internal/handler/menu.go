package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/api"
	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/menu"
	"github.com/xenking/backoffice/pkg/httpmiddleware"
)

func (h *Handler) searchMenu(w http.ResponseWriter, r *http.Request) {
	f, err := parseMenuFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.menu.Search(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewMenuItems(items))
}

// parseMenuFilter reads q, category, isAvailable, minPrice and maxPrice. Empty
// parameters impose no constraint.
func parseMenuFilter(r *http.Request) (menu.Filter, error) {
	q := r.URL.Query()
	f := menu.Filter{Text: strings.TrimSpace(q.Get("q"))}

	if v := q.Get("category"); v != "" {
		c := menu.Category(v)
		f.Category = &c
	}
	if v := q.Get("isAvailable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.Invalid("isAvailable", "isAvailable must be true or false")
		}
		f.IsAvailable = &b
	}

	var err error
	if f.MinPrice, err = parsePrice(q.Get("minPrice"), "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice(q.Get("maxPrice"), "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

func parsePrice(v, field string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, apperr.Invalid(field, "%s must be a number", field)
	}
	return &d, nil
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.menu.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewMenuItem(*item))
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var in api.MenuItemInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.menu.Create(r.Context(), in.Draft())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.NewMenuItem(*item))
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in api.MenuItemInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.menu.Update(r.Context(), mux.Vars(r)["id"], in.Patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewMenuItem(*item))
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.menu.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	httpmiddleware.WriteMessage(w, http.StatusOK, "Menu item removed")
}

func (h *Handler) toggleAvailability(w http.ResponseWriter, r *http.Request) {
	item, err := h.menu.ToggleAvailability(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewMenuItem(*item))
}
