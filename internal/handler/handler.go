// Package handler implements the back-office REST API on top of the domain
// services.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/backoffice/internal/apperr"
	"github.com/xenking/backoffice/internal/domain/analytics"
	"github.com/xenking/backoffice/internal/domain/menu"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// MenuService is the catalog as seen by the transport.
type MenuService interface {
	Search(ctx context.Context, f menu.Filter) ([]menu.Item, error)
	Get(ctx context.Context, id string) (*menu.Item, error)
	Create(ctx context.Context, d menu.Draft) (*menu.Item, error)
	Update(ctx context.Context, id string, p menu.Patch) (*menu.Item, error)
	Delete(ctx context.Context, id string) error
	ToggleAvailability(ctx context.Context, id string) (*menu.Item, error)
}

// OrderService is the order lifecycle as seen by the transport.
type OrderService interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Detail, error)
	Get(ctx context.Context, id string) (*order.Detail, error)
	List(ctx context.Context, page int, status string) (*order.Page, error)
	SetStatus(ctx context.Context, id, status string) (*order.Detail, error)
}

// AnalyticsService computes sales figures.
type AnalyticsService interface {
	TopSellers(ctx context.Context, limit int) ([]analytics.TopSeller, error)
}

// Handler serves the REST API.
type Handler struct {
	menu      MenuService
	orders    OrderService
	analytics AnalyticsService
}

// New creates a Handler.
func New(menu MenuService, orders OrderService, analytics AnalyticsService) *Handler {
	return &Handler{menu: menu, orders: orders, analytics: analytics}
}

// RegisterRoutes adds the API routes to r. Route names double as operation
// names in logs and traces.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/menu", h.searchMenu).Methods(http.MethodGet).Name("searchMenu")
	api.HandleFunc("/menu/search", h.searchMenu).Methods(http.MethodGet).Name("searchMenuAlias")
	api.HandleFunc("/menu", h.createMenuItem).Methods(http.MethodPost).Name("createMenuItem")
	api.HandleFunc("/menu/{id}", h.getMenuItem).Methods(http.MethodGet).Name("getMenuItem")
	api.HandleFunc("/menu/{id}", h.updateMenuItem).Methods(http.MethodPut).Name("updateMenuItem")
	api.HandleFunc("/menu/{id}", h.deleteMenuItem).Methods(http.MethodDelete).Name("deleteMenuItem")
	api.HandleFunc("/menu/{id}/availability", h.toggleAvailability).Methods(http.MethodPatch).Name("toggleAvailability")

	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet).Name("listOrders")
	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost).Name("createOrder")
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet).Name("getOrder")
	api.HandleFunc("/orders/{id}/status", h.updateOrderStatus).Methods(http.MethodPatch).Name("updateOrderStatus")

	api.HandleFunc("/analytics/top-sellers", h.topSellers).Methods(http.MethodGet).Name("topSellers")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteMessage(w, http.StatusNotFound, "Route not found")
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Only server-side failures are logged;
// their details never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *apperr.ValidationError
		notFound *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &invalid):
		httpmiddleware.WriteMessage(w, http.StatusBadRequest, invalid.Message)
	case errors.As(err, &notFound):
		httpmiddleware.WriteMessage(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		w.WriteHeader(499)
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("route", routeName(r)),
			zap.Error(err),
		)
		httpmiddleware.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("body", "Invalid request body")
	}
	return nil
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}
