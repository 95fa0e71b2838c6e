package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/backoffice/internal/api"
	"github.com/xenking/backoffice/internal/apperr"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Unparsable page numbers fall back to the first page.
	page, err := strconv.Atoi(q.Get("pageNumber"))
	if err != nil {
		page = 1
	}

	p, err := h.orders.List(r.Context(), page, q.Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewOrderPage(*p))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	d, err := h.orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewOrder(*d))
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req api.CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.Domain()
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.orders.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.NewOrder(*d))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	status, err := decodeStatus(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.orders.SetStatus(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewOrder(*d))
}

// decodeStatus reads {"status": "..."}; other fields are ignored.
func decodeStatus(r *http.Request) (string, error) {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return "", apperr.Invalid("body", "Invalid request body")
	}

	var status string
	err = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		status = v
		return err
	})
	if err != nil {
		return "", apperr.Invalid("body", "Invalid request body")
	}
	return status, nil
}
