package handler

import (
	"net/http"
	"strconv"

	"github.com/xenking/backoffice/internal/api"
	"github.com/xenking/backoffice/internal/apperr"
)

func (h *Handler) topSellers(w http.ResponseWriter, r *http.Request) {
	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, apperr.Invalid("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	sellers, err := h.analytics.TopSellers(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewTopSellers(sellers))
}
