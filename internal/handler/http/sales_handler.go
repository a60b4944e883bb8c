package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/stock-ledger/internal/sales"
)

type SalesHandler struct {
	service sales.Service
}

func NewSalesHandler(service sales.Service) *SalesHandler {
	return &SalesHandler{service: service}
}

func (h *SalesHandler) RegisterRoutes(router chi.Router) {
	router.Get("/sales", h.handleListSales)
	router.Get("/sales/total", h.handleSalesTotal)
	router.Get("/sales/stats", h.handleSalesStats)
}

// salesFilterFromQuery parses the optional filter query params. A malformed
// value is a client error, not a silently dropped filter.
func salesFilterFromQuery(r *http.Request) (sales.Filter, string) {
	var f sales.Filter
	q := r.URL.Query()

	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, "Invalid start_date, expected RFC3339"
		}
		f.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, "Invalid end_date, expected RFC3339"
		}
		f.EndDate = &t
	}
	if v := q.Get("product_id"); v != "" {
		id, err := uuid.FromString(v)
		if err != nil {
			return f, "Invalid product_id"
		}
		f.ProductID = &id
	}
	if v := q.Get("category"); v != "" {
		f.Category = &v
	}
	return f, ""
}

func (h *SalesHandler) handleListSales(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	filter, errMsg := salesFilterFromQuery(r)
	if errMsg != "" {
		respondWithError(w, http.StatusBadRequest, errMsg)
		return
	}

	records, err := h.service.ListSales(r.Context(), identity.ID, filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list sales")
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (h *SalesHandler) handleSalesTotal(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	filter, errMsg := salesFilterFromQuery(r)
	if errMsg != "" {
		respondWithError(w, http.StatusBadRequest, errMsg)
		return
	}

	total, err := h.service.SalesTotal(r.Context(), identity.ID, filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute sales total")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]decimal.Decimal{"total": total})
}

func (h *SalesHandler) handleSalesStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	stats, err := h.service.SalesStats(r.Context(), identity.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute sales stats")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
