package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/stock-ledger/internal/accounting"
)

type CreateTransactionRequest struct {
	Type            string          `json:"type" validate:"required,oneof=revenue expense"`
	Category        string          `json:"category" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description,omitempty"`
	TransactionDate *time.Time      `json:"transaction_date,omitempty"`
}

type AccountingHandler struct {
	service  accounting.Service
	validate *validator.Validate
}

func NewAccountingHandler(service accounting.Service) *AccountingHandler {
	return &AccountingHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *AccountingHandler) RegisterRoutes(router chi.Router) {
	router.Get("/transactions", h.handleListTransactions)
	router.Post("/transactions", h.handleCreateTransaction)
	router.Delete("/transactions/{id}", h.handleDeleteTransaction)
	router.Get("/accounting/summary", h.handleSummary)
}

func (h *AccountingHandler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var filter accounting.Filter
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		t := accounting.Type(v)
		if !t.Valid() {
			respondWithError(w, http.StatusBadRequest, "Invalid type, expected revenue or expense")
			return
		}
		filter.Type = &t
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid start_date, expected RFC3339")
			return
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid end_date, expected RFC3339")
			return
		}
		filter.EndDate = &t
	}

	transactions, err := h.service.ListTransactions(r.Context(), identity.ID, filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	respondWithJSON(w, http.StatusOK, transactions)
}

func (h *AccountingHandler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	var requestPayload CreateTransactionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create transaction request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return
	}

	t := &accounting.Transaction{
		Type:        accounting.Type(requestPayload.Type),
		Category:    requestPayload.Category,
		Amount:      requestPayload.Amount,
		Description: requestPayload.Description,
		CreatedBy:   identity.ID,
	}
	if requestPayload.TransactionDate != nil {
		t.TransactionDate = *requestPayload.TransactionDate
	}

	created, err := h.service.RecordManual(r.Context(), t)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to record transaction"))
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *AccountingHandler) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	transactionID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), transactionID, identity.ID); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to delete transaction"))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted"})
}

func (h *AccountingHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summarize(r.Context(), identity.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to summarize transactions")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
