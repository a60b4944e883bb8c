package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/stock-ledger/internal/accounting"
	"github.com/vasiliy-maslov/stock-ledger/internal/auth"
	"github.com/vasiliy-maslov/stock-ledger/internal/catalog"
	"github.com/vasiliy-maslov/stock-ledger/internal/order"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = "failed on the '" + fe.Tag() + "' rule"
	}
	return details
}

// respondWithError sends a JSON error body.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
		return
	}
	log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, accounting.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrNoItems),
		errors.Is(err, order.ErrInvalidOrder),
		errors.Is(err, order.ErrOrderNotEditable),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrFinalPriceRequired),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, catalog.ErrInvalidReference),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, accounting.ErrInvalidTransaction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the caller-safe message for err: the sentinel text
// for taxonomy errors, the fallback for anything internal.
func clientMessage(err error, fallback string) string {
	if mapErrorToStatusCode(err) == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}

// identityFromRequest extracts the caller identity stashed by the auth
// middleware. The middleware guarantees it; the guard is for mis-wired routes.
func identityFromRequest(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authorization required")
		return auth.Identity{}, false
	}
	return identity, true
}
