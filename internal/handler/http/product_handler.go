package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/stock-ledger/internal/catalog"
)

type ProductRequest struct {
	Name           string          `json:"name" validate:"required"`
	CategoryID     *string         `json:"category_id,omitempty" validate:"omitempty,uuid4"`
	ColorID        *string         `json:"color_id,omitempty" validate:"omitempty,uuid4"`
	Size           string          `json:"size,omitempty"`
	Quantity       int             `json:"quantity" validate:"min=0"`
	Price          decimal.Decimal `json:"price"`
	AlertThreshold *int            `json:"alert_threshold,omitempty" validate:"omitempty,min=0"`
}

type ProductHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewProductHandler(service catalog.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/low-stock", h.handleListLowStock)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Post("/products", h.handleCreateProduct)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (*catalog.Product, bool) {
	var requestPayload ProductRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode product request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return nil, false
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return nil, false
	}

	p := &catalog.Product{
		Name:           requestPayload.Name,
		Size:           requestPayload.Size,
		Quantity:       requestPayload.Quantity,
		Price:          requestPayload.Price,
		AlertThreshold: 5,
	}
	if requestPayload.AlertThreshold != nil {
		p.AlertThreshold = *requestPayload.AlertThreshold
	}
	if requestPayload.CategoryID != nil {
		id, err := uuid.FromString(*requestPayload.CategoryID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid category id")
			return nil, false
		}
		p.CategoryID = &id
	}
	if requestPayload.ColorID != nil {
		id, err := uuid.FromString(*requestPayload.ColorID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid color id")
			return nil, false
		}
		p.ColorID = &id
	}
	return p, true
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleListLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListLowStock(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list low-stock products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	p, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to get product"))
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), p)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to create product"))
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	p.ID = productID

	updated, err := h.service.UpdateProduct(r.Context(), p)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to update product"))
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), productID); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to delete product"))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}
