package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/stock-ledger/internal/auth"
	"github.com/vasiliy-maslov/stock-ledger/internal/catalog"
	"github.com/vasiliy-maslov/stock-ledger/internal/order"
)

type mockOrderService struct {
	createOrderFunc func(ctx context.Context, createdBy uuid.UUID, in order.CreateInput) (*order.Order, error)
	getOrderFunc    func(ctx context.Context, id, createdBy uuid.UUID) (*order.Order, error)
	listOrdersFunc  func(ctx context.Context, createdBy uuid.UUID) ([]order.Order, error)
	updateItemsFunc func(ctx context.Context, id, createdBy uuid.UUID, items []order.NewItem) (*order.Order, error)
	transitionFunc  func(ctx context.Context, id, createdBy uuid.UUID, target order.Status, finalPrice *decimal.Decimal) (*order.TransitionResult, error)
	deleteOrderFunc func(ctx context.Context, id, createdBy uuid.UUID) error
}

func (m *mockOrderService) CreateOrder(ctx context.Context, createdBy uuid.UUID, in order.CreateInput) (*order.Order, error) {
	return m.createOrderFunc(ctx, createdBy, in)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id, createdBy uuid.UUID) (*order.Order, error) {
	return m.getOrderFunc(ctx, id, createdBy)
}

func (m *mockOrderService) ListOrders(ctx context.Context, createdBy uuid.UUID) ([]order.Order, error) {
	return m.listOrdersFunc(ctx, createdBy)
}

func (m *mockOrderService) UpdateItems(ctx context.Context, id, createdBy uuid.UUID, items []order.NewItem) (*order.Order, error) {
	return m.updateItemsFunc(ctx, id, createdBy, items)
}

func (m *mockOrderService) Transition(ctx context.Context, id, createdBy uuid.UUID, target order.Status, finalPrice *decimal.Decimal) (*order.TransitionResult, error) {
	return m.transitionFunc(ctx, id, createdBy, target, finalPrice)
}

func (m *mockOrderService) DeleteOrder(ctx context.Context, id, createdBy uuid.UUID) error {
	return m.deleteOrderFunc(ctx, id, createdBy)
}

func newOrderRouter(svc order.Service) chi.Router {
	r := chi.NewRouter()
	NewOrderHandler(svc).RegisterRoutes(r)
	return r
}

func authedRequest(method, target string, body []byte, identity auth.Identity) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func validCreateBody(t *testing.T, productID uuid.UUID) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"customer_name":    "Awa Diop",
		"delivery_address": "12 Market Street",
		"delivery_date":    time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"items": []map[string]any{
			{"product_id": productID.String(), "quantity": 2},
		},
	})
	require.NoError(t, err)
	return body
}

func TestOrderHandler_Create(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}
	productID := uuid.Must(uuid.NewV4())

	t.Run("success", func(t *testing.T) {
		orderID := uuid.Must(uuid.NewV4())
		svc := &mockOrderService{
			createOrderFunc: func(ctx context.Context, createdBy uuid.UUID, in order.CreateInput) (*order.Order, error) {
				assert.Equal(t, identity.ID, createdBy)
				require.Len(t, in.Items, 1)
				assert.Equal(t, productID, in.Items[0].ProductID)
				return &order.Order{ID: orderID, Status: order.StatusPending, CreatedBy: createdBy}, nil
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/orders", validCreateBody(t, productID), identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var got order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, orderID, got.ID)
		assert.Equal(t, order.StatusPending, got.Status)
	})

	t.Run("malformed_json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/orders", []byte(`{"customer_name":`), identity)
		newOrderRouter(&mockOrderService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown_field_rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/orders", []byte(`{"customer_name":"A","surprise":true}`), identity)
		newOrderRouter(&mockOrderService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation_failure_lists_fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/orders", []byte(`{"customer_name":"Awa Diop"}`), identity)
		newOrderRouter(&mockOrderService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body ValidationErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Details)
	})

	t.Run("insufficient_stock_maps_to_400", func(t *testing.T) {
		svc := &mockOrderService{
			createOrderFunc: func(ctx context.Context, createdBy uuid.UUID, in order.CreateInput) (*order.Order, error) {
				return nil, catalog.ErrInsufficientStock
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/orders", validCreateBody(t, productID), identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown_product_maps_to_404", func(t *testing.T) {
		svc := &mockOrderService{
			createOrderFunc: func(ctx context.Context, createdBy uuid.UUID, in order.CreateInput) (*order.Order, error) {
				return nil, catalog.ErrProductNotFound
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/orders", validCreateBody(t, productID), identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing_identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(validCreateBody(t, productID)))
		newOrderRouter(&mockOrderService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOrderHandler_Get(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}
	orderID := uuid.Must(uuid.NewV4())

	t.Run("found", func(t *testing.T) {
		svc := &mockOrderService{
			getOrderFunc: func(ctx context.Context, id, createdBy uuid.UUID) (*order.Order, error) {
				assert.Equal(t, orderID, id)
				assert.Equal(t, identity.ID, createdBy)
				return &order.Order{ID: id, Status: order.StatusPending}, nil
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/orders/"+orderID.String(), nil, identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &mockOrderService{
			getOrderFunc: func(ctx context.Context, id, createdBy uuid.UUID) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/orders/"+orderID.String(), nil, identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/orders/not-a-uuid", nil, identity)
		newOrderRouter(&mockOrderService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}
	orderID := uuid.Must(uuid.NewV4())

	t.Run("sold_with_final_price", func(t *testing.T) {
		settled := decimal.RequireFromString("270.00")
		svc := &mockOrderService{
			transitionFunc: func(ctx context.Context, id, createdBy uuid.UUID, target order.Status, finalPrice *decimal.Decimal) (*order.TransitionResult, error) {
				assert.Equal(t, order.StatusSold, target)
				require.NotNil(t, finalPrice)
				assert.True(t, settled.Equal(*finalPrice))
				return &order.TransitionResult{Status: order.StatusSold, FinalPrice: finalPrice}, nil
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status",
			[]byte(`{"status":"sold","final_price":"270.00"}`), identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("sold_with_accounting_warning", func(t *testing.T) {
		svc := &mockOrderService{
			transitionFunc: func(ctx context.Context, id, createdBy uuid.UUID, target order.Status, finalPrice *decimal.Decimal) (*order.TransitionResult, error) {
				return &order.TransitionResult{
					Status:  order.StatusSold,
					Warning: "sale recorded, but the accounting entry could not be written",
				}, nil
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status",
			[]byte(`{"status":"sold"}`), identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var result order.TransitionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.NotEmpty(t, result.Warning)
	})

	t.Run("invalid_transition", func(t *testing.T) {
		svc := &mockOrderService{
			transitionFunc: func(ctx context.Context, id, createdBy uuid.UUID, target order.Status, finalPrice *decimal.Decimal) (*order.TransitionResult, error) {
				return nil, order.ErrInvalidTransition
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status",
			[]byte(`{"status":"sold"}`), identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing_status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status", []byte(`{}`), identity)
		newOrderRouter(&mockOrderService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_UpdateItems(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}
	orderID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	t.Run("success", func(t *testing.T) {
		svc := &mockOrderService{
			updateItemsFunc: func(ctx context.Context, id, createdBy uuid.UUID, items []order.NewItem) (*order.Order, error) {
				require.Len(t, items, 1)
				assert.Equal(t, 3, items[0].Quantity)
				return &order.Order{ID: id, Status: order.StatusPending}, nil
			},
		}

		body := []byte(`{"items":[{"product_id":"` + productID.String() + `","quantity":3}]}`)
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPut, "/orders/"+orderID.String(), body, identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not_editable", func(t *testing.T) {
		svc := &mockOrderService{
			updateItemsFunc: func(ctx context.Context, id, createdBy uuid.UUID, items []order.NewItem) (*order.Order, error) {
				return nil, order.ErrOrderNotEditable
			},
		}

		body := []byte(`{"items":[{"product_id":"` + productID.String() + `","quantity":3}]}`)
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPut, "/orders/"+orderID.String(), body, identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty_items", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPut, "/orders/"+orderID.String(), []byte(`{"items":[]}`), identity)
		newOrderRouter(&mockOrderService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_Delete(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}
	orderID := uuid.Must(uuid.NewV4())

	t.Run("success", func(t *testing.T) {
		svc := &mockOrderService{
			deleteOrderFunc: func(ctx context.Context, id, createdBy uuid.UUID) error {
				assert.Equal(t, orderID, id)
				return nil
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodDelete, "/orders/"+orderID.String(), nil, identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Order deleted"}`, rec.Body.String())
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &mockOrderService{
			deleteOrderFunc: func(ctx context.Context, id, createdBy uuid.UUID) error {
				return order.ErrOrderNotFound
			},
		}

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodDelete, "/orders/"+orderID.String(), nil, identity)
		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
