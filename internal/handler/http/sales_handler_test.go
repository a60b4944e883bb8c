package http

import (
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
	"github.com/vasiliy-maslov/stock-ledger/internal/sales"
)

type mockSalesService struct {
	listSalesFunc  func(ctx context.Context, createdBy uuid.UUID, f sales.Filter) ([]sales.SaleRecord, error)
	salesTotalFunc func(ctx context.Context, createdBy uuid.UUID, f sales.Filter) (decimal.Decimal, error)
	salesStatsFunc func(ctx context.Context, createdBy uuid.UUID) (*sales.Stats, error)
}

func (m *mockSalesService) ListSales(ctx context.Context, createdBy uuid.UUID, f sales.Filter) ([]sales.SaleRecord, error) {
	return m.listSalesFunc(ctx, createdBy, f)
}

func (m *mockSalesService) SalesTotal(ctx context.Context, createdBy uuid.UUID, f sales.Filter) (decimal.Decimal, error) {
	return m.salesTotalFunc(ctx, createdBy, f)
}

func (m *mockSalesService) SalesStats(ctx context.Context, createdBy uuid.UUID) (*sales.Stats, error) {
	return m.salesStatsFunc(ctx, createdBy)
}

func newSalesRouter(svc sales.Service) chi.Router {
	r := chi.NewRouter()
	NewSalesHandler(svc).RegisterRoutes(r)
	return r
}

func TestSalesHandler_List(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}

	t.Run("passes_parsed_filter", func(t *testing.T) {
		productID := uuid.Must(uuid.NewV4())
		svc := &mockSalesService{
			listSalesFunc: func(ctx context.Context, createdBy uuid.UUID, f sales.Filter) ([]sales.SaleRecord, error) {
				assert.Equal(t, identity.ID, createdBy)
				require.NotNil(t, f.StartDate)
				assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), f.StartDate.UTC())
				require.NotNil(t, f.ProductID)
				assert.Equal(t, productID, *f.ProductID)
				require.NotNil(t, f.Category)
				assert.Equal(t, "boubou", *f.Category)
				return []sales.SaleRecord{}, nil
			},
		}

		target := "/sales?start_date=2026-01-01T00:00:00Z&product_id=" + productID.String() + "&category=boubou"
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, target, nil, identity)
		newSalesRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed_start_date", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/sales?start_date=yesterday", nil, identity)
		newSalesRouter(&mockSalesService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed_product_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/sales?product_id=nope", nil, identity)
		newSalesRouter(&mockSalesService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing_identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/sales", nil)
		newSalesRouter(&mockSalesService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSalesHandler_Total(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}

	svc := &mockSalesService{
		salesTotalFunc: func(ctx context.Context, createdBy uuid.UUID, f sales.Filter) (decimal.Decimal, error) {
			return decimal.RequireFromString("1234.50"), nil
		},
	}

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/sales/total", nil, identity)
	newSalesRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]decimal.Decimal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, decimal.RequireFromString("1234.50").Equal(body["total"]))
}

func TestSalesHandler_Stats(t *testing.T) {
	identity := auth.Identity{ID: uuid.Must(uuid.NewV4()), Role: "admin"}

	svc := &mockSalesService{
		salesStatsFunc: func(ctx context.Context, createdBy uuid.UUID) (*sales.Stats, error) {
			return &sales.Stats{
				Total: decimal.NewFromInt(500),
				Count: 3,
				ByCategory: []sales.CategoryStat{
					{CategoryName: "boubou", Count: 2, Total: decimal.NewFromInt(400)},
				},
				CurrentMonthTotal: decimal.NewFromInt(100),
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/sales/stats", nil, identity)
	newSalesRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var stats sales.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 3, stats.Count)
	require.Len(t, stats.ByCategory, 1)
}
