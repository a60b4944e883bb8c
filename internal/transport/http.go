package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/stock-ledger/internal/accounting"
	"github.com/vasiliy-maslov/stock-ledger/internal/auth"
	"github.com/vasiliy-maslov/stock-ledger/internal/catalog"
	handlerhttp "github.com/vasiliy-maslov/stock-ledger/internal/handler/http"
	"github.com/vasiliy-maslov/stock-ledger/internal/order"
	"github.com/vasiliy-maslov/stock-ledger/internal/sales"
)

// NewRouter assembles repositories, services, and handlers on top of the
// shared pool. Everything under /api requires a resolvable identity.
func NewRouter(pool *pgxpool.Pool, verifier auth.Verifier) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	})

	productRepo := catalog.NewRepository(pool)
	productSvc := catalog.NewService(productRepo)

	salesRepo := sales.NewRepository(pool)
	salesSvc := sales.NewService(salesRepo)

	accountingRepo := accounting.NewRepository(pool)
	accountingSvc := accounting.NewService(accountingRepo)

	orderRepo := order.NewRepository(pool, productRepo, salesRepo)
	orderSvc := order.NewService(orderRepo, accountingSvc)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(verifier))

		handlerhttp.NewProductHandler(productSvc).RegisterRoutes(r)
		handlerhttp.NewOrderHandler(orderSvc).RegisterRoutes(r)
		handlerhttp.NewSalesHandler(salesSvc).RegisterRoutes(r)
		handlerhttp.NewAccountingHandler(accountingSvc).RegisterRoutes(r)
	})

	return r
}
