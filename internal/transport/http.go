package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/grocery-shop/internal/catalog"
	"github.com/vasiliy-maslov/grocery-shop/internal/customer"
	"github.com/vasiliy-maslov/grocery-shop/internal/handler"
	"github.com/vasiliy-maslov/grocery-shop/internal/notify"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
)

func NewRouter(pool *pgxpool.Pool, events notify.Publisher) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	catalogRepo := catalog.NewRepository(pool)
	catalogSvc := catalog.NewService(catalogRepo)
	productHandler := handler.NewProductHandler(catalogSvc)

	customerRepo := customer.NewRepository()
	orderRepo := order.NewRepository(pool)
	orderSvc := order.NewService(orderRepo, customerRepo, catalogRepo, events)
	orderHandler := handler.NewOrderHandler(orderSvc)

	r.Get("/categories", productHandler.ListCategories)
	r.Get("/products", productHandler.ListProducts)
	r.Get("/products/{id}", productHandler.GetProduct)

	r.Post("/orders", orderHandler.CreateOrder)
	r.Get("/orders", orderHandler.ListOrders)
	r.Get("/orders/{id}", orderHandler.GetOrder)
	r.Post("/orders/{id}/update_status", orderHandler.UpdateStatus)
	r.Post("/orders/{id}/payments", orderHandler.RecordPayment)

	return r
}
