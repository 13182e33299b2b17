package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-backend/order-service/internal/handler"
	"restaurant-backend/order-service/internal/order"
)

func NewRouter(svc order.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	h := handler.NewOrderHandler(svc)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/items", h.AddItem)
		r.Delete("/{id}/items/{itemID}", h.RemoveItem)
		r.Post("/{id}/send-to-kitchen", h.SendToKitchen)
		r.Post("/{id}/close", h.CloseOrder)
	})

	r.Route("/tables", func(r chi.Router) {
		r.Post("/", h.CreateTable)
		r.Get("/", h.ListTables)
	})

	r.Route("/employees", func(r chi.Router) {
		r.Post("/", h.CreateEmployee)
		r.Get("/", h.ListEmployees)
	})

	return r
}
