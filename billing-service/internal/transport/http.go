package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-backend/billing-service/internal/billing"
	"restaurant-backend/billing-service/internal/handler"
)

func NewRouter(svc billing.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	h := handler.NewBillHandler(svc)

	r.Route("/bills", func(r chi.Router) {
		r.Post("/generate/{orderID}", h.GenerateBill)
		r.Get("/", h.ListBills)
		r.Get("/order/{orderID}", h.GetBillByOrder)
		r.Get("/{id}", h.GetBill)
		r.Post("/{id}/pay", h.PayBill)
		r.Post("/{id}/discount", h.ApplyDiscount)
		r.Post("/{id}/cancel", h.CancelBill)
		r.Delete("/{id}", h.DeleteBill)
	})

	return r
}
