package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-backend/kitchen-service/internal/handler"
	"restaurant-backend/kitchen-service/internal/kitchen"
)

func NewRouter(svc kitchen.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	h := handler.NewKitchenHandler(svc)

	r.Route("/kitchen", func(r chi.Router) {
		r.Post("/queue", h.AddToQueue)
		r.Get("/queue", h.ActiveQueue)
		r.Get("/queue/all", h.AllQueue)
		r.Get("/queue/order/{orderID}", h.QueueByOrder)
		r.Get("/queue/{id}", h.GetQueueItem)
		r.Patch("/queue/{id}/status", h.UpdateStatus)
	})

	return r
}
