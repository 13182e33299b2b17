package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-backend/menu-service/internal/handler"
	"restaurant-backend/menu-service/internal/menu"
)

func NewRouter(svc menu.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	h := handler.NewDishHandler(svc)

	r.Route("/dishes", func(r chi.Router) {
		r.Post("/", h.CreateDish)
		r.Get("/", h.ListDishes)
		r.Get("/by-name", h.GetDishByName)
		r.Get("/{id}", h.GetDish)
		r.Put("/{id}", h.UpdateDish)
		r.Patch("/{id}/active", h.SetDishActive)
		r.Delete("/{id}", h.DeleteDish)
	})

	return r
}
