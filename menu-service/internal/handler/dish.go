package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"restaurant-backend/menu-service/internal/menu"
	"restaurant-backend/pkg/apperror"
)

type DishHandler struct {
	svc menu.Service
}

func NewDishHandler(svc menu.Service) *DishHandler {
	return &DishHandler{svc: svc}
}

func (h *DishHandler) CreateDish(w http.ResponseWriter, r *http.Request) {
	var input menu.CreateDishInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dish, err := h.svc.CreateDish(r.Context(), input)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dish)
}

func (h *DishHandler) GetDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	dish, err := h.svc.GetDishByID(r.Context(), id)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dish)
}

func (h *DishHandler) GetDishByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	dish, err := h.svc.GetDishByName(r.Context(), name)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dish)
}

func (h *DishHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	var category *menu.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c := menu.Category(raw)
		if !c.Valid() {
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}
		category = &c
	}

	dishes, err := h.svc.ListDishes(r.Context(), activeOnly, category)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dishes)
}

func (h *DishHandler) UpdateDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input menu.UpdateDishInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dish, err := h.svc.UpdateDish(r.Context(), id, input)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dish)
}

func (h *DishHandler) SetDishActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.SetDishActive(r.Context(), id, body.IsActive); err != nil {
		apperror.Render(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DishHandler) DeleteDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteDish(r.Context(), id); err != nil {
		apperror.Render(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.FromString(raw)
	if err != nil {
		http.Error(w, param+" must be a valid UUID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Info().Msgf("Failed to encode response: %v", err)
	}
}
