package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"restaurant-backend/order-service/internal/order"
	"restaurant-backend/order-service/internal/registry"
	"restaurant-backend/pkg/apperror"
)

// OrderHandler handles HTTP requests for orders, tables and employees.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), input)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), id)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input order.AddItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.svc.AddItem(r.Context(), id, input)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}

	o, err := h.svc.RemoveItem(r.Context(), orderID, itemID)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) SendToKitchen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.svc.SendToKitchen(r.Context(), id)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.svc.CloseOrder(r.Context(), id)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var t registry.RestaurantTable
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.CreateTable(r.Context(), &t); err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

func (h *OrderHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.ListTables(r.Context())
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tables)
}

func (h *OrderHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var e registry.Employee
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.CreateEmployee(r.Context(), &e); err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

func (h *OrderHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.svc.ListEmployees(r.Context())
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, employees)
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
