package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"restaurant-backend/kitchen-service/internal/kitchen"
	"restaurant-backend/pkg/apperror"
)

// KitchenHandler handles HTTP requests for the kitchen queue.
type KitchenHandler struct {
	svc kitchen.Service
}

func NewKitchenHandler(svc kitchen.Service) *KitchenHandler {
	return &KitchenHandler{svc: svc}
}

// AddToQueue is the synchronous ingestion path. Re-pushing an already queued
// order item answers 200 instead of 201; the caller treats both as success.
func (h *KitchenHandler) AddToQueue(w http.ResponseWriter, r *http.Request) {
	var input kitchen.AddToQueueInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, created, err := h.svc.AddToQueue(r.Context(), input)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, item)
}

func (h *KitchenHandler) ActiveQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ActiveQueue(r.Context())
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *KitchenHandler) AllQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.AllQueue(r.Context())
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *KitchenHandler) QueueByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	items, err := h.svc.QueueByOrderID(r.Context(), orderID)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *KitchenHandler) GetQueueItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.svc.GetQueueItemByID(r.Context(), id)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *KitchenHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Status kitchen.DishStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	item, err := h.svc.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
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
