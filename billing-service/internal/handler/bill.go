package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"restaurant-backend/billing-service/internal/billing"
	"restaurant-backend/pkg/apperror"
)

type BillHandler struct {
	svc billing.Service
}

func NewBillHandler(svc billing.Service) *BillHandler {
	return &BillHandler{svc: svc}
}

func (h *BillHandler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	bill, err := h.svc.GenerateBill(r.Context(), orderID)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bill)
}

func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	bill, err := h.svc.GetBillByID(r.Context(), id)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) GetBillByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	bill, err := h.svc.GetBillByOrderID(r.Context(), orderID)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	var status *billing.BillStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := billing.BillStatus(raw)
		status = &s
	}

	bills, err := h.svc.ListBills(r.Context(), status)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bills)
}

func (h *BillHandler) PayBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		PaymentMethod billing.PaymentMethod `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	bill, err := h.svc.PayBill(r.Context(), id, body.PaymentMethod)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		DiscountAmount decimal.Decimal `json:"discount_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	bill, err := h.svc.ApplyDiscount(r.Context(), id, body.DiscountAmount)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) CancelBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	bill, err := h.svc.CancelBill(r.Context(), id)
	if err != nil {
		apperror.Render(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteBill(r.Context(), id); err != nil {
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
