package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

type Payments interface {
	RecordPayment(ctx context.Context, in occupancy.PaymentInput) (models.Payment, error)
	ConfirmPayment(ctx context.Context, id string, paidOn *time.Time, providerRef *string) (models.Payment, error)
	FailPayment(ctx context.Context, id string) (models.Payment, error)
	ListPaymentsByTenant(ctx context.Context, tenantID string) ([]models.PaymentDetail, error)
	ListPaymentsForLandlord(ctx context.Context, ownerID string) ([]models.PaymentDetail, error)
	AuthorizePaymentOwner(ctx context.Context, landlordID, paymentID string) error
}

type PaymentHandler struct {
	service Payments
	logger  zerolog.Logger
}

type confirmPaymentRequest struct {
	PaidOn      *time.Time `json:"paid_on"`
	ProviderRef *string    `json:"provider_ref"`
}

func NewPaymentHandler(service Payments, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in occupancy.PaymentInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.TenantID = tenantID

	payment, err := h.service.RecordPayment(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to record payment")
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireUser(w, r)
	if !ok {
		return
	}
	payments, err := h.service.ListPaymentsByTenant(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": nonNil(payments)})
}

func (h *PaymentHandler) ListForLandlord(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := requireUser(w, r)
	if !ok {
		return
	}
	payments, err := h.service.ListPaymentsForLandlord(r.Context(), landlordID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": nonNil(payments)})
}

// Confirm settles a pending payment. The body is optional.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, ok := idParam(w, r, "paymentID")
	if !ok {
		return
	}
	if err := h.service.AuthorizePaymentOwner(r.Context(), landlordID, id); err != nil {
		writeServiceError(w, h.logger, err, "Failed to confirm payment")
		return
	}
	payment, err := h.service.ConfirmPayment(r.Context(), id, req.PaidOn, req.ProviderRef)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to confirm payment")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "paymentID")
	if !ok {
		return
	}
	if err := h.service.AuthorizePaymentOwner(r.Context(), landlordID, id); err != nil {
		writeServiceError(w, h.logger, err, "Failed to mark payment failed")
		return
	}
	payment, err := h.service.FailPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to mark payment failed")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
