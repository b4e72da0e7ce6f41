package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) RecordPayment(ctx context.Context, in occupancy.PaymentInput) (models.Payment, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.Payment), args.Error(1)
}

func (m *mockPayments) ConfirmPayment(ctx context.Context, id string, paidOn *time.Time, providerRef *string) (models.Payment, error) {
	args := m.Called(ctx, id, paidOn, providerRef)
	return args.Get(0).(models.Payment), args.Error(1)
}

func (m *mockPayments) FailPayment(ctx context.Context, id string) (models.Payment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Payment), args.Error(1)
}

func (m *mockPayments) ListPaymentsByTenant(ctx context.Context, tenantID string) ([]models.PaymentDetail, error) {
	args := m.Called(ctx, tenantID)
	out, _ := args.Get(0).([]models.PaymentDetail)
	return out, args.Error(1)
}

func (m *mockPayments) ListPaymentsForLandlord(ctx context.Context, ownerID string) ([]models.PaymentDetail, error) {
	args := m.Called(ctx, ownerID)
	out, _ := args.Get(0).([]models.PaymentDetail)
	return out, args.Error(1)
}

func (m *mockPayments) AuthorizePaymentOwner(ctx context.Context, landlordID, paymentID string) error {
	return m.Called(ctx, landlordID, paymentID).Error(0)
}

func TestRecordPayment_DecodesAmount(t *testing.T) {
	svc := new(mockPayments)
	h := NewPaymentHandler(svc, zerolog.Nop())
	svc.On("RecordPayment", mock.Anything, mock.MatchedBy(func(in occupancy.PaymentInput) bool {
		return in.TenantID == testTenantID && in.Amount.Equal(decimal.RequireFromString("450000.50")) && in.Method == models.PaymentManual
	})).Return(models.Payment{ID: testPaymentID, Status: models.PaymentPending}, nil)

	rec := httptest.NewRecorder()
	h.Record(rec, newRequest(http.MethodPost, "/api/payments",
		`{"property_id":"4b5c6d7e-0000-4000-8000-000000000001","amount":"450000.50","method":"manual"}`,
		testTenantID, models.RoleTenant, nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestConfirmPayment_EmptyBody(t *testing.T) {
	svc := new(mockPayments)
	h := NewPaymentHandler(svc, zerolog.Nop())
	svc.On("AuthorizePaymentOwner", mock.Anything, testLandlordID, testPaymentID).Return(nil)
	svc.On("ConfirmPayment", mock.Anything, testPaymentID, (*time.Time)(nil), (*string)(nil)).
		Return(models.Payment{ID: testPaymentID, Status: models.PaymentPaid}, nil)

	rec := httptest.NewRecorder()
	h.Confirm(rec, newRequest(http.MethodPost, "/", "", testLandlordID, models.RoleLandlord, map[string]string{"paymentID": testPaymentID}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decodeBody(t, rec)["status"])
	svc.AssertExpectations(t)
}

func TestConfirmPayment_WithSettlementDetails(t *testing.T) {
	svc := new(mockPayments)
	h := NewPaymentHandler(svc, zerolog.Nop())
	paidOn := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	svc.On("AuthorizePaymentOwner", mock.Anything, testLandlordID, testPaymentID).Return(nil)
	svc.On("ConfirmPayment", mock.Anything, testPaymentID, mock.MatchedBy(func(p *time.Time) bool {
		return p != nil && p.Equal(paidOn)
	}), mock.MatchedBy(func(ref *string) bool {
		return ref != nil && *ref == "MTN-88213"
	})).Return(models.Payment{ID: testPaymentID, Status: models.PaymentPaid}, nil)

	rec := httptest.NewRecorder()
	h.Confirm(rec, newRequest(http.MethodPost, "/", `{"paid_on":"2024-05-02T09:30:00Z","provider_ref":"MTN-88213"}`,
		testLandlordID, models.RoleLandlord, map[string]string{"paymentID": testPaymentID}))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestFailPayment_AlreadySettled(t *testing.T) {
	svc := new(mockPayments)
	h := NewPaymentHandler(svc, zerolog.Nop())
	svc.On("AuthorizePaymentOwner", mock.Anything, testLandlordID, testPaymentID).Return(nil)
	svc.On("FailPayment", mock.Anything, testPaymentID).Return(models.Payment{}, occupancy.ErrInvalidState)

	rec := httptest.NewRecorder()
	h.Fail(rec, newRequest(http.MethodPost, "/", "", testLandlordID, models.RoleLandlord, map[string]string{"paymentID": testPaymentID}))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListMyPayments_EmptyIsArray(t *testing.T) {
	svc := new(mockPayments)
	h := NewPaymentHandler(svc, zerolog.Nop())
	svc.On("ListPaymentsByTenant", mock.Anything, testTenantID).Return(nil, nil)

	rec := httptest.NewRecorder()
	h.ListMine(rec, newRequest(http.MethodGet, "/", "", testTenantID, models.RoleTenant, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"payments":[]}`, rec.Body.String())
}
