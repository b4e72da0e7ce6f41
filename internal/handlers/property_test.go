package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockProperties struct {
	mock.Mock
}

func (m *mockProperties) CreateProperty(ctx context.Context, ownerID string, in occupancy.PropertyInput) (models.Property, error) {
	args := m.Called(ctx, ownerID, in)
	return args.Get(0).(models.Property), args.Error(1)
}

func (m *mockProperties) GetProperty(ctx context.Context, id string) (models.Property, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Property), args.Error(1)
}

func (m *mockProperties) GetPropertyByJoinCode(ctx context.Context, code string) (models.Property, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(models.Property), args.Error(1)
}

func (m *mockProperties) ListPropertiesByOwner(ctx context.Context, ownerID string) ([]models.Property, error) {
	args := m.Called(ctx, ownerID)
	out, _ := args.Get(0).([]models.Property)
	return out, args.Error(1)
}

func (m *mockProperties) ListActiveProperties(ctx context.Context) ([]models.PropertySummary, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.PropertySummary)
	return out, args.Error(1)
}

func (m *mockProperties) GetPropertySummary(ctx context.Context, id string) (models.PropertySummary, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.PropertySummary), args.Error(1)
}

func (m *mockProperties) SetPropertyActive(ctx context.Context, id string, active bool) (models.Property, error) {
	args := m.Called(ctx, id, active)
	return args.Get(0).(models.Property), args.Error(1)
}

type mockUnits struct {
	mock.Mock
}

func (m *mockUnits) CreateUnit(ctx context.Context, propertyID string, in occupancy.UnitInput) (models.Unit, error) {
	args := m.Called(ctx, propertyID, in)
	return args.Get(0).(models.Unit), args.Error(1)
}

func (m *mockUnits) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Unit), args.Error(1)
}

func (m *mockUnits) ListAvailableUnits(ctx context.Context, propertyID string) ([]models.Unit, error) {
	args := m.Called(ctx, propertyID)
	out, _ := args.Get(0).([]models.Unit)
	return out, args.Error(1)
}

func (m *mockUnits) ListUnitOccupancy(ctx context.Context, propertyID string) ([]models.UnitOccupancy, error) {
	args := m.Called(ctx, propertyID)
	out, _ := args.Get(0).([]models.UnitOccupancy)
	return out, args.Error(1)
}

func (m *mockUnits) DeleteVacantUnit(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockReviews struct {
	mock.Mock
}

func (m *mockReviews) UpsertReview(ctx context.Context, propertyID, tenantID string, in occupancy.ReviewInput) (models.Review, error) {
	args := m.Called(ctx, propertyID, tenantID, in)
	return args.Get(0).(models.Review), args.Error(1)
}

func (m *mockReviews) ListReviews(ctx context.Context, propertyID string) ([]models.Review, error) {
	args := m.Called(ctx, propertyID)
	out, _ := args.Get(0).([]models.Review)
	return out, args.Error(1)
}

type propertyFixture struct {
	properties *mockProperties
	units      *mockUnits
	reviews    *mockReviews
	lifecycle  *mockLifecycle
	handler    *PropertyHandler
}

func newPropertyFixture() propertyFixture {
	f := propertyFixture{
		properties: new(mockProperties),
		units:      new(mockUnits),
		reviews:    new(mockReviews),
		lifecycle:  new(mockLifecycle),
	}
	f.handler = NewPropertyHandler(f.properties, f.units, f.reviews, f.lifecycle, zerolog.Nop())
	return f
}

func TestUpsertReview_RequiresActiveTenancy(t *testing.T) {
	f := newPropertyFixture()
	f.lifecycle.On("ListOccupanciesByTenant", mock.Anything, testTenantID).Return([]models.OccupancyDetail{
		{Occupancy: models.Occupancy{PropertyID: testPropertyID, Status: models.OccupancyInactive}},
		{Occupancy: models.Occupancy{PropertyID: testOtherPropertyID, Status: models.OccupancyActive}},
	}, nil)

	rec := httptest.NewRecorder()
	f.handler.UpsertReview(rec, newRequest(http.MethodPut, "/", `{"rating":4}`, testTenantID, models.RoleTenant, map[string]string{"propertyID": testPropertyID}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	f.reviews.AssertNotCalled(t, "UpsertReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpsertReview_Saves(t *testing.T) {
	f := newPropertyFixture()
	f.lifecycle.On("ListOccupanciesByTenant", mock.Anything, testTenantID).Return([]models.OccupancyDetail{
		{Occupancy: models.Occupancy{PropertyID: testPropertyID, Status: models.OccupancyActive}},
	}, nil)
	f.reviews.On("UpsertReview", mock.Anything, testPropertyID, testTenantID, mock.MatchedBy(func(in occupancy.ReviewInput) bool {
		return in.Rating == 5 && in.Comment != nil && *in.Comment == "Quiet and clean"
	})).Return(models.Review{ID: testReviewID, Rating: 5}, nil)

	rec := httptest.NewRecorder()
	f.handler.UpsertReview(rec, newRequest(http.MethodPut, "/", `{"rating":5,"comment":" Quiet and clean "}`, testTenantID, models.RoleTenant, map[string]string{"propertyID": testPropertyID}))

	assert.Equal(t, http.StatusOK, rec.Code)
	f.reviews.AssertExpectations(t)
}

func TestUpsertReview_RatingOutOfRange(t *testing.T) {
	f := newPropertyFixture()

	rec := httptest.NewRecorder()
	f.handler.UpsertReview(rec, newRequest(http.MethodPut, "/", `{"rating":6}`, testTenantID, models.RoleTenant, map[string]string{"propertyID": testPropertyID}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating", decodeBody(t, rec)["field"])
}

func TestCreateProperty_NormalizesBeforeSaving(t *testing.T) {
	f := newPropertyFixture()
	f.properties.On("CreateProperty", mock.Anything, testLandlordID, mock.MatchedBy(func(in occupancy.PropertyInput) bool {
		return in.Title == "Kololo Heights" && in.Country == "Uganda" && in.RentCurrency == "UGX"
	})).Return(models.Property{ID: testPropertyID, JoinCode: "KOLO-123456"}, nil)

	rec := httptest.NewRecorder()
	f.handler.Create(rec, newRequest(http.MethodPost, "/", `{"title":" Kololo Heights ","rent_amount":"850000"}`, testLandlordID, models.RoleLandlord, nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "KOLO-123456", decodeBody(t, rec)["join_code"])
}

func TestCreateUnit_ForeignProperty(t *testing.T) {
	f := newPropertyFixture()
	f.properties.On("GetProperty", mock.Anything, testPropertyID).Return(models.Property{ID: testPropertyID, OwnerID: testOtherLandlordID}, nil)

	rec := httptest.NewRecorder()
	f.handler.CreateUnit(rec, newRequest(http.MethodPost, "/", `{"label":"A1"}`, testLandlordID, models.RoleLandlord, map[string]string{"propertyID": testPropertyID}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	f.units.AssertNotCalled(t, "CreateUnit", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteUnit_OccupiedIsConflict(t *testing.T) {
	f := newPropertyFixture()
	f.units.On("GetUnit", mock.Anything, testUnitID).Return(models.Unit{ID: testUnitID, PropertyID: testPropertyID}, nil)
	f.properties.On("GetProperty", mock.Anything, testPropertyID).Return(models.Property{ID: testPropertyID, OwnerID: testLandlordID}, nil)
	f.units.On("DeleteVacantUnit", mock.Anything, testUnitID).Return(occupancy.ErrConflict)

	rec := httptest.NewRecorder()
	f.handler.DeleteUnit(rec, newRequest(http.MethodDelete, "/", "", testLandlordID, models.RoleLandlord, map[string]string{"unitID": testUnitID}))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetProperty_InactiveHiddenFromOthers(t *testing.T) {
	f := newPropertyFixture()
	summary := models.PropertySummary{Property: models.Property{ID: testPropertyID, OwnerID: testLandlordID, IsActive: false, RentAmount: decimal.NewFromInt(500000)}}
	f.properties.On("GetPropertySummary", mock.Anything, testPropertyID).Return(summary, nil)

	rec := httptest.NewRecorder()
	f.handler.Get(rec, newRequest(http.MethodGet, "/", "", testTenantID, models.RoleTenant, map[string]string{"propertyID": testPropertyID}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.Get(rec, newRequest(http.MethodGet, "/", "", testLandlordID, models.RoleLandlord, map[string]string{"propertyID": testPropertyID}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetProperty_Missing(t *testing.T) {
	f := newPropertyFixture()
	f.properties.On("GetPropertySummary", mock.Anything, testMissingID).Return(models.PropertySummary{}, sql.ErrNoRows)

	rec := httptest.NewRecorder()
	f.handler.Get(rec, newRequest(http.MethodGet, "/", "", testTenantID, models.RoleTenant, map[string]string{"propertyID": testMissingID}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	f.properties.AssertExpectations(t)
}

func TestGetProperty_MalformedID(t *testing.T) {
	f := newPropertyFixture()

	rec := httptest.NewRecorder()
	f.handler.Get(rec, newRequest(http.MethodGet, "/", "", testTenantID, models.RoleTenant, map[string]string{"propertyID": "nope"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	f.properties.AssertNotCalled(t, "GetPropertySummary", mock.Anything, mock.Anything)
}

func TestSetActive_RequiresFlag(t *testing.T) {
	f := newPropertyFixture()

	rec := httptest.NewRecorder()
	f.handler.SetActive(rec, newRequest(http.MethodPatch, "/", `{}`, testLandlordID, models.RoleLandlord, map[string]string{"propertyID": testPropertyID}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
