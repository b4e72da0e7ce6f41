package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/authz"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
	"github.com/stanstork/nestpay-api/internal/repository"
)

// TenancyLister reports which properties a tenant lives in.
type TenancyLister interface {
	ListOccupanciesByTenant(ctx context.Context, tenantID string) ([]models.OccupancyDetail, error)
}

// PropertyHandler serves the catalog: properties, units and reviews.
type PropertyHandler struct {
	properties repository.PropertyRepository
	units      repository.UnitRepository
	reviews    repository.ReviewRepository
	tenancies  TenancyLister
	logger     zerolog.Logger
}

func NewPropertyHandler(properties repository.PropertyRepository, units repository.UnitRepository, reviews repository.ReviewRepository, tenancies TenancyLister, logger zerolog.Logger) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		units:      units,
		reviews:    reviews,
		tenancies:  tenancies,
		logger:     logger.With().Str("handler", "property").Logger(),
	}
}

func (h *PropertyHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	properties, err := h.properties.ListActiveProperties(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list properties")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"properties": nonNil(properties)})
}

// Get hides inactive properties from everyone but their owner.
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := idParam(w, r, "propertyID")
	if !ok {
		return
	}
	summary, err := h.properties.GetPropertySummary(r.Context(), propertyID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load property")
		return
	}
	userID, _ := authz.UserIDFromRequest(r)
	if !summary.IsActive && summary.OwnerID != userID {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *PropertyHandler) ListAvailableUnits(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := idParam(w, r, "propertyID")
	if !ok {
		return
	}
	units, err := h.units.ListAvailableUnits(r.Context(), propertyID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list units")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"units": nonNil(units)})
}

func (h *PropertyHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := idParam(w, r, "propertyID")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListReviews(r.Context(), propertyID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list reviews")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": nonNil(reviews)})
}

// UpsertReview stores the caller's review. Only current tenants may review.
func (h *PropertyHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in occupancy.ReviewInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := in.Normalize()
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save review")
		return
	}

	propertyID, ok := idParam(w, r, "propertyID")
	if !ok {
		return
	}
	records, err := h.tenancies.ListOccupanciesByTenant(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save review")
		return
	}
	if !hasActiveTenancy(records, propertyID) {
		writeMessage(w, http.StatusForbidden, "Only current tenants can review this property")
		return
	}

	review, err := h.reviews.UpsertReview(r.Context(), propertyID, tenantID, in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save review")
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func hasActiveTenancy(records []models.OccupancyDetail, propertyID string) bool {
	for _, rec := range records {
		if rec.PropertyID == propertyID && rec.Status == models.OccupancyActive {
			return true
		}
	}
	return false
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in occupancy.PropertyInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := in.Normalize()
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create property")
		return
	}
	property, err := h.properties.CreateProperty(r.Context(), ownerID, in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create property")
		return
	}
	h.logger.Info().Str("property_id", property.ID).Str("owner_id", ownerID).Msg("property created")
	writeJSON(w, http.StatusCreated, property)
}

func (h *PropertyHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	properties, err := h.properties.ListPropertiesByOwner(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list properties")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"properties": nonNil(properties)})
}

func (h *PropertyHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := decodeJSON(r, &req, false); err != nil || req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "is_active is required", Field: "is_active"})
		return
	}
	propertyID, ok := h.ownedProperty(w, r, "Failed to update property")
	if !ok {
		return
	}
	property, err := h.properties.SetPropertyActive(r.Context(), propertyID, *req.IsActive)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update property")
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.ownedProperty(w, r, "Failed to list units")
	if !ok {
		return
	}
	units, err := h.units.ListUnitOccupancy(r.Context(), propertyID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list units")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"units": nonNil(units)})
}

func (h *PropertyHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var in occupancy.UnitInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := in.Normalize()
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create unit")
		return
	}
	propertyID, ok := h.ownedProperty(w, r, "Failed to create unit")
	if !ok {
		return
	}
	unit, err := h.units.CreateUnit(r.Context(), propertyID, in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create unit")
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (h *PropertyHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	unitID, ok := idParam(w, r, "unitID")
	if !ok {
		return
	}
	unit, err := h.units.GetUnit(r.Context(), unitID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete unit")
		return
	}
	if err := h.checkOwner(r.Context(), ownerID, unit.PropertyID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete unit")
		return
	}
	if err := h.units.DeleteVacantUnit(r.Context(), unitID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete unit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedProperty resolves {propertyID} and writes the error response when the
// caller does not own it.
func (h *PropertyHandler) ownedProperty(w http.ResponseWriter, r *http.Request, failure string) (string, bool) {
	ownerID, ok := requireUser(w, r)
	if !ok {
		return "", false
	}
	propertyID, ok := idParam(w, r, "propertyID")
	if !ok {
		return "", false
	}
	if err := h.checkOwner(r.Context(), ownerID, propertyID); err != nil {
		writeServiceError(w, h.logger, err, failure)
		return "", false
	}
	return propertyID, true
}

func (h *PropertyHandler) checkOwner(ctx context.Context, ownerID, propertyID string) error {
	property, err := h.properties.GetProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return occupancy.ErrNotFound
		}
		return err
	}
	if property.OwnerID != ownerID {
		return occupancy.ErrForbidden
	}
	return nil
}
