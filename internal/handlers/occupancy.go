package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

// Lifecycle is the occupancy service surface the HTTP layer drives.
type Lifecycle interface {
	SubmitJoinRequest(ctx context.Context, in occupancy.JoinRequestInput) (models.Occupancy, error)
	ApproveRequest(ctx context.Context, id string) (models.Occupancy, error)
	RejectRequest(ctx context.Context, id string) (models.Occupancy, error)
	MarkVacant(ctx context.Context, unitID string) error
	MarkInactive(ctx context.Context, id string) (models.Occupancy, error)
	ListOccupanciesByTenant(ctx context.Context, tenantID string) ([]models.OccupancyDetail, error)
	ListJoinRequestsForLandlord(ctx context.Context, ownerID string, status *models.OccupancyStatus) ([]models.OccupancyDetail, error)
	TenantRoster(ctx context.Context, ownerID string) ([]models.RosterEntry, error)
	AuthorizeOccupancyOwner(ctx context.Context, landlordID, occupancyID string) error
	AuthorizeOccupancyTenant(ctx context.Context, tenantID, occupancyID string) error
	AuthorizeUnitOwner(ctx context.Context, landlordID, unitID string) error
}

type OccupancyHandler struct {
	service Lifecycle
	logger  zerolog.Logger
}

func NewOccupancyHandler(service Lifecycle, logger zerolog.Logger) *OccupancyHandler {
	return &OccupancyHandler{
		service: service,
		logger:  logger.With().Str("handler", "occupancy").Logger(),
	}
}

func (h *OccupancyHandler) SubmitJoinRequest(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in occupancy.JoinRequestInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.TenantID = tenantID

	rec, err := h.service.SubmitJoinRequest(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to submit join request")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *OccupancyHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireUser(w, r)
	if !ok {
		return
	}
	records, err := h.service.ListOccupanciesByTenant(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list occupancies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"occupancies": nonNil(records)})
}

// Leave ends the caller's own active occupancy.
func (h *OccupancyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "occupancyID")
	if !ok {
		return
	}
	if err := h.service.AuthorizeOccupancyTenant(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, h.logger, err, "Failed to leave property")
		return
	}
	rec, err := h.service.MarkInactive(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to leave property")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *OccupancyHandler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var status *models.OccupancyStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := models.OccupancyStatus(strings.ToLower(raw))
		status = &s
	}
	records, err := h.service.ListJoinRequestsForLandlord(r.Context(), landlordID, status)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list join requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"join_requests": nonNil(records)})
}

func (h *OccupancyHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.ApproveRequest, "Failed to approve join request")
}

func (h *OccupancyHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.RejectRequest, "Failed to reject join request")
}

func (h *OccupancyHandler) decide(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (models.Occupancy, error), failure string) {
	landlordID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "occupancyID")
	if !ok {
		return
	}
	if err := h.service.AuthorizeOccupancyOwner(r.Context(), landlordID, id); err != nil {
		writeServiceError(w, h.logger, err, failure)
		return
	}
	rec, err := apply(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, failure)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *OccupancyHandler) VacateUnit(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := requireUser(w, r)
	if !ok {
		return
	}
	unitID, ok := idParam(w, r, "unitID")
	if !ok {
		return
	}
	if err := h.service.AuthorizeUnitOwner(r.Context(), landlordID, unitID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to vacate unit")
		return
	}
	if err := h.service.MarkVacant(r.Context(), unitID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to vacate unit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OccupancyHandler) TenantRoster(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roster, err := h.service.TenantRoster(r.Context(), landlordID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load tenants")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": nonNil(roster)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
