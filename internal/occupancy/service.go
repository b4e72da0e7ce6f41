package occupancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/models"
)

const defaultProviderRef = "manual"

// Service runs the occupancy lifecycle: join requests, approval, unit
// assignment, payments and vacancy.
type Service struct {
	store      Store
	catalog    Catalog
	profiles   Profiles
	dispatcher Dispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, catalog Catalog, profiles Profiles, dispatcher Dispatcher, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		catalog:    catalog,
		profiles:   profiles,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "occupancy_service").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitJoinRequest creates a pending occupancy for the property behind the join code.
func (s *Service) SubmitJoinRequest(ctx context.Context, in JoinRequestInput) (models.Occupancy, error) {
	if strings.TrimSpace(in.TenantID) == "" {
		return models.Occupancy{}, invalid("tenant_id", "tenant is required")
	}
	in, err := in.normalize()
	if err != nil {
		return models.Occupancy{}, err
	}

	property, err := s.catalog.GetPropertyByJoinCode(ctx, in.JoinCode)
	if err != nil {
		return models.Occupancy{}, missing(err, "no active property for join code %q", in.JoinCode)
	}
	if property.OwnerID == in.TenantID {
		return models.Occupancy{}, invalid("join_code", "you cannot join your own property")
	}
	if in.UnitID != nil {
		unit, err := s.catalog.GetUnit(ctx, *in.UnitID)
		if err != nil {
			return models.Occupancy{}, missing(err, "unit %s", *in.UnitID)
		}
		if unit.PropertyID != property.ID {
			return models.Occupancy{}, conflict("unit %s does not belong to this property", unit.ID)
		}
		if !unit.Vacant() {
			return models.Occupancy{}, conflict("unit %s is not available", unit.ID)
		}
	}

	var rec models.Occupancy
	err = s.store.InTx(ctx, func(tx Tx) error {
		open, err := tx.FindOpenOccupancy(ctx, in.TenantID, property.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return conflict("a %s request for this property already exists", open.Status)
		}
		rec, err = tx.InsertOccupancy(ctx, models.Occupancy{
			TenantID:          in.TenantID,
			PropertyID:        property.ID,
			UnitID:            in.UnitID,
			Status:            models.OccupancyPending,
			InvitationMessage: in.Message,
		})
		return err
	})
	if err != nil {
		return models.Occupancy{}, err
	}

	s.announceJoinRequest(ctx, rec, property)
	return rec, nil
}

func (s *Service) announceJoinRequest(ctx context.Context, rec models.Occupancy, property models.Property) {
	if s.dispatcher == nil {
		return
	}
	tenantName := "Unknown"
	if s.profiles != nil {
		profile, err := s.profiles.GetProfile(ctx, rec.TenantID)
		if err == nil {
			tenantName = profile.DisplayName()
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug().Err(err).Str("tenant_id", rec.TenantID).Msg("tenant profile lookup failed")
		}
	}
	notice := models.JoinRequestNotice{
		OccupancyID:   rec.ID,
		LandlordID:    property.OwnerID,
		TenantName:    tenantName,
		PropertyTitle: property.Title,
		Message:       rec.InvitationMessage,
	}
	if err := s.dispatcher.NotifyJoinRequest(ctx, notice); err != nil {
		s.logger.Warn().
			Err(err).
			Str("occupancy_id", rec.ID).
			Str("landlord_id", property.OwnerID).
			Msg("failed to dispatch join request notification")
	}
}

// ApproveRequest activates a pending request and claims its unit in the same transaction.
func (s *Service) ApproveRequest(ctx context.Context, id string) (models.Occupancy, error) {
	var updated models.Occupancy
	err := s.store.InTx(ctx, func(tx Tx) error {
		rec, err := tx.LockOccupancy(ctx, id)
		if err != nil {
			return missing(err, "occupancy %s", id)
		}
		to, err := Next(rec.Status, EventApprove)
		if err != nil {
			return err
		}
		if rec.UnitID != nil {
			claimed, err := tx.ClaimUnit(ctx, *rec.UnitID, rec.TenantID)
			if err != nil {
				return err
			}
			if !claimed {
				return conflict("unit %s is no longer available, try again", *rec.UnitID)
			}
		}
		joinedAt := s.now()
		updated, err = s.setStatus(ctx, tx, rec, to, &joinedAt)
		return err
	})
	if err != nil {
		return models.Occupancy{}, err
	}
	s.logger.Info().Str("occupancy_id", id).Msg("join request approved")
	return updated, nil
}

func (s *Service) RejectRequest(ctx context.Context, id string) (models.Occupancy, error) {
	var updated models.Occupancy
	err := s.store.InTx(ctx, func(tx Tx) error {
		rec, err := tx.LockOccupancy(ctx, id)
		if err != nil {
			return missing(err, "occupancy %s", id)
		}
		to, err := Next(rec.Status, EventReject)
		if err != nil {
			return err
		}
		updated, err = s.setStatus(ctx, tx, rec, to, nil)
		return err
	})
	if err != nil {
		return models.Occupancy{}, err
	}
	return updated, nil
}

// MarkVacant frees the unit and ends every active occupancy of it. Vacating a
// vacant unit is a no-op.
func (s *Service) MarkVacant(ctx context.Context, unitID string) error {
	var ended int
	err := s.store.InTx(ctx, func(tx Tx) error {
		unit, err := tx.LockUnit(ctx, unitID)
		if err != nil {
			return missing(err, "unit %s", unitID)
		}
		if !unit.Vacant() {
			if err := tx.ReleaseUnit(ctx, unitID); err != nil {
				return err
			}
		}
		active, err := tx.ActiveOccupanciesForUnit(ctx, unitID)
		if err != nil {
			return err
		}
		for _, rec := range active {
			to, err := Next(rec.Status, EventVacate)
			if err != nil {
				return err
			}
			if _, err := s.setStatus(ctx, tx, rec, to, nil); err != nil {
				return err
			}
			ended++
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("unit_id", unitID).Int("occupancies_ended", ended).Msg("unit marked vacant")
	return nil
}

// MarkInactive ends an active occupancy at the tenant's request.
func (s *Service) MarkInactive(ctx context.Context, id string) (models.Occupancy, error) {
	var updated models.Occupancy
	err := s.store.InTx(ctx, func(tx Tx) error {
		rec, err := tx.LockOccupancy(ctx, id)
		if err != nil {
			return missing(err, "occupancy %s", id)
		}
		to, err := Next(rec.Status, EventLeave)
		if err != nil {
			return err
		}
		if rec.UnitID != nil {
			unit, err := tx.LockUnit(ctx, *rec.UnitID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if err == nil && unit.TenantID != nil && *unit.TenantID == rec.TenantID {
				if err := tx.ReleaseUnit(ctx, unit.ID); err != nil {
					return err
				}
			}
		}
		updated, err = s.setStatus(ctx, tx, rec, to, nil)
		return err
	})
	if err != nil {
		return models.Occupancy{}, err
	}
	return updated, nil
}

func (s *Service) setStatus(ctx context.Context, tx Tx, rec models.Occupancy, to models.OccupancyStatus, joinedAt *time.Time) (models.Occupancy, error) {
	updated, err := tx.SetOccupancyStatus(ctx, rec.ID, rec.Status, to, joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Occupancy{}, fmt.Errorf("%w: occupancy %s changed concurrently, try again", ErrInvalidState, rec.ID)
	}
	return updated, err
}

// RecordPayment stores a pending payment. It never touches occupancy.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (models.Payment, error) {
	if strings.TrimSpace(in.TenantID) == "" {
		return models.Payment{}, invalid("tenant_id", "tenant is required")
	}
	in, err := in.normalize()
	if err != nil {
		return models.Payment{}, err
	}
	property, err := s.catalog.GetProperty(ctx, in.PropertyID)
	if err != nil {
		return models.Payment{}, missing(err, "property %s", in.PropertyID)
	}
	if in.UnitID != nil {
		unit, err := s.catalog.GetUnit(ctx, *in.UnitID)
		if err != nil {
			return models.Payment{}, missing(err, "unit %s", *in.UnitID)
		}
		if unit.PropertyID != property.ID {
			return models.Payment{}, invalid("unit_id", "unit does not belong to this property")
		}
	}

	var payment models.Payment
	err = s.store.InTx(ctx, func(tx Tx) error {
		var err error
		payment, err = tx.InsertPayment(ctx, models.Payment{
			TenantID:       in.TenantID,
			PropertyID:     property.ID,
			UnitID:         in.UnitID,
			Amount:         in.Amount,
			Currency:       in.Currency,
			Method:         in.Method,
			Provider:       in.Provider,
			Status:         models.PaymentPending,
			DurationMonths: in.DurationMonths,
		})
		return err
	})
	if err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

// ConfirmPayment marks a pending payment paid, computes its expiry and advances
// the matching occupancy's last payment date.
func (s *Service) ConfirmPayment(ctx context.Context, id string, paidOn *time.Time, providerRef *string) (models.Payment, error) {
	when := s.now()
	if paidOn != nil && !paidOn.IsZero() {
		when = *paidOn
	}
	ref := defaultProviderRef
	if r := trimmedOrNil(providerRef); r != nil {
		ref = *r
	}

	var updated models.Payment
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockPayment(ctx, id)
		if err != nil {
			return missing(err, "payment %s", id)
		}
		to, err := NextPayment(p.Status, PaymentConfirm)
		if err != nil {
			return err
		}
		expires := PaymentExpiry(when, p.DurationMonths)
		updated, err = tx.SetPaymentStatus(ctx, id, p.Status, to, PaymentSettlement{
			PaidOn:      &when,
			ExpiresAt:   &expires,
			ProviderRef: &ref,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: payment %s changed concurrently, try again", ErrInvalidState, id)
		}
		if err != nil {
			return err
		}

		records, err := tx.OccupanciesForTenantProperty(ctx, p.TenantID, p.PropertyID)
		if err != nil {
			return err
		}
		target := matchOccupancy(records, p.UnitID)
		if target == nil {
			return nil
		}
		if target.LastPaymentDate != nil && !when.After(*target.LastPaymentDate) {
			return nil
		}
		return tx.AdvanceLastPaymentDate(ctx, target.ID, when)
	})
	if err != nil {
		return models.Payment{}, err
	}
	s.logger.Info().Str("payment_id", id).Time("paid_on", when).Msg("payment confirmed")
	return updated, nil
}

func (s *Service) FailPayment(ctx context.Context, id string) (models.Payment, error) {
	var updated models.Payment
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockPayment(ctx, id)
		if err != nil {
			return missing(err, "payment %s", id)
		}
		to, err := NextPayment(p.Status, PaymentFail)
		if err != nil {
			return err
		}
		updated, err = tx.SetPaymentStatus(ctx, id, p.Status, to, PaymentSettlement{})
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: payment %s changed concurrently, try again", ErrInvalidState, id)
		}
		return err
	})
	if err != nil {
		return models.Payment{}, err
	}
	return updated, nil
}

// PaymentExpiry is paidOn plus the covered months; zero months counts as one.
func PaymentExpiry(paidOn time.Time, months int) time.Time {
	if months < 1 {
		months = 1
	}
	return paidOn.AddDate(0, months, 0)
}

// matchOccupancy picks the record a payment belongs to: same unit first, then
// active, then the most recent. records must be ordered newest first.
func matchOccupancy(records []models.Occupancy, unitID *string) *models.Occupancy {
	var (
		best      *models.Occupancy
		bestScore = -1
	)
	for i := range records {
		score := 0
		if unitID != nil && records[i].UnitID != nil && *records[i].UnitID == *unitID {
			score += 2
		}
		if records[i].Status == models.OccupancyActive {
			score++
		}
		if score > bestScore {
			best, bestScore = &records[i], score
		}
	}
	return best
}

func (s *Service) GetOccupancy(ctx context.Context, id string) (models.OccupancyDetail, error) {
	rec, err := s.store.GetOccupancy(ctx, id)
	if err != nil {
		return models.OccupancyDetail{}, missing(err, "occupancy %s", id)
	}
	return rec, nil
}

func (s *Service) ListOccupanciesByTenant(ctx context.Context, tenantID string) ([]models.OccupancyDetail, error) {
	return s.store.ListOccupanciesByTenant(ctx, tenantID)
}

// ListJoinRequestsForLandlord lists occupancies on the landlord's properties, optionally by status.
func (s *Service) ListJoinRequestsForLandlord(ctx context.Context, ownerID string, status *models.OccupancyStatus) ([]models.OccupancyDetail, error) {
	if status != nil && !status.Valid() {
		return nil, invalid("status", "unknown status %q", *status)
	}
	return s.store.ListOccupanciesByOwner(ctx, ownerID, status)
}

func (s *Service) GetPayment(ctx context.Context, id string) (models.PaymentDetail, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return models.PaymentDetail{}, missing(err, "payment %s", id)
	}
	return p.WithBalance(), nil
}

func (s *Service) ListPaymentsByTenant(ctx context.Context, tenantID string) ([]models.PaymentDetail, error) {
	payments, err := s.store.ListPaymentsByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return withBalances(payments), nil
}

func (s *Service) ListPaymentsForLandlord(ctx context.Context, ownerID string) ([]models.PaymentDetail, error) {
	payments, err := s.store.ListPaymentsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return withBalances(payments), nil
}

func withBalances(payments []models.PaymentDetail) []models.PaymentDetail {
	for i := range payments {
		payments[i] = payments[i].WithBalance()
	}
	return payments
}

// TenantRoster lists the landlord's active tenants with their payment standing.
func (s *Service) TenantRoster(ctx context.Context, ownerID string) ([]models.RosterEntry, error) {
	active := models.OccupancyActive
	records, err := s.store.ListOccupanciesByOwner(ctx, ownerID, &active)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPaymentsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	latest := latestPaid(payments)
	now := s.now()
	roster := make([]models.RosterEntry, 0, len(records))
	for _, rec := range records {
		entry := models.RosterEntry{OccupancyDetail: rec}
		if p, ok := latest[tenancyKey(rec.TenantID, rec.PropertyID)]; ok {
			id := p.ID
			entry.LatestPaymentID = &id
			entry.PaymentExpiresAt = p.PaymentExpiresAt
		}
		standing := DeriveStanding(entry.PaymentExpiresAt, rec.LastPaymentDate, now)
		entry.Standing = standing.Status
		entry.DaysRemaining = standing.DaysRemaining
		entry.StandingLabel = standing.Label
		roster = append(roster, entry)
	}
	return roster, nil
}

func latestPaid(payments []models.PaymentDetail) map[string]models.PaymentDetail {
	paid := make([]models.PaymentDetail, 0, len(payments))
	for _, p := range payments {
		if p.Status == models.PaymentPaid && p.PaidOn != nil {
			paid = append(paid, p)
		}
	}
	sort.SliceStable(paid, func(i, j int) bool { return paid[i].PaidOn.After(*paid[j].PaidOn) })

	latest := make(map[string]models.PaymentDetail)
	for _, p := range paid {
		key := tenancyKey(p.TenantID, p.PropertyID)
		if _, seen := latest[key]; !seen {
			latest[key] = p
		}
	}
	return latest
}

func tenancyKey(tenantID, propertyID string) string {
	return tenantID + "/" + propertyID
}

// AuthorizeOccupancyOwner checks that landlordID owns the property of the occupancy.
func (s *Service) AuthorizeOccupancyOwner(ctx context.Context, landlordID, occupancyID string) error {
	rec, err := s.GetOccupancy(ctx, occupancyID)
	if err != nil {
		return err
	}
	if rec.OwnerID != landlordID {
		return forbidden("occupancy %s belongs to another landlord", occupancyID)
	}
	return nil
}

// AuthorizeOccupancyTenant checks that tenantID is the tenant of the occupancy.
func (s *Service) AuthorizeOccupancyTenant(ctx context.Context, tenantID, occupancyID string) error {
	rec, err := s.GetOccupancy(ctx, occupancyID)
	if err != nil {
		return err
	}
	if rec.TenantID != tenantID {
		return forbidden("occupancy %s belongs to another tenant", occupancyID)
	}
	return nil
}

func (s *Service) AuthorizeUnitOwner(ctx context.Context, landlordID, unitID string) error {
	unit, err := s.catalog.GetUnit(ctx, unitID)
	if err != nil {
		return missing(err, "unit %s", unitID)
	}
	return s.authorizePropertyOwner(ctx, landlordID, unit.PropertyID)
}

func (s *Service) AuthorizePaymentOwner(ctx context.Context, landlordID, paymentID string) error {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return missing(err, "payment %s", paymentID)
	}
	return s.authorizePropertyOwner(ctx, landlordID, p.PropertyID)
}

func (s *Service) authorizePropertyOwner(ctx context.Context, landlordID, propertyID string) error {
	property, err := s.catalog.GetProperty(ctx, propertyID)
	if err != nil {
		return missing(err, "property %s", propertyID)
	}
	if property.OwnerID != landlordID {
		return forbidden("property %s belongs to another landlord", propertyID)
	}
	return nil
}

// missing converts sql.ErrNoRows into ErrNotFound and passes anything else through.
func missing(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(format, args...)
	}
	return err
}
