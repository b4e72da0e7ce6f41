package occupancy

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stretchr/testify/assert"
)

// memStore is an in-memory Store, Catalog and Profiles. A transaction holds the
// store mutex for its whole duration and restores a snapshot on error.
type memStore struct {
	mu          sync.Mutex
	seq         int
	properties  map[string]models.Property
	units       map[string]models.Unit
	occupancies map[string]models.Occupancy
	payments    map[string]models.Payment
	profiles    map[string]models.UserProfile
}

func newMemStore() *memStore {
	return &memStore{
		properties:  map[string]models.Property{},
		units:       map[string]models.Unit{},
		occupancies: map[string]models.Occupancy{},
		payments:    map[string]models.Payment{},
		profiles:    map[string]models.UserProfile{},
	}
}

// assertInvariants checks the unit and occupancy tables agree: a unit is
// available exactly when it has no tenant, and every active occupancy holding
// a unit is the only one on it and matches the unit's tenant.
func (s *memStore) assertInvariants(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.units {
		assert.Equal(t, u.TenantID == nil, u.IsAvailable, "unit %s availability disagrees with its tenant", id)
	}
	holders := map[string]string{}
	for id, rec := range s.occupancies {
		if rec.Status != models.OccupancyActive || rec.UnitID == nil {
			continue
		}
		if other, taken := holders[*rec.UnitID]; taken {
			t.Errorf("unit %s held by active occupancies %s and %s", *rec.UnitID, other, id)
		}
		holders[*rec.UnitID] = id
		u, ok := s.units[*rec.UnitID]
		if !assert.True(t, ok, "occupancy %s points at missing unit", id) {
			continue
		}
		assert.False(t, u.IsAvailable, "unit %s is available under active occupancy %s", u.ID, id)
		if assert.NotNil(t, u.TenantID, "unit %s has no tenant under active occupancy %s", u.ID, id) {
			assert.Equal(t, rec.TenantID, *u.TenantID, "unit %s tenant differs from occupancy %s", u.ID, id)
		}
	}
}

func (s *memStore) nextCreatedAt() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Minute)
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	units := copyMap(s.units)
	occupancies := copyMap(s.occupancies)
	payments := copyMap(s.payments)

	if err := fn(&memTx{s: s}); err != nil {
		s.units, s.occupancies, s.payments = units, occupancies, payments
		return err
	}
	return nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) GetPropertyByJoinCode(_ context.Context, code string) (models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.properties {
		if p.JoinCode == code && p.IsActive {
			return p, nil
		}
	}
	return models.Property{}, sql.ErrNoRows
}

func (s *memStore) GetProperty(_ context.Context, id string) (models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return models.Property{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *memStore) GetUnit(_ context.Context, id string) (models.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return models.Unit{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *memStore) GetProfile(_ context.Context, id string) (models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return models.UserProfile{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *memStore) detail(rec models.Occupancy) models.OccupancyDetail {
	property := s.properties[rec.PropertyID]
	d := models.OccupancyDetail{
		Occupancy:     rec,
		PropertyTitle: property.Title,
		OwnerID:       property.OwnerID,
		RentAmount:    property.RentAmount,
		RentCurrency:  property.RentCurrency,
	}
	if rec.UnitID != nil {
		if u, ok := s.units[*rec.UnitID]; ok {
			label := u.Label
			d.UnitLabel = &label
			d.UnitRent = u.RentAmount
		}
	}
	if p, ok := s.profiles[rec.TenantID]; ok {
		d.TenantName = p.FullName
	}
	return d
}

func (s *memStore) GetOccupancy(_ context.Context, id string) (models.OccupancyDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.occupancies[id]
	if !ok {
		return models.OccupancyDetail{}, sql.ErrNoRows
	}
	return s.detail(rec), nil
}

func (s *memStore) ListOccupanciesByTenant(_ context.Context, tenantID string) ([]models.OccupancyDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OccupancyDetail
	for _, rec := range s.sortedOccupancies() {
		if rec.TenantID == tenantID {
			out = append(out, s.detail(rec))
		}
	}
	return out, nil
}

func (s *memStore) ListOccupanciesByOwner(_ context.Context, ownerID string, status *models.OccupancyStatus) ([]models.OccupancyDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OccupancyDetail
	for _, rec := range s.sortedOccupancies() {
		if s.properties[rec.PropertyID].OwnerID != ownerID {
			continue
		}
		if status != nil && rec.Status != *status {
			continue
		}
		out = append(out, s.detail(rec))
	}
	return out, nil
}

func (s *memStore) sortedOccupancies() []models.Occupancy {
	out := make([]models.Occupancy, 0, len(s.occupancies))
	for _, rec := range s.occupancies {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memStore) paymentDetail(p models.Payment) models.PaymentDetail {
	property := s.properties[p.PropertyID]
	d := models.PaymentDetail{
		Payment:       p,
		PropertyTitle: property.Title,
		PropertyRent:  property.RentAmount,
	}
	if p.UnitID != nil {
		if u, ok := s.units[*p.UnitID]; ok {
			d.UnitRent = u.RentAmount
		}
	}
	return d
}

func (s *memStore) GetPayment(_ context.Context, id string) (models.PaymentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return models.PaymentDetail{}, sql.ErrNoRows
	}
	return s.paymentDetail(p), nil
}

func (s *memStore) ListPaymentsByTenant(_ context.Context, tenantID string) ([]models.PaymentDetail, error) {
	return s.listPayments(func(p models.Payment) bool { return p.TenantID == tenantID }), nil
}

func (s *memStore) ListPaymentsByOwner(_ context.Context, ownerID string) ([]models.PaymentDetail, error) {
	return s.listPayments(func(p models.Payment) bool { return s.properties[p.PropertyID].OwnerID == ownerID }), nil
}

func (s *memStore) listPayments(keep func(models.Payment) bool) []models.PaymentDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PaymentDetail
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, s.paymentDetail(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type memTx struct {
	s *memStore
}

func (t *memTx) FindOpenOccupancy(_ context.Context, tenantID, propertyID string) (*models.Occupancy, error) {
	for _, rec := range t.s.occupancies {
		if rec.TenantID == tenantID && rec.PropertyID == propertyID &&
			(rec.Status == models.OccupancyPending || rec.Status == models.OccupancyActive) {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertOccupancy(_ context.Context, rec models.Occupancy) (models.Occupancy, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = t.s.nextCreatedAt()
	t.s.occupancies[rec.ID] = rec
	return rec, nil
}

func (t *memTx) LockOccupancy(_ context.Context, id string) (models.Occupancy, error) {
	rec, ok := t.s.occupancies[id]
	if !ok {
		return models.Occupancy{}, sql.ErrNoRows
	}
	return rec, nil
}

func (t *memTx) SetOccupancyStatus(_ context.Context, id string, from, to models.OccupancyStatus, joinedAt *time.Time) (models.Occupancy, error) {
	rec, ok := t.s.occupancies[id]
	if !ok || rec.Status != from {
		return models.Occupancy{}, sql.ErrNoRows
	}
	rec.Status = to
	if joinedAt != nil {
		rec.JoinedAt = joinedAt
	}
	t.s.occupancies[id] = rec
	return rec, nil
}

func (t *memTx) ActiveOccupanciesForUnit(_ context.Context, unitID string) ([]models.Occupancy, error) {
	var out []models.Occupancy
	for _, rec := range t.s.occupancies {
		if rec.Status == models.OccupancyActive && rec.UnitID != nil && *rec.UnitID == unitID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *memTx) OccupanciesForTenantProperty(_ context.Context, tenantID, propertyID string) ([]models.Occupancy, error) {
	var out []models.Occupancy
	for _, rec := range t.s.sortedOccupancies() {
		if rec.TenantID == tenantID && rec.PropertyID == propertyID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *memTx) AdvanceLastPaymentDate(_ context.Context, id string, paidOn time.Time) error {
	rec, ok := t.s.occupancies[id]
	if !ok {
		return sql.ErrNoRows
	}
	if rec.LastPaymentDate == nil || paidOn.After(*rec.LastPaymentDate) {
		rec.LastPaymentDate = &paidOn
	}
	t.s.occupancies[id] = rec
	return nil
}

func (t *memTx) LockUnit(_ context.Context, id string) (models.Unit, error) {
	u, ok := t.s.units[id]
	if !ok {
		return models.Unit{}, sql.ErrNoRows
	}
	return u, nil
}

func (t *memTx) ClaimUnit(_ context.Context, unitID, tenantID string) (bool, error) {
	u, ok := t.s.units[unitID]
	if !ok || !u.Vacant() {
		return false, nil
	}
	u.IsAvailable = false
	u.TenantID = &tenantID
	t.s.units[unitID] = u
	return true, nil
}

func (t *memTx) ReleaseUnit(_ context.Context, unitID string) error {
	u, ok := t.s.units[unitID]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsAvailable = true
	u.TenantID = nil
	t.s.units[unitID] = u
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p models.Payment) (models.Payment, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = t.s.nextCreatedAt()
	t.s.payments[p.ID] = p
	return p, nil
}

func (t *memTx) LockPayment(_ context.Context, id string) (models.Payment, error) {
	p, ok := t.s.payments[id]
	if !ok {
		return models.Payment{}, sql.ErrNoRows
	}
	return p, nil
}

func (t *memTx) SetPaymentStatus(_ context.Context, id string, from, to models.PaymentStatus, settlement PaymentSettlement) (models.Payment, error) {
	p, ok := t.s.payments[id]
	if !ok || p.Status != from {
		return models.Payment{}, sql.ErrNoRows
	}
	p.Status = to
	if settlement.PaidOn != nil {
		p.PaidOn = settlement.PaidOn
	}
	if settlement.ExpiresAt != nil {
		p.PaymentExpiresAt = settlement.ExpiresAt
	}
	if settlement.ProviderRef != nil {
		p.ProviderRef = settlement.ProviderRef
	}
	t.s.payments[id] = p
	return p, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	notices []models.JoinRequestNotice
	err     error
}

func (d *recordingDispatcher) NotifyJoinRequest(_ context.Context, notice models.JoinRequestNotice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, notice)
	return d.err
}

func (d *recordingDispatcher) sent() []models.JoinRequestNotice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.JoinRequestNotice(nil), d.notices...)
}
