package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

const occupancyColumns = `id, tenant_id, property_id, unit_id, status, invitation_message, invited_by, joined_at, last_payment_date, created_at`

const occupancyDetailSelect = `
	SELECT tp.id, tp.tenant_id, tp.property_id, tp.unit_id, tp.status, tp.invitation_message,
	       tp.invited_by, tp.joined_at, tp.last_payment_date, tp.created_at,
	       p.title, p.owner_id, u.label, up.full_name, up.phone, up.email,
	       p.rent_amount, u.rent_amount, p.rent_currency
	FROM nestpay.tenant_properties tp
	JOIN nestpay.properties p ON p.id = tp.property_id
	LEFT JOIN nestpay.units u ON u.id = tp.unit_id
	LEFT JOIN nestpay.user_profiles up ON up.id = tp.tenant_id
`

// LifecycleStore persists occupancy records and payments in PostgreSQL.
type LifecycleStore struct {
	db *sql.DB
}

func NewLifecycleStore(db *sql.DB) *LifecycleStore {
	return &LifecycleStore{db: db}
}

// InTx runs fn in one transaction, committing only when fn succeeds.
func (s *LifecycleStore) InTx(ctx context.Context, fn func(tx occupancy.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(&lifecycleTx{q: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

func (s *LifecycleStore) GetOccupancy(ctx context.Context, id string) (models.OccupancyDetail, error) {
	row := s.db.QueryRowContext(ctx, occupancyDetailSelect+` WHERE tp.id = $1`, id)
	return scanOccupancyDetail(row)
}

func (s *LifecycleStore) ListOccupanciesByTenant(ctx context.Context, tenantID string) ([]models.OccupancyDetail, error) {
	return s.listOccupancies(ctx, occupancyDetailSelect+` WHERE tp.tenant_id = $1 ORDER BY tp.created_at DESC`, tenantID)
}

func (s *LifecycleStore) ListOccupanciesByOwner(ctx context.Context, ownerID string, status *models.OccupancyStatus) ([]models.OccupancyDetail, error) {
	const filter = ` WHERE p.owner_id = $1 AND ($2::text IS NULL OR tp.status = $2) ORDER BY tp.created_at DESC`
	var statusArg interface{}
	if status != nil {
		statusArg = string(*status)
	}
	return s.listOccupancies(ctx, occupancyDetailSelect+filter, ownerID, statusArg)
}

func (s *LifecycleStore) listOccupancies(ctx context.Context, query string, args ...interface{}) ([]models.OccupancyDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list occupancies")
	}
	defer rows.Close()

	var out []models.OccupancyDetail
	for rows.Next() {
		rec, err := scanOccupancyDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type lifecycleTx struct {
	q queryer
}

func (t *lifecycleTx) FindOpenOccupancy(ctx context.Context, tenantID, propertyID string) (*models.Occupancy, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM nestpay.tenant_properties
		WHERE tenant_id = $1 AND property_id = $2 AND status IN ('pending', 'active')
		LIMIT 1
		FOR UPDATE
	`
	rec, err := scanOccupancy(t.q.QueryRowContext(ctx, query, tenantID, propertyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find open occupancy")
	}
	return &rec, nil
}

func (t *lifecycleTx) InsertOccupancy(ctx context.Context, rec models.Occupancy) (models.Occupancy, error) {
	query := `
		INSERT INTO nestpay.tenant_properties (tenant_id, property_id, unit_id, status, invitation_message, invited_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + occupancyColumns
	created, err := scanOccupancy(t.q.QueryRowContext(ctx, query,
		rec.TenantID, rec.PropertyID, rec.UnitID, rec.Status, rec.InvitationMessage, rec.InvitedBy))
	if isUniqueViolation(err) {
		return models.Occupancy{}, fmt.Errorf("%w: an open request for this property already exists", occupancy.ErrConflict)
	}
	if err != nil {
		return models.Occupancy{}, errors.Wrap(err, "insert occupancy")
	}
	return created, nil
}

func (t *lifecycleTx) LockOccupancy(ctx context.Context, id string) (models.Occupancy, error) {
	query := `SELECT ` + occupancyColumns + ` FROM nestpay.tenant_properties WHERE id = $1 FOR UPDATE`
	return scanOccupancy(t.q.QueryRowContext(ctx, query, id))
}

func (t *lifecycleTx) SetOccupancyStatus(ctx context.Context, id string, from, to models.OccupancyStatus, joinedAt *time.Time) (models.Occupancy, error) {
	query := `
		UPDATE nestpay.tenant_properties
		SET status = $3, joined_at = COALESCE($4, joined_at)
		WHERE id = $1 AND status = $2
		RETURNING ` + occupancyColumns
	return scanOccupancy(t.q.QueryRowContext(ctx, query, id, from, to, joinedAt))
}

func (t *lifecycleTx) ActiveOccupanciesForUnit(ctx context.Context, unitID string) ([]models.Occupancy, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM nestpay.tenant_properties
		WHERE unit_id = $1 AND status = 'active'
		FOR UPDATE
	`
	return t.queryOccupancies(ctx, query, unitID)
}

func (t *lifecycleTx) OccupanciesForTenantProperty(ctx context.Context, tenantID, propertyID string) ([]models.Occupancy, error) {
	query := `
		SELECT ` + occupancyColumns + `
		FROM nestpay.tenant_properties
		WHERE tenant_id = $1 AND property_id = $2
		ORDER BY created_at DESC
		FOR UPDATE
	`
	return t.queryOccupancies(ctx, query, tenantID, propertyID)
}

func (t *lifecycleTx) queryOccupancies(ctx context.Context, query string, args ...interface{}) ([]models.Occupancy, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query occupancies")
	}
	defer rows.Close()

	var out []models.Occupancy
	for rows.Next() {
		rec, err := scanOccupancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *lifecycleTx) AdvanceLastPaymentDate(ctx context.Context, id string, paidOn time.Time) error {
	const query = `
		UPDATE nestpay.tenant_properties
		SET last_payment_date = GREATEST(last_payment_date, $2::timestamptz)
		WHERE id = $1
	`
	_, err := t.q.ExecContext(ctx, query, id, paidOn)
	return errors.Wrap(err, "advance last payment date")
}

func (t *lifecycleTx) LockUnit(ctx context.Context, id string) (models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM nestpay.units WHERE id = $1 FOR UPDATE`
	return scanUnit(t.q.QueryRowContext(ctx, query, id))
}

// ClaimUnit is a compare-and-set: it only assigns a unit that is still vacant.
func (t *lifecycleTx) ClaimUnit(ctx context.Context, unitID, tenantID string) (bool, error) {
	const query = `
		UPDATE nestpay.units
		SET tenant_id = $2, is_available = FALSE
		WHERE id = $1 AND is_available AND tenant_id IS NULL
	`
	res, err := t.q.ExecContext(ctx, query, unitID, tenantID)
	if err != nil {
		return false, errors.Wrap(err, "claim unit")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "claim unit")
	}
	return n == 1, nil
}

func (t *lifecycleTx) ReleaseUnit(ctx context.Context, unitID string) error {
	const query = `UPDATE nestpay.units SET tenant_id = NULL, is_available = TRUE WHERE id = $1`
	_, err := t.q.ExecContext(ctx, query, unitID)
	return errors.Wrap(err, "release unit")
}

func scanOccupancy(s scanner) (models.Occupancy, error) {
	var (
		rec         models.Occupancy
		unitID      sql.NullString
		message     sql.NullString
		invitedBy   sql.NullString
		joinedAt    sql.NullTime
		lastPayment sql.NullTime
	)
	if err := s.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.PropertyID,
		&unitID,
		&rec.Status,
		&message,
		&invitedBy,
		&joinedAt,
		&lastPayment,
		&rec.CreatedAt,
	); err != nil {
		return models.Occupancy{}, err
	}
	rec.UnitID = stringPtr(unitID)
	rec.InvitationMessage = stringPtr(message)
	rec.InvitedBy = stringPtr(invitedBy)
	rec.JoinedAt = timePtr(joinedAt)
	rec.LastPaymentDate = timePtr(lastPayment)
	return rec, nil
}

func scanOccupancyDetail(s scanner) (models.OccupancyDetail, error) {
	var (
		d           models.OccupancyDetail
		unitID      sql.NullString
		message     sql.NullString
		invitedBy   sql.NullString
		joinedAt    sql.NullTime
		lastPayment sql.NullTime
		unitLabel   sql.NullString
		tenantName  sql.NullString
		tenantPhone sql.NullString
		tenantEmail sql.NullString
		unitRent    decimal.NullDecimal
	)
	if err := s.Scan(
		&d.ID,
		&d.TenantID,
		&d.PropertyID,
		&unitID,
		&d.Status,
		&message,
		&invitedBy,
		&joinedAt,
		&lastPayment,
		&d.CreatedAt,
		&d.PropertyTitle,
		&d.OwnerID,
		&unitLabel,
		&tenantName,
		&tenantPhone,
		&tenantEmail,
		&d.RentAmount,
		&unitRent,
		&d.RentCurrency,
	); err != nil {
		return models.OccupancyDetail{}, err
	}
	d.UnitID = stringPtr(unitID)
	d.InvitationMessage = stringPtr(message)
	d.InvitedBy = stringPtr(invitedBy)
	d.JoinedAt = timePtr(joinedAt)
	d.LastPaymentDate = timePtr(lastPayment)
	d.UnitLabel = stringPtr(unitLabel)
	d.TenantName = stringPtr(tenantName)
	d.TenantPhone = stringPtr(tenantPhone)
	d.TenantEmail = stringPtr(tenantEmail)
	d.UnitRent = decimalPtr(unitRent)
	return d, nil
}
