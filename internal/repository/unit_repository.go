package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

const unitColumns = `id, property_id, label, unit_type, description, rent_amount, is_available, tenant_id, created_at`

type UnitRepository interface {
	CreateUnit(ctx context.Context, propertyID string, in occupancy.UnitInput) (models.Unit, error)
	GetUnit(ctx context.Context, id string) (models.Unit, error)
	ListAvailableUnits(ctx context.Context, propertyID string) ([]models.Unit, error)
	ListUnitOccupancy(ctx context.Context, propertyID string) ([]models.UnitOccupancy, error)
	DeleteVacantUnit(ctx context.Context, id string) error
}

type unitRepository struct {
	db *sql.DB
}

func NewUnitRepository(db *sql.DB) UnitRepository {
	return &unitRepository{db: db}
}

func (r *unitRepository) CreateUnit(ctx context.Context, propertyID string, in occupancy.UnitInput) (models.Unit, error) {
	query := `
		INSERT INTO nestpay.units (property_id, label, unit_type, description, rent_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + unitColumns
	unit, err := scanUnit(r.db.QueryRowContext(ctx, query, propertyID, in.Label, in.UnitType, in.Description, in.RentAmount))
	if err != nil {
		return models.Unit{}, errors.Wrap(err, "insert unit")
	}
	return unit, nil
}

func (r *unitRepository) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM nestpay.units WHERE id = $1`
	return scanUnit(r.db.QueryRowContext(ctx, query, id))
}

func (r *unitRepository) ListAvailableUnits(ctx context.Context, propertyID string) ([]models.Unit, error) {
	query := `
		SELECT ` + unitColumns + `
		FROM nestpay.units
		WHERE property_id = $1 AND is_available
		ORDER BY label
	`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, errors.Wrap(err, "list available units")
	}
	defer rows.Close()

	var out []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *unitRepository) ListUnitOccupancy(ctx context.Context, propertyID string) ([]models.UnitOccupancy, error) {
	const query = `
		SELECT u.id, u.property_id, u.label, u.unit_type, u.description, u.rent_amount, u.is_available, u.tenant_id, u.created_at,
		       uo.tenant_name, uo.tenant_phone, uo.occupancy_status, uo.last_payment_date
		FROM nestpay.units u
		LEFT JOIN nestpay.unit_occupancy uo ON uo.unit_id = u.id AND uo.occupancy_id IS NOT NULL
		WHERE u.property_id = $1
		ORDER BY u.label
	`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, errors.Wrap(err, "list unit occupancy")
	}
	defer rows.Close()

	var out []models.UnitOccupancy
	for rows.Next() {
		var (
			uo          models.UnitOccupancy
			description sql.NullString
			rent        decimal.NullDecimal
			tenantID    sql.NullString
			tenantName  sql.NullString
			tenantPhone sql.NullString
			status      sql.NullString
			lastPayment sql.NullTime
		)
		if err := rows.Scan(
			&uo.ID, &uo.PropertyID, &uo.Label, &uo.UnitType, &description, &rent, &uo.IsAvailable, &tenantID, &uo.CreatedAt,
			&tenantName, &tenantPhone, &status, &lastPayment,
		); err != nil {
			return nil, err
		}
		uo.Description = stringPtr(description)
		uo.RentAmount = decimalPtr(rent)
		uo.TenantID = stringPtr(tenantID)
		uo.TenantName = stringPtr(tenantName)
		uo.TenantPhone = stringPtr(tenantPhone)
		if status.Valid {
			s := models.OccupancyStatus(status.String)
			uo.OccupancyStatus = &s
		}
		uo.LastPaymentDate = timePtr(lastPayment)
		out = append(out, uo)
	}
	return out, rows.Err()
}

// DeleteVacantUnit refuses to delete a unit that still has a tenant.
func (r *unitRepository) DeleteVacantUnit(ctx context.Context, id string) error {
	const query = `DELETE FROM nestpay.units WHERE id = $1 AND is_available AND tenant_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "delete unit")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete unit")
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetUnit(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: unit %s is occupied", occupancy.ErrConflict, id)
}

func scanUnit(s scanner) (models.Unit, error) {
	var (
		u           models.Unit
		description sql.NullString
		rent        decimal.NullDecimal
		tenantID    sql.NullString
	)
	if err := s.Scan(
		&u.ID,
		&u.PropertyID,
		&u.Label,
		&u.UnitType,
		&description,
		&rent,
		&u.IsAvailable,
		&tenantID,
		&u.CreatedAt,
	); err != nil {
		return models.Unit{}, err
	}
	u.Description = stringPtr(description)
	u.RentAmount = decimalPtr(rent)
	u.TenantID = stringPtr(tenantID)
	return u, nil
}
