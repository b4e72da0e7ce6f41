package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

const propertyColumns = `id, owner_id, title, description, address, city, region, country,
	rent_amount, rent_currency, rent_due_day, join_code, is_active, created_at, updated_at`

// joinCodeAttempts bounds how often a colliding join code is regenerated.
const joinCodeAttempts = 5

type PropertyRepository interface {
	CreateProperty(ctx context.Context, ownerID string, in occupancy.PropertyInput) (models.Property, error)
	GetProperty(ctx context.Context, id string) (models.Property, error)
	GetPropertyByJoinCode(ctx context.Context, code string) (models.Property, error)
	ListPropertiesByOwner(ctx context.Context, ownerID string) ([]models.Property, error)
	ListActiveProperties(ctx context.Context) ([]models.PropertySummary, error)
	GetPropertySummary(ctx context.Context, id string) (models.PropertySummary, error)
	SetPropertyActive(ctx context.Context, id string, active bool) (models.Property, error)
}

type propertyRepository struct {
	db      *sql.DB
	newCode func() (string, error)
}

func NewPropertyRepository(db *sql.DB) PropertyRepository {
	return &propertyRepository{db: db, newCode: GenerateJoinCode}
}

func (r *propertyRepository) CreateProperty(ctx context.Context, ownerID string, in occupancy.PropertyInput) (models.Property, error) {
	query := `
		INSERT INTO nestpay.properties
			(owner_id, title, description, address, city, region, country, rent_amount, rent_currency, rent_due_day, join_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + propertyColumns

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return models.Property{}, err
		}
		property, err := scanProperty(r.db.QueryRowContext(ctx, query,
			ownerID, in.Title, in.Description, in.Address, in.City, in.Region, in.Country,
			in.RentAmount, in.RentCurrency, in.RentDueDay, code))
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return models.Property{}, errors.Wrap(err, "insert property")
		}
		return property, nil
	}
	return models.Property{}, fmt.Errorf("%w: could not allocate a unique join code", occupancy.ErrConflict)
}

func (r *propertyRepository) GetProperty(ctx context.Context, id string) (models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM nestpay.properties WHERE id = $1`
	return scanProperty(r.db.QueryRowContext(ctx, query, id))
}

// GetPropertyByJoinCode only resolves active properties.
func (r *propertyRepository) GetPropertyByJoinCode(ctx context.Context, code string) (models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM nestpay.properties WHERE join_code = $1 AND is_active`
	return scanProperty(r.db.QueryRowContext(ctx, query, code))
}

func (r *propertyRepository) ListPropertiesByOwner(ctx context.Context, ownerID string) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM nestpay.properties WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list properties")
	}
	defer rows.Close()

	var out []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const summarySelect = `
	SELECT p.id, p.owner_id, p.title, p.description, p.address, p.city, p.region, p.country,
	       p.rent_amount, p.rent_currency, p.rent_due_day, p.join_code, p.is_active, p.created_at, p.updated_at,
	       r.average_rating, COALESCE(r.review_count, 0),
	       (SELECT COUNT(*) FROM nestpay.units u WHERE u.property_id = p.id AND u.is_available)
	FROM nestpay.properties p
	LEFT JOIN nestpay.property_ratings r ON r.property_id = p.id
`

func (r *propertyRepository) ListActiveProperties(ctx context.Context) ([]models.PropertySummary, error) {
	rows, err := r.db.QueryContext(ctx, summarySelect+` WHERE p.is_active ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list active properties")
	}
	defer rows.Close()

	var out []models.PropertySummary
	for rows.Next() {
		s, err := scanPropertySummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *propertyRepository) GetPropertySummary(ctx context.Context, id string) (models.PropertySummary, error) {
	return scanPropertySummary(r.db.QueryRowContext(ctx, summarySelect+` WHERE p.id = $1`, id))
}

func (r *propertyRepository) SetPropertyActive(ctx context.Context, id string, active bool) (models.Property, error) {
	query := `
		UPDATE nestpay.properties SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + propertyColumns
	return scanProperty(r.db.QueryRowContext(ctx, query, id, active))
}

func scanProperty(s scanner) (models.Property, error) {
	var (
		p           models.Property
		description sql.NullString
		address     sql.NullString
		city        sql.NullString
		region      sql.NullString
		dueDay      sql.NullInt64
	)
	if err := s.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&description,
		&address,
		&city,
		&region,
		&p.Country,
		&p.RentAmount,
		&p.RentCurrency,
		&dueDay,
		&p.JoinCode,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return models.Property{}, err
	}
	p.Description = stringPtr(description)
	p.Address = stringPtr(address)
	p.City = stringPtr(city)
	p.Region = stringPtr(region)
	p.RentDueDay = intPtr(dueDay)
	return p, nil
}

func scanPropertySummary(s scanner) (models.PropertySummary, error) {
	var (
		sum         models.PropertySummary
		description sql.NullString
		address     sql.NullString
		city        sql.NullString
		region      sql.NullString
		dueDay      sql.NullInt64
		rating      sql.NullFloat64
	)
	if err := s.Scan(
		&sum.ID,
		&sum.OwnerID,
		&sum.Title,
		&description,
		&address,
		&city,
		&region,
		&sum.Country,
		&sum.RentAmount,
		&sum.RentCurrency,
		&dueDay,
		&sum.JoinCode,
		&sum.IsActive,
		&sum.CreatedAt,
		&sum.UpdatedAt,
		&rating,
		&sum.ReviewCount,
		&sum.AvailableUnits,
	); err != nil {
		return models.PropertySummary{}, err
	}
	sum.Description = stringPtr(description)
	sum.Address = stringPtr(address)
	sum.City = stringPtr(city)
	sum.Region = stringPtr(region)
	sum.RentDueDay = intPtr(dueDay)
	if rating.Valid {
		v := rating.Float64
		sum.AverageRating = &v
	}
	return sum, nil
}
