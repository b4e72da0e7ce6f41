package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

type ReviewRepository interface {
	UpsertReview(ctx context.Context, propertyID, tenantID string, in occupancy.ReviewInput) (models.Review, error)
	ListReviews(ctx context.Context, propertyID string) ([]models.Review, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// UpsertReview keeps one review per tenant and property.
func (r *reviewRepository) UpsertReview(ctx context.Context, propertyID, tenantID string, in occupancy.ReviewInput) (models.Review, error) {
	const query = `
		INSERT INTO nestpay.reviews (property_id, tenant_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (property_id, tenant_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, created_at = NOW()
		RETURNING id, property_id, tenant_id, rating, comment, created_at
	`
	var (
		review  models.Review
		comment sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, propertyID, tenantID, in.Rating, in.Comment).Scan(
		&review.ID, &review.PropertyID, &review.TenantID, &review.Rating, &comment, &review.CreatedAt,
	)
	if err != nil {
		return models.Review{}, errors.Wrap(err, "upsert review")
	}
	review.Comment = stringPtr(comment)
	return review, nil
}

func (r *reviewRepository) ListReviews(ctx context.Context, propertyID string) ([]models.Review, error) {
	const query = `
		SELECT rv.id, rv.property_id, rv.tenant_id, up.full_name, rv.rating, rv.comment, rv.created_at
		FROM nestpay.reviews rv
		LEFT JOIN nestpay.user_profiles up ON up.id = rv.tenant_id
		WHERE rv.property_id = $1
		ORDER BY rv.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var (
			review  models.Review
			name    sql.NullString
			comment sql.NullString
		)
		if err := rows.Scan(&review.ID, &review.PropertyID, &review.TenantID, &name, &review.Rating, &comment, &review.CreatedAt); err != nil {
			return nil, err
		}
		review.TenantName = stringPtr(name)
		review.Comment = stringPtr(comment)
		out = append(out, review)
	}
	return out, rows.Err()
}
