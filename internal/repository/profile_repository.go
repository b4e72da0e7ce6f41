package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/stanstork/nestpay-api/internal/models"
)

type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (models.UserProfile, error)
	// EnsureProfile creates the profile on first sight of a user and leaves existing rows alone.
	EnsureProfile(ctx context.Context, id string, role models.UserRole, email *string) (models.UserProfile, error)
	UpdateProfile(ctx context.Context, id string, fullName, phone *string) (models.UserProfile, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, full_name, phone, email, role, created_at, updated_at`

func (r *profileRepository) GetProfile(ctx context.Context, id string) (models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM nestpay.user_profiles WHERE id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, id))
}

func (r *profileRepository) EnsureProfile(ctx context.Context, id string, role models.UserRole, email *string) (models.UserProfile, error) {
	query := `
		INSERT INTO nestpay.user_profiles (id, role, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = COALESCE(nestpay.user_profiles.email, EXCLUDED.email)
		RETURNING ` + profileColumns
	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, id, role, email))
	if err != nil {
		return models.UserProfile{}, errors.Wrap(err, "ensure profile")
	}
	return profile, nil
}

func (r *profileRepository) UpdateProfile(ctx context.Context, id string, fullName, phone *string) (models.UserProfile, error) {
	query := `
		UPDATE nestpay.user_profiles
		SET full_name = COALESCE($2, full_name), phone = COALESCE($3, phone), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRowContext(ctx, query, id, fullName, phone))
}

func scanProfile(s scanner) (models.UserProfile, error) {
	var (
		p        models.UserProfile
		fullName sql.NullString
		phone    sql.NullString
		email    sql.NullString
	)
	if err := s.Scan(&p.ID, &fullName, &phone, &email, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.UserProfile{}, err
	}
	p.FullName = stringPtr(fullName)
	p.Phone = stringPtr(phone)
	p.Email = stringPtr(email)
	return p, nil
}
