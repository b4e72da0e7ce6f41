package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/authz"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

// ProfileStore is the slice of the profile repository the auth handler uses.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (models.UserProfile, error)
	EnsureProfile(ctx context.Context, id string, role models.UserRole, email *string) (models.UserProfile, error)
	UpdateProfile(ctx context.Context, id string, fullName, phone *string) (models.UserProfile, error)
}

// AuthHandler verifies identity-provider tokens and serves the caller's profile.
type AuthHandler struct {
	profiles  ProfileStore
	jwtSecret string
	logger    zerolog.Logger
}

func NewAuthHandler(profiles ProfileStore, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		profiles:  profiles,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("handler", "auth").Logger(),
	}
}

func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeMessage(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeMessage(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			writeMessage(w, http.StatusUnauthorized, "Token expired")
			return
		}
		userID, _ := claims["sub"].(string)
		userID = strings.TrimSpace(userID)
		if userID == "" {
			writeMessage(w, http.StatusUnauthorized, "Missing subject claim")
			return
		}
		if _, err := uuid.Parse(userID); err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid subject claim")
			return
		}

		role, ok := roleFromClaims(claims)
		if !ok {
			role, ok = h.roleFromProfile(r.Context(), userID)
		}
		if !ok {
			writeMessage(w, http.StatusForbidden, "No role assigned to this account")
			return
		}

		ctx := authz.WithIdentity(r.Context(), userID, role)
		if email, ok := claims["email"].(string); ok && strings.TrimSpace(email) != "" {
			ctx = context.WithValue(ctx, emailContextKey{}, strings.TrimSpace(email))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// roleFromClaims reads user_role, falling back to user_metadata.role.
func roleFromClaims(claims jwt.MapClaims) (models.UserRole, bool) {
	if raw, ok := claims["user_role"].(string); ok {
		role := models.UserRole(strings.ToLower(strings.TrimSpace(raw)))
		if models.IsValidRole(role) {
			return role, true
		}
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if raw, ok := meta["role"].(string); ok {
			role := models.UserRole(strings.ToLower(strings.TrimSpace(raw)))
			if models.IsValidRole(role) {
				return role, true
			}
		}
	}
	return "", false
}

func (h *AuthHandler) roleFromProfile(ctx context.Context, userID string) (models.UserRole, bool) {
	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load profile for role lookup")
		}
		return "", false
	}
	return profile.Role, models.IsValidRole(profile.Role)
}

// Me returns the caller's profile, creating it on first sight.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	role, _ := authz.RoleFromRequest(r)

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		profile, err = h.profiles.EnsureProfile(r.Context(), userID, role, emailFromRequest(r))
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load profile")
		writeMessage(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"role":    role,
		"profile": profile,
	})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in occupancy.ProfileInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := in.Normalize()
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update profile")
		return
	}

	role, _ := authz.RoleFromRequest(r)
	if _, err := h.profiles.EnsureProfile(r.Context(), userID, role, emailFromRequest(r)); err != nil {
		writeServiceError(w, h.logger, err, "Failed to update profile")
		return
	}
	profile, err := h.profiles.UpdateProfile(r.Context(), userID, in.FullName, in.Phone)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type emailContextKey struct{}

func emailFromRequest(r *http.Request) *string {
	email, _ := r.Context().Value(emailContextKey{}).(string)
	if email == "" {
		return nil
	}
	return &email
}
