package models

import "time"

type UserRole string

const (
	RoleLandlord UserRole = "landlord"
	RoleTenant   UserRole = "tenant"
)

func IsValidRole(role UserRole) bool {
	return role == RoleLandlord || role == RoleTenant
}

// UserProfile mirrors an identity-provider user with the fields the app keeps about them.
type UserProfile struct {
	ID        string    `json:"id" db:"id"`
	FullName  *string   `json:"full_name,omitempty" db:"full_name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName falls back to "Unknown" when the profile has no name.
func (p UserProfile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return "Unknown"
}
