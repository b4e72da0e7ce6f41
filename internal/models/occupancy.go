package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OccupancyStatus string

const (
	OccupancyPending  OccupancyStatus = "pending"
	OccupancyActive   OccupancyStatus = "active"
	OccupancyRejected OccupancyStatus = "rejected"
	OccupancyInactive OccupancyStatus = "inactive"
)

func (s OccupancyStatus) Valid() bool {
	switch s {
	case OccupancyPending, OccupancyActive, OccupancyRejected, OccupancyInactive:
		return true
	}
	return false
}

// Occupancy links a tenant to a property (and optionally a unit).
type Occupancy struct {
	ID                string          `json:"id" db:"id"`
	TenantID          string          `json:"tenant_id" db:"tenant_id"`
	PropertyID        string          `json:"property_id" db:"property_id"`
	UnitID            *string         `json:"unit_id,omitempty" db:"unit_id"`
	Status            OccupancyStatus `json:"status" db:"status"`
	InvitationMessage *string         `json:"invitation_message,omitempty" db:"invitation_message"`
	InvitedBy         *string         `json:"invited_by,omitempty" db:"invited_by"`
	JoinedAt          *time.Time      `json:"joined_at,omitempty" db:"joined_at"`
	LastPaymentDate   *time.Time      `json:"last_payment_date,omitempty" db:"last_payment_date"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// OccupancyDetail is an occupancy with the display fields of its property, unit and tenant.
type OccupancyDetail struct {
	Occupancy
	PropertyTitle string           `json:"property_title"`
	OwnerID       string           `json:"owner_id"`
	UnitLabel     *string          `json:"unit_label,omitempty"`
	TenantName    *string          `json:"tenant_name,omitempty"`
	TenantPhone   *string          `json:"tenant_phone,omitempty"`
	TenantEmail   *string          `json:"tenant_email,omitempty"`
	RentAmount    decimal.Decimal  `json:"rent_amount"`
	UnitRent      *decimal.Decimal `json:"unit_rent_amount,omitempty"`
	RentCurrency  string           `json:"rent_currency"`
}

// RosterEntry is an active tenant of a landlord with their derived standing.
type RosterEntry struct {
	OccupancyDetail
	LatestPaymentID  *string         `json:"latest_payment_id,omitempty"`
	PaymentExpiresAt *time.Time      `json:"payment_expires_at,omitempty"`
	Standing         PaymentStanding `json:"standing"`
	DaysRemaining    *int            `json:"days_remaining,omitempty"`
	StandingLabel    string          `json:"standing_label"`
}
