package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "UGX"

type Property struct {
	ID           string          `json:"id" db:"id"`
	OwnerID      string          `json:"owner_id" db:"owner_id"`
	Title        string          `json:"title" db:"title"`
	Description  *string         `json:"description,omitempty" db:"description"`
	Address      *string         `json:"address,omitempty" db:"address"`
	City         *string         `json:"city,omitempty" db:"city"`
	Region       *string         `json:"region,omitempty" db:"region"`
	Country      string          `json:"country" db:"country"`
	RentAmount   decimal.Decimal `json:"rent_amount" db:"rent_amount"`
	RentCurrency string          `json:"rent_currency" db:"rent_currency"`
	RentDueDay   *int            `json:"rent_due_day,omitempty" db:"rent_due_day"`
	JoinCode     string          `json:"join_code" db:"join_code"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// PropertySummary is a browsable property with its review aggregate.
type PropertySummary struct {
	Property
	AverageRating  *float64 `json:"average_rating,omitempty"`
	ReviewCount    int      `json:"review_count"`
	AvailableUnits int      `json:"available_units"`
}

type Unit struct {
	ID          string           `json:"id" db:"id"`
	PropertyID  string           `json:"property_id" db:"property_id"`
	Label       string           `json:"label" db:"label"`
	UnitType    string           `json:"unit_type" db:"unit_type"`
	Description *string          `json:"description,omitempty" db:"description"`
	RentAmount  *decimal.Decimal `json:"rent_amount,omitempty" db:"rent_amount"`
	IsAvailable bool             `json:"is_available" db:"is_available"`
	TenantID    *string          `json:"tenant_id,omitempty" db:"tenant_id"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// Vacant reports whether the unit has no tenant and is open for assignment.
func (u Unit) Vacant() bool {
	return u.IsAvailable && u.TenantID == nil
}

// UnitOccupancy is a unit joined with whoever currently lives in it.
type UnitOccupancy struct {
	Unit
	TenantName      *string          `json:"tenant_name,omitempty"`
	TenantPhone     *string          `json:"tenant_phone,omitempty"`
	OccupancyStatus *OccupancyStatus `json:"occupancy_status,omitempty"`
	LastPaymentDate *time.Time       `json:"last_payment_date,omitempty"`
}

// ExpectedRent returns the unit's own rent when set, otherwise the property's.
func ExpectedRent(propertyRent decimal.Decimal, unitRent *decimal.Decimal) decimal.Decimal {
	if unitRent != nil {
		return *unitRent
	}
	return propertyRent
}
