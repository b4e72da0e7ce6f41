package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentManual PaymentMethod = "manual"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentManual || m == PaymentOnline
}

type Payment struct {
	ID               string          `json:"id" db:"id"`
	TenantID         string          `json:"tenant_id" db:"tenant_id"`
	PropertyID       string          `json:"property_id" db:"property_id"`
	UnitID           *string         `json:"unit_id,omitempty" db:"unit_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Currency         string          `json:"currency" db:"currency"`
	Method           PaymentMethod   `json:"method" db:"method"`
	Provider         *string         `json:"provider,omitempty" db:"provider"`
	ProviderRef      *string         `json:"provider_ref,omitempty" db:"provider_ref"`
	Status           PaymentStatus   `json:"status" db:"status"`
	PaidOn           *time.Time      `json:"paid_on,omitempty" db:"paid_on"`
	PaymentExpiresAt *time.Time      `json:"payment_expires_at,omitempty" db:"payment_expires_at"`
	DurationMonths   int             `json:"duration_months" db:"duration_months"`
	Metadata         json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// PaymentDetail is a payment with display fields and the outstanding balance.
type PaymentDetail struct {
	Payment
	PropertyTitle string           `json:"property_title"`
	UnitLabel     *string          `json:"unit_label,omitempty"`
	TenantName    *string          `json:"tenant_name,omitempty"`
	PropertyRent  decimal.Decimal  `json:"-"`
	UnitRent      *decimal.Decimal `json:"-"`
	ExpectedRent  decimal.Decimal  `json:"expected_rent"`
	Balance       decimal.Decimal  `json:"balance"`
}

// WithBalance fills ExpectedRent and Balance. A payment never yields a negative balance.
func (d PaymentDetail) WithBalance() PaymentDetail {
	d.ExpectedRent = ExpectedRent(d.PropertyRent, d.UnitRent)
	d.Balance = d.ExpectedRent.Sub(d.Amount)
	if d.Balance.IsNegative() {
		d.Balance = decimal.Zero
	}
	return d
}

// PaymentStanding is derived on read and never stored.
type PaymentStanding string

const (
	StandingNeverPaid    PaymentStanding = "never_paid"
	StandingUnknown      PaymentStanding = "unknown"
	StandingExpired      PaymentStanding = "expired"
	StandingExpiringSoon PaymentStanding = "expiring_soon"
	StandingActive       PaymentStanding = "active"
)
