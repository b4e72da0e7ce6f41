package occupancy

import (
	"fmt"
	"time"

	"github.com/stanstork/nestpay-api/internal/models"
)

const ExpiringSoonDays = 7

// Standing is the payment standing of a tenancy at a point in time.
type Standing struct {
	Status        models.PaymentStanding
	DaysRemaining *int
	Label         string
}

// DeriveStanding computes standing from the latest paid expiry and the record's
// last payment date. It is recomputed on every read.
func DeriveStanding(expiresAt, lastPaymentDate *time.Time, now time.Time) Standing {
	if expiresAt == nil {
		if lastPaymentDate == nil {
			return Standing{Status: models.StandingNeverPaid, Label: "Never Paid"}
		}
		return Standing{Status: models.StandingUnknown, Label: "Status Unknown"}
	}
	if expiresAt.Before(now) {
		return Standing{Status: models.StandingExpired, Label: "Payment Overdue"}
	}

	days := int(expiresAt.Sub(now) / (24 * time.Hour))
	if days <= ExpiringSoonDays {
		return Standing{
			Status:        models.StandingExpiringSoon,
			DaysRemaining: &days,
			Label:         fmt.Sprintf("Expires in %d days", days),
		}
	}
	return Standing{Status: models.StandingActive, DaysRemaining: &days, Label: "Paid"}
}
