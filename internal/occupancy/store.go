package occupancy

import (
	"context"
	"time"

	"github.com/stanstork/nestpay-api/internal/models"
)

// Catalog resolves properties and units. Missing rows are reported as sql.ErrNoRows.
type Catalog interface {
	GetPropertyByJoinCode(ctx context.Context, code string) (models.Property, error)
	GetProperty(ctx context.Context, id string) (models.Property, error)
	GetUnit(ctx context.Context, id string) (models.Unit, error)
}

type Profiles interface {
	GetProfile(ctx context.Context, id string) (models.UserProfile, error)
}

// Dispatcher delivers join-request notices. Implementations must not block on delivery.
type Dispatcher interface {
	NotifyJoinRequest(ctx context.Context, notice models.JoinRequestNotice) error
}

// Store owns occupancy records and payments. Every mutation goes through InTx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetOccupancy(ctx context.Context, id string) (models.OccupancyDetail, error)
	ListOccupanciesByTenant(ctx context.Context, tenantID string) ([]models.OccupancyDetail, error)
	ListOccupanciesByOwner(ctx context.Context, ownerID string, status *models.OccupancyStatus) ([]models.OccupancyDetail, error)

	GetPayment(ctx context.Context, id string) (models.PaymentDetail, error)
	ListPaymentsByTenant(ctx context.Context, tenantID string) ([]models.PaymentDetail, error)
	ListPaymentsByOwner(ctx context.Context, ownerID string) ([]models.PaymentDetail, error)
}

// PaymentSettlement carries the fields written when a payment leaves pending.
type PaymentSettlement struct {
	PaidOn      *time.Time
	ExpiresAt   *time.Time
	ProviderRef *string
}

// Tx is a unit of work. Lock methods hold the row until the transaction ends.
type Tx interface {
	FindOpenOccupancy(ctx context.Context, tenantID, propertyID string) (*models.Occupancy, error)
	InsertOccupancy(ctx context.Context, rec models.Occupancy) (models.Occupancy, error)
	LockOccupancy(ctx context.Context, id string) (models.Occupancy, error)
	// SetOccupancyStatus moves id from one status to another and returns sql.ErrNoRows
	// when the record is not in the expected status.
	SetOccupancyStatus(ctx context.Context, id string, from, to models.OccupancyStatus, joinedAt *time.Time) (models.Occupancy, error)
	ActiveOccupanciesForUnit(ctx context.Context, unitID string) ([]models.Occupancy, error)
	// OccupanciesForTenantProperty returns matching records, newest first.
	OccupanciesForTenantProperty(ctx context.Context, tenantID, propertyID string) ([]models.Occupancy, error)
	// AdvanceLastPaymentDate never moves the date backwards.
	AdvanceLastPaymentDate(ctx context.Context, id string, paidOn time.Time) error

	LockUnit(ctx context.Context, id string) (models.Unit, error)
	// ClaimUnit assigns the unit only if it is still vacant and reports whether it did.
	ClaimUnit(ctx context.Context, unitID, tenantID string) (bool, error)
	ReleaseUnit(ctx context.Context, unitID string) error

	InsertPayment(ctx context.Context, p models.Payment) (models.Payment, error)
	LockPayment(ctx context.Context, id string) (models.Payment, error)
	SetPaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, settlement PaymentSettlement) (models.Payment, error)
}
