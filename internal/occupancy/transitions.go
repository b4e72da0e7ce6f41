package occupancy

import (
	"fmt"

	"github.com/stanstork/nestpay-api/internal/models"
)

type Event string

const (
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventVacate  Event = "vacate"
	EventLeave   Event = "leave"
)

var occupancyTransitions = map[models.OccupancyStatus]map[Event]models.OccupancyStatus{
	models.OccupancyPending: {
		EventApprove: models.OccupancyActive,
		EventReject:  models.OccupancyRejected,
	},
	models.OccupancyActive: {
		EventVacate: models.OccupancyInactive,
		EventLeave:  models.OccupancyInactive,
	},
}

// Next returns the status an occupancy moves to when event is applied,
// or ErrInvalidState when the table has no such edge.
func Next(from models.OccupancyStatus, event Event) (models.OccupancyStatus, error) {
	if to, ok := occupancyTransitions[from][event]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: cannot %s an occupancy that is %s", ErrInvalidState, event, from)
}

type PaymentEvent string

const (
	PaymentConfirm PaymentEvent = "confirm"
	PaymentFail    PaymentEvent = "fail"
)

var paymentTransitions = map[models.PaymentStatus]map[PaymentEvent]models.PaymentStatus{
	models.PaymentPending: {
		PaymentConfirm: models.PaymentPaid,
		PaymentFail:    models.PaymentFailed,
	},
}

func NextPayment(from models.PaymentStatus, event PaymentEvent) (models.PaymentStatus, error) {
	if to, ok := paymentTransitions[from][event]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: cannot %s a payment that is %s", ErrInvalidState, event, from)
}
