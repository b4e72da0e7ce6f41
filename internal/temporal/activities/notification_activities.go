package activities

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/notification"
	"go.temporal.io/sdk/activity"
)

type Activities struct {
	Notifications notification.Service
}

// NotifyJoinRequestActivity stores the landlord's in-app notification and fans it out.
func (a *Activities) NotifyJoinRequestActivity(ctx context.Context, notice models.JoinRequestNotice) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Delivering join request notice", "occupancyID", notice.OccupancyID, "landlordID", notice.LandlordID,
		"attempt", activity.GetInfo(ctx).Attempt)

	if err := a.Notifications.NotifyJoinRequest(ctx, notice); err != nil {
		logger.Error("Failed to deliver join request notice", "occupancyID", notice.OccupancyID, "error", err)
		return errors.Wrap(err, "failed to deliver join request notice")
	}
	return nil
}
