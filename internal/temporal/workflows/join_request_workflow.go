package workflows

import (
	"time"

	"github.com/stanstork/nestpay-api/internal/temporal"
	"github.com/stanstork/nestpay-api/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// JoinRequestNotificationWorkflow delivers one join-request notice to the landlord,
// retrying with backoff until the attempt budget runs out.
func JoinRequestNotificationWorkflow(ctx workflow.Context, params temporal.JoinRequestParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    temporal.DefaultMaximumAttempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting join request notification workflow", "OccupancyID", params.Notice.OccupancyID)

	var a *activities.Activities

	if err := workflow.ExecuteActivity(ctx, a.NotifyJoinRequestActivity, params.Notice).Get(ctx, nil); err != nil {
		logger.Error("Join request notification failed.", "OccupancyID", params.Notice.OccupancyID, "error", err)
		return err
	}

	logger.Info("Join request notification delivered.", "OccupancyID", params.Notice.OccupancyID)
	return nil
}
