package workflows

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/temporal"
	"go.temporal.io/sdk/client"
)

// WorkflowStarter is the part of client.Client the dispatcher needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Dispatcher hands join-request notices to Temporal. Delivery and retries happen on the worker.
type Dispatcher struct {
	client    WorkflowStarter
	taskQueue string
	logger    zerolog.Logger
}

func NewDispatcher(c WorkflowStarter, taskQueue string, logger zerolog.Logger) *Dispatcher {
	if taskQueue == "" {
		taskQueue = temporal.TaskQueueName
	}
	return &Dispatcher{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger.With().Str("component", "temporal_dispatcher").Logger(),
	}
}

func (d *Dispatcher) NotifyJoinRequest(ctx context.Context, notice models.JoinRequestNotice) error {
	params := temporal.JoinRequestParams{Notice: notice}
	options := client.StartWorkflowOptions{
		ID:        params.WorkflowID(),
		TaskQueue: d.taskQueue,
	}

	run, err := d.client.ExecuteWorkflow(ctx, options, JoinRequestNotificationWorkflow, params)
	if err != nil {
		return errors.Wrapf(err, "failed to start notification workflow for occupancy %s", notice.OccupancyID)
	}

	d.logger.Debug().
		Str("workflow_id", run.GetID()).
		Str("run_id", run.GetRunID()).
		Str("occupancy_id", notice.OccupancyID).
		Msg("join request notification workflow started")
	return nil
}
