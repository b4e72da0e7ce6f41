package temporal

import (
	"time"

	"github.com/stanstork/nestpay-api/internal/models"
)

// TaskQueueName is the default task queue for Nest Pay notification workflows.
const TaskQueueName = "NESTPAY_NOTIFICATIONS"

// JoinRequestWorkflowIDPrefix prefixes join-request notification workflow IDs.
const JoinRequestWorkflowIDPrefix = "join-request-"

// DefaultActivityTimeout bounds a single delivery attempt.
const DefaultActivityTimeout = 30 * time.Second

// DefaultMaximumAttempts caps delivery retries for one notice.
const DefaultMaximumAttempts = 5

// JoinRequestParams is the workflow input for a join-request notice.
type JoinRequestParams struct {
	Notice models.JoinRequestNotice
}

// WorkflowID is stable per occupancy so duplicate starts collapse into one run.
func (p JoinRequestParams) WorkflowID() string {
	return JoinRequestWorkflowIDPrefix + p.Notice.OccupancyID
}
