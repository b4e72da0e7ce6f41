package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/models"
)

const defaultDispatchTimeout = 30 * time.Second

// AsyncDispatcher publishes join-request notices on a background goroutine so
// the caller never waits on delivery.
type AsyncDispatcher struct {
	service Service
	timeout time.Duration
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

func NewAsyncDispatcher(service Service, timeout time.Duration, logger zerolog.Logger) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &AsyncDispatcher{
		service: service,
		timeout: timeout,
		logger:  logger.With().Str("component", "notification_dispatcher").Logger(),
	}
}

func (d *AsyncDispatcher) NotifyJoinRequest(ctx context.Context, notice models.JoinRequestNotice) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.service.NotifyJoinRequest(ctx, notice); err != nil {
			d.logger.Warn().
				Err(err).
				Str("occupancy_id", notice.OccupancyID).
				Str("landlord_id", notice.LandlordID).
				Msg("join request notification failed")
		}
	}()
	return nil
}

// Wait blocks until in-flight notices are delivered or have failed.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}
