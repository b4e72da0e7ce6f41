package notification

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/models"
)

// Notifier delivers a persisted notification over an extra channel.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("notification_id", notif.ID).
		Str("user_id", notif.UserID).
		Str("type", string(notif.Type)).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
