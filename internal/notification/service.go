package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/repository"
)

type Event struct {
	UserID  string
	Type    models.NotificationType
	Title   string
	Message string
	Data    map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyJoinRequest(ctx context.Context, notice models.JoinRequestNotice) error
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

// Publish stores an in-app notification, then fans it out. Channel failures are logged only.
func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if strings.TrimSpace(evt.UserID) == "" {
		return models.Notification{}, fmt.Errorf("recipient user id is required")
	}
	if evt.Type == "" {
		return models.Notification{}, fmt.Errorf("notification type is required")
	}
	title := strings.TrimSpace(evt.Title)
	if title == "" {
		title = string(evt.Type)
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		UserID:  evt.UserID,
		Type:    evt.Type,
		Title:   title,
		Message: strings.TrimSpace(evt.Message),
		Data:    evt.Data,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(evt.Type)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyJoinRequest(ctx context.Context, notice models.JoinRequestNotice) error {
	tenant := fallbackName(notice.TenantName, "Unknown")
	property := fallbackName(notice.PropertyTitle, "Your Property")

	message := fmt.Sprintf("%s has requested to join %s.", tenant, property)
	if notice.Message != nil && strings.TrimSpace(*notice.Message) != "" {
		message += fmt.Sprintf("\n\nMessage from tenant: %s", strings.TrimSpace(*notice.Message))
	}
	data := map[string]interface{}{
		"occupancy_id":   notice.OccupancyID,
		"tenant_name":    tenant,
		"property_title": property,
	}
	if notice.Message != nil {
		data["message"] = *notice.Message
	}

	_, err := s.Publish(ctx, Event{
		UserID:  notice.LandlordID,
		Type:    models.NotificationJoinRequest,
		Title:   fmt.Sprintf("New Join Request for %s", property),
		Message: message,
		Data:    data,
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, userID, limit)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func fallbackName(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
