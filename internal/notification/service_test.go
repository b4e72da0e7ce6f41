package notification

import (
	"context"
	"database/sql"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/config"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *mockRepo) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockRepo) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	args := m.Called(ctx, userID, notificationID)
	return args.Get(0).(models.Notification), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, notif models.Notification) error {
	return m.Called(ctx, notif).Error(0)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	args := m.Called(ctx, evt)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *mockService) NotifyJoinRequest(ctx context.Context, notice models.JoinRequestNotice) error {
	return m.Called(ctx, notice).Error(0)
}

func (m *mockService) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockService) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	args := m.Called(ctx, userID, notificationID)
	return args.Get(0).(models.Notification), args.Error(1)
}

type staticDirectory map[string]models.UserProfile

func (d staticDirectory) GetProfile(_ context.Context, id string) (models.UserProfile, error) {
	p, ok := d[id]
	if !ok {
		return models.UserProfile{}, sql.ErrNoRows
	}
	return p, nil
}

func TestPublish_PersistsAndFansOut(t *testing.T) {
	repo := new(mockRepo)
	failing := new(mockNotifier)
	working := new(mockNotifier)
	stored := models.Notification{ID: "n-1", UserID: "landlord-1", Type: models.NotificationJoinRequest, Title: "Hi"}

	repo.On("Create", mock.Anything, repository.CreateNotificationParams{
		UserID:  "landlord-1",
		Type:    models.NotificationJoinRequest,
		Title:   "Hi",
		Message: "body",
	}).Return(stored, nil)
	failing.On("Notify", mock.Anything, stored).Return(errors.New("smtp down"))
	working.On("Notify", mock.Anything, stored).Return(nil)

	svc := NewService(repo, zerolog.Nop(), failing, nil, working)
	notif, err := svc.Publish(context.Background(), Event{
		UserID:  "landlord-1",
		Type:    models.NotificationJoinRequest,
		Title:   " Hi ",
		Message: " body ",
	})
	require.NoError(t, err)
	assert.Equal(t, stored, notif)

	repo.AssertExpectations(t)
	failing.AssertExpectations(t)
	working.AssertExpectations(t)
}

func TestPublish_RequiresRecipientAndType(t *testing.T) {
	svc := NewService(new(mockRepo), zerolog.Nop())

	_, err := svc.Publish(context.Background(), Event{Type: models.NotificationJoinRequest})
	assert.Error(t, err)
	_, err = svc.Publish(context.Background(), Event{UserID: "u-1"})
	assert.Error(t, err)
}

func TestNotifyJoinRequest_BuildsLandlordNotification(t *testing.T) {
	repo := new(mockRepo)
	msg := "I work nearby"
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p repository.CreateNotificationParams) bool {
		return p.UserID == "landlord-1" &&
			p.Type == models.NotificationJoinRequest &&
			p.Title == "New Join Request for Kololo Apartments" &&
			strings.HasPrefix(p.Message, "Jane Tenant has requested to join Kololo Apartments.") &&
			strings.Contains(p.Message, msg) &&
			p.Data["occupancy_id"] == "occ-1"
	})).Return(models.Notification{ID: "n-1"}, nil)

	svc := NewService(repo, zerolog.Nop())
	err := svc.NotifyJoinRequest(context.Background(), models.JoinRequestNotice{
		OccupancyID:   "occ-1",
		LandlordID:    "landlord-1",
		TenantName:    "Jane Tenant",
		PropertyTitle: "Kololo Apartments",
		Message:       &msg,
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestNotifyJoinRequest_Fallbacks(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p repository.CreateNotificationParams) bool {
		return p.Title == "New Join Request for Your Property" &&
			p.Message == "Unknown has requested to join Your Property."
	})).Return(models.Notification{ID: "n-1"}, nil)

	svc := NewService(repo, zerolog.Nop())
	require.NoError(t, svc.NotifyJoinRequest(context.Background(), models.JoinRequestNotice{LandlordID: "landlord-1"}))
	repo.AssertExpectations(t)
}

func TestEmailNotifier(t *testing.T) {
	email := "owner@example.com"
	name := "Olivia Owner"
	dir := staticDirectory{
		"landlord-1": {ID: "landlord-1", FullName: &name, Email: &email},
		"landlord-2": {ID: "landlord-2"},
	}
	notifier, err := NewEmailNotifier(config.EmailConfig{From: "noreply@nestpay.app", SMTPHost: "smtp.example.com"}, dir, zerolog.Nop())
	require.NoError(t, err)

	var (
		sentTo   []string
		sentAddr string
		sentBody string
	)
	notifier.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		sentAddr, sentTo, sentBody = addr, to, string(msg)
		return nil
	}

	err = notifier.Notify(context.Background(), models.Notification{
		ID:        "n-1",
		UserID:    "landlord-1",
		Type:      models.NotificationJoinRequest,
		Title:     "New Join Request for Kololo Apartments",
		Message:   "Jane Tenant has requested to join Kololo Apartments.",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", sentAddr)
	assert.Equal(t, []string{email}, sentTo)
	assert.Contains(t, sentBody, "Subject: New Join Request for Kololo Apartments")
	assert.Contains(t, sentBody, "From: Nest Pay <noreply@nestpay.app>")
	assert.Contains(t, sentBody, "Hello Olivia Owner,")

	sentTo = nil
	require.NoError(t, notifier.Notify(context.Background(), models.Notification{UserID: "landlord-2", Type: models.NotificationJoinRequest}))
	assert.Nil(t, sentTo, "recipients without an email are skipped")

	assert.Error(t, notifier.Notify(context.Background(), models.Notification{UserID: "missing"}))
}

func TestNewEmailNotifier_RequiresHostAndFrom(t *testing.T) {
	_, err := NewEmailNotifier(config.EmailConfig{From: "a@b.c"}, staticDirectory{}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewEmailNotifier(config.EmailConfig{SMTPHost: "smtp"}, staticDirectory{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestAsyncDispatcher_DeliversInBackground(t *testing.T) {
	svc := new(mockService)
	notice := models.JoinRequestNotice{OccupancyID: "occ-1", LandlordID: "landlord-1"}
	svc.On("NotifyJoinRequest", mock.Anything, notice).Return(errors.New("temporary failure")).Once()

	d := NewAsyncDispatcher(svc, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.NotifyJoinRequest(ctx, notice))
	cancel()
	d.Wait()

	svc.AssertExpectations(t)
}
