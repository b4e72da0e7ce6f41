package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/config"
	"github.com/stanstork/nestpay-api/internal/models"
)

const defaultSenderName = "Nest Pay"

// Directory looks up where a user can be reached.
type Directory interface {
	GetProfile(ctx context.Context, id string) (models.UserProfile, error)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails a notification to the recipient's profile address.
type EmailNotifier struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	directory Directory
	send      sendFunc
	logger    zerolog.Logger
}

func NewEmailNotifier(cfg config.EmailConfig, directory Directory, logger zerolog.Logger) (*EmailNotifier, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email notifier")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email notifier")
	}
	if directory == nil {
		return nil, fmt.Errorf("a recipient directory is required for email notifier")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailNotifier{
		host:      host,
		port:      port,
		username:  strings.TrimSpace(cfg.Username),
		password:  cfg.Password,
		from:      from,
		directory: directory,
		send:      smtp.SendMail,
		logger:    logger.With().Str("notifier", "email").Logger(),
	}, nil
}

func (n *EmailNotifier) Notify(ctx context.Context, notif models.Notification) error {
	profile, err := n.directory.GetProfile(ctx, notif.UserID)
	if err != nil {
		return fmt.Errorf("look up recipient %s: %w", notif.UserID, err)
	}
	if profile.Email == nil || strings.TrimSpace(*profile.Email) == "" {
		n.logger.Debug().Str("user_id", notif.UserID).Msg("recipient has no email address, skipping")
		return nil
	}
	recipient := strings.TrimSpace(*profile.Email)

	subject := strings.TrimSpace(notif.Title)
	if subject == "" {
		subject = "Notification"
	}

	body := strings.Builder{}
	body.WriteString(fmt.Sprintf("Hello %s,\n\n", profile.DisplayName()))
	body.WriteString(strings.TrimSpace(notif.Message))
	body.WriteString("\n\n")
	if notif.Type == models.NotificationJoinRequest {
		body.WriteString("Log in to Nest Pay to approve or reject this request.\n\n")
	}
	body.WriteString("Thanks,\nThe Nest Pay Team\n")

	headers := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		defaultSenderName, n.from, recipient, subject)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := n.send(addr, auth, n.from, []string{recipient}, []byte(headers+body.String())); err != nil {
		return err
	}

	n.logger.Info().
		Str("notification_id", notif.ID).
		Str("type", string(notif.Type)).
		Str("recipient", recipient).
		Msg("email notification sent")
	return nil
}

func (n *EmailNotifier) String() string {
	return "EmailNotifier"
}
