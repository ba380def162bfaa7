package service

import (
	"encoding/json"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// InviteNotifier publishes an invite notification per newly allowed email.
// The external mailer subscribes to the subject; delivery failures never
// block the owner's edit.
type InviteNotifier struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewInviteNotifier creates a NATS-backed invite notifier.
func NewInviteNotifier(conn *nats.Conn, logger *zap.Logger) *InviteNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteNotifier{conn: conn, logger: logger}
}

// NotifyInvited publishes one event per email, fire and forget.
func (n *InviteNotifier) NotifyInvited(link *model.Link, emails []string) {
	for _, email := range emails {
		event := model.InviteNotification{
			ShortID:   link.ShortID,
			Title:     link.Title,
			Email:     email,
			InvitedBy: link.UserID,
			Timestamp: time.Now(),
		}

		data, err := json.Marshal(event)
		if err != nil {
			n.logger.Error("failed to marshal invite notification", zap.Error(err))
			continue
		}

		if err := n.conn.Publish(model.InviteSubject, data); err != nil {
			n.logger.Error("failed to publish invite notification",
				zap.Error(err),
				zap.String("short_id", link.ShortID),
				zap.String("email", email))
		}
	}
}
