package model

import "time"

// ClickEvent represents one granted access to a short link.
type ClickEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ShortID   string    `json:"short_id" gorm:"index;size:16"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

// InviteNotification is published when an owner adds an email to a link's
// allow-list. An external mailer consumes the subject; delivery is
// fire-and-forget.
type InviteNotification struct {
	ShortID   string    `json:"short_id"`
	Title     string    `json:"title"`
	Email     string    `json:"email"`
	InvitedBy string    `json:"invited_by"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-logger"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB

	InviteSubject = "invites.notify"
)
