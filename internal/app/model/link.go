package model

import "time"

// Link is the central entity: a public short identifier mapping to an original
// URL, optionally guarded by one or more access gates.
type Link struct {
	ID          string `db:"id" gorm:"primaryKey;size:36"`
	ShortID     string `db:"short_id" gorm:"uniqueIndex;size:16;not null"`
	UserID      string `db:"user_id" gorm:"index;size:36;not null"`
	OriginalURL string `db:"original_url" gorm:"type:text;not null"`
	Title       string `db:"title" gorm:"type:text"`

	// Lifecycle flags, owner-controlled and independent of the time/count gates.
	IsDeleted  bool `db:"is_deleted" gorm:"not null;default:false"`
	IsDisabled bool `db:"is_disabled" gorm:"not null;default:false"`

	ExpiresAt  *time.Time `db:"expires_at" gorm:"index"`
	MaxClicks  *int       `db:"max_clicks"`
	ClickCount int        `db:"click_count" gorm:"not null;default:0"`

	// PasswordHash holds a bcrypt digest, never the plaintext.
	HasPassword  bool   `db:"has_password" gorm:"not null;default:false"`
	PasswordHash string `db:"password_hash" gorm:"size:72"`

	// Invite-only is mutually exclusive with the password/expiry/max-clicks gates.
	IsInviteOnly  bool     `db:"is_invite_only" gorm:"not null;default:false"`
	AllowedEmails []string `db:"allowed_emails" gorm:"serializer:json;type:jsonb"`

	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}

// AllowsEmail reports membership in the invite allow-list.
func (l *Link) AllowsEmail(email string) bool {
	for _, e := range l.AllowedEmails {
		if e == email {
			return true
		}
	}
	return false
}
