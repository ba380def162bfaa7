package model

import "time"

// AccessToken records one successful password verification. It lets the same
// browser session re-enter a password-gated link without re-prompting. Tokens
// carry a server-enforced absolute expiry; the session cookie merely carries
// the opaque value.
type AccessToken struct {
	Token     string    `db:"token" gorm:"primaryKey;size:64"`
	LinkID    string    `db:"link_id" gorm:"index;size:36;not null"`
	IP        string    `db:"ip" gorm:"size:64"`
	UserAgent string    `db:"user_agent" gorm:"type:text"`
	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
	ExpiresAt time.Time `db:"expires_at" gorm:"index;not null"`
}

// Expired reports whether the token's server-side lifetime has elapsed.
func (t *AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
