package access

import (
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/model"
)

// Status classifies a link for one resolution attempt. The first four values
// are terminal: no gate can recover access from them.
type Status string

const (
	StatusDeleted           Status = "deleted"
	StatusDisabled          Status = "disabled"
	StatusExpired           Status = "expired"
	StatusMaxClicksReached  Status = "max_clicks_reached"
	StatusInviteOnly        Status = "invite_only"
	StatusPasswordProtected Status = "password_protected"
	StatusRestricted        Status = "restricted"
	StatusOpen              Status = "open"
)

// Terminal reports whether the status permanently or currently closes the
// access path. Terminal statuses stop the flow before any gate runs and
// before any mutation.
func (s Status) Terminal() bool {
	switch s {
	case StatusDeleted, StatusDisabled, StatusExpired, StatusMaxClicksReached:
		return true
	}
	return false
}

// Reason returns the visitor-facing explanation for a closed link.
func (s Status) Reason() string {
	switch s {
	case StatusDeleted:
		return "This link has been deleted"
	case StatusDisabled:
		return "This link has been disabled"
	case StatusExpired:
		return "This link has expired"
	case StatusMaxClicksReached:
		return "This link has reached its maximum click limit"
	}
	return ""
}

// Evaluate computes the status of a link at the given instant. It is pure:
// the same link state and clock always yield the same status, and nothing is
// mutated. Both the gate-page renderer and the server-side redirect path call
// it, so the ordering below decides which page a visitor sees and must not be
// rearranged:
//
//  1. deleted
//  2. disabled
//  3. expired (inclusive: expiresAt <= now)
//  4. max clicks reached (clickCount >= maxClicks)
//  5. invite-only
//  6. password, alone or combined with expiry/max-clicks
//  7. expiry/max-clicks with no password (informational)
//  8. open
func Evaluate(link *model.Link, now time.Time) Status {
	if link.IsDeleted {
		return StatusDeleted
	}
	if link.IsDisabled {
		return StatusDisabled
	}
	if link.ExpiresAt != nil && !link.ExpiresAt.After(now) {
		return StatusExpired
	}
	if link.MaxClicks != nil && link.ClickCount >= *link.MaxClicks {
		return StatusMaxClicksReached
	}
	if link.IsInviteOnly {
		return StatusInviteOnly
	}
	if link.HasPassword {
		if link.ExpiresAt != nil || link.MaxClicks != nil {
			return StatusRestricted
		}
		return StatusPasswordProtected
	}
	if link.ExpiresAt != nil || link.MaxClicks != nil {
		return StatusRestricted
	}
	return StatusOpen
}
