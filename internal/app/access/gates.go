package access

import (
	"errors"
	"time"
)

var (
	// ErrGateConflict signals an attempt to combine invite-only access with
	// any of the password/expiry/max-clicks gates.
	ErrGateConflict = errors.New("invite-only access cannot be combined with other gates")

	// ErrEmptyAllowList signals an invite-only gate with no invited emails.
	ErrEmptyAllowList = errors.New("invite-only access requires at least one allowed email")

	// ErrBadMaxClicks signals a non-positive click limit.
	ErrBadMaxClicks = errors.New("max clicks must be a positive number")
)

// GateConfig is the tagged description of a link's gates. A link is either
// invite-only or carries some subset of {password, expiration, max-clicks};
// the constructors below make the conflicting combination unrepresentable.
type GateConfig struct {
	inviteEmails []string

	passwordHash string
	expiresAt    *time.Time
	maxClicks    *int
}

// NoGates describes an open link.
func NoGates() GateConfig {
	return GateConfig{}
}

// InviteOnly builds the allow-list variant. The list must be non-empty.
func InviteOnly(emails []string) (GateConfig, error) {
	if len(emails) == 0 {
		return GateConfig{}, ErrEmptyAllowList
	}
	cp := make([]string, len(emails))
	copy(cp, emails)
	return GateConfig{inviteEmails: cp}, nil
}

// Restrictions builds the password/expiry/max-clicks variant. Any of the
// three may be zero; all three absent is equivalent to NoGates.
func Restrictions(passwordHash string, expiresAt *time.Time, maxClicks *int) (GateConfig, error) {
	if maxClicks != nil && *maxClicks <= 0 {
		return GateConfig{}, ErrBadMaxClicks
	}
	return GateConfig{
		passwordHash: passwordHash,
		expiresAt:    expiresAt,
		maxClicks:    maxClicks,
	}, nil
}

// IsInviteOnly reports whether the config is the allow-list variant.
func (g GateConfig) IsInviteOnly() bool { return len(g.inviteEmails) > 0 }

// AllowedEmails returns the allow-list, nil for non-invite configs.
func (g GateConfig) AllowedEmails() []string { return g.inviteEmails }

// PasswordHash returns the bcrypt digest, empty when no password gate is set.
func (g GateConfig) PasswordHash() string { return g.passwordHash }

// ExpiresAt returns the expiry instant, nil when no expiration gate is set.
func (g GateConfig) ExpiresAt() *time.Time { return g.expiresAt }

// MaxClicks returns the click cap, nil when no count gate is set.
func (g GateConfig) MaxClicks() *int { return g.maxClicks }
