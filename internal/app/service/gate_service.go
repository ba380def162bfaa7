package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/identity"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrIncorrectPassword is the denial for a failed password check. The
	// message is part of the external contract.
	ErrIncorrectPassword = errors.New("Incorrect password")

	// ErrNotPasswordProtected signals a password check against a link that
	// carries no password gate. The verifiers fail closed on misuse.
	ErrNotPasswordProtected = errors.New("This link is not password protected")

	// ErrNotAuthorized is the denial for an email outside the allow-list.
	ErrNotAuthorized = errors.New("Your email is not authorized to access this link")

	// ErrNotInviteOnly signals an invite check against a link without an
	// allow-list gate.
	ErrNotInviteOnly = errors.New("This link is not invite-only")

	// ErrAuthenticationRequired distinguishes "sign in first" from a denial.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrInvalidToken is the denial for an unknown access token.
	ErrInvalidToken = errors.New("Invalid access token")

	// ErrTokenExpired is the denial for a token past its server-side expiry.
	ErrTokenExpired = errors.New("Access token has expired")
)

// GateService runs the three gate checks. All three are idempotent and never
// mutate the link: re-running a check with the same inputs and unchanged link
// state yields the same outcome.
type GateService struct {
	tokens repository.AccessTokenRepository
	now    func() time.Time
}

// NewGateService returns a gate service reading issued tokens from the given
// repository.
func NewGateService(tokens repository.AccessTokenRepository) *GateService {
	return &GateService{
		tokens: tokens,
		now:    time.Now,
	}
}

// VerifyPassword compares the supplied password against the link's stored
// digest. No normalization is applied to the supplied value.
func (s *GateService) VerifyPassword(link *model.Link, supplied string) error {
	if !link.HasPassword || link.PasswordHash == "" {
		return ErrNotPasswordProtected
	}
	if err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(supplied)); err != nil {
		return ErrIncorrectPassword
	}
	return nil
}

// VerifyInvite checks the authenticated caller's email against the link's
// allow-list. An anonymous caller gets ErrAuthenticationRequired, which the
// HTTP layer turns into a sign-in redirect rather than a denial.
func (s *GateService) VerifyInvite(link *model.Link, user identity.User, authErr error) error {
	if !link.IsInviteOnly {
		return ErrNotInviteOnly
	}
	if authErr != nil || user.Email == "" {
		return ErrAuthenticationRequired
	}
	if !link.AllowsEmail(user.Email) {
		return ErrNotAuthorized
	}
	return nil
}

// VerifyToken checks a previously issued access token: it must exist for this
// link and its server-enforced expiry must not have passed.
func (s *GateService) VerifyToken(ctx context.Context, link *model.Link, token string) error {
	row, err := s.tokens.Get(ctx, link.ID, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("load access token: %w", err)
	}
	if row.Expired(s.now()) {
		return ErrTokenExpired
	}
	return nil
}
