package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/identity"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(digest)
}

func TestVerifyPassword(t *testing.T) {
	svc := NewGateService(&mockTokenRepo{})
	link := &model.Link{
		HasPassword:  true,
		PasswordHash: hashPassword(t, "hunter2"),
	}

	if err := svc.VerifyPassword(link, "hunter2"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}

	if err := svc.VerifyPassword(link, "wrong"); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
}

func TestVerifyPassword_Idempotent(t *testing.T) {
	svc := NewGateService(&mockTokenRepo{})
	link := &model.Link{
		HasPassword:  true,
		PasswordHash: hashPassword(t, "hunter2"),
	}

	// Repeating the same check with unchanged link state must repeat the
	// same outcome and leave the link untouched.
	before := link.PasswordHash
	for i := 0; i < 3; i++ {
		if err := svc.VerifyPassword(link, "hunter2"); err != nil {
			t.Fatalf("attempt %d rejected: %v", i, err)
		}
	}
	if link.PasswordHash != before {
		t.Fatal("VerifyPassword mutated the link")
	}
}

func TestVerifyPassword_NotProtected(t *testing.T) {
	svc := NewGateService(&mockTokenRepo{})
	link := &model.Link{}

	if err := svc.VerifyPassword(link, "anything"); !errors.Is(err, ErrNotPasswordProtected) {
		t.Fatalf("expected ErrNotPasswordProtected, got %v", err)
	}
}

func TestVerifyInvite(t *testing.T) {
	svc := NewGateService(&mockTokenRepo{})
	link := &model.Link{
		IsInviteOnly:  true,
		AllowedEmails: []string{"alice@example.com", "bob@example.com"},
	}

	err := svc.VerifyInvite(link, identity.User{ID: "u1", Email: "alice@example.com"}, nil)
	if err != nil {
		t.Fatalf("allow-listed email rejected: %v", err)
	}

	err = svc.VerifyInvite(link, identity.User{ID: "u2", Email: "mallory@example.com"}, nil)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestVerifyInvite_AnonymousNeedsAuthentication(t *testing.T) {
	svc := NewGateService(&mockTokenRepo{})
	link := &model.Link{
		IsInviteOnly:  true,
		AllowedEmails: []string{"alice@example.com"},
	}

	err := svc.VerifyInvite(link, identity.User{}, identity.ErrAnonymous)
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestVerifyInvite_NotInviteOnly(t *testing.T) {
	svc := NewGateService(&mockTokenRepo{})
	link := &model.Link{}

	err := svc.VerifyInvite(link, identity.User{ID: "u1", Email: "alice@example.com"}, nil)
	if !errors.Is(err, ErrNotInviteOnly) {
		t.Fatalf("expected ErrNotInviteOnly, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tokens := &mockTokenRepo{
		getFn: func(ctx context.Context, linkID, token string) (*model.AccessToken, error) {
			if linkID == "link-1" && token == "tok-valid" {
				return &model.AccessToken{
					Token:     token,
					LinkID:    linkID,
					CreatedAt: issued,
					ExpiresAt: issued.Add(24 * time.Hour),
				}, nil
			}
			return nil, repository.ErrTokenNotFound
		},
	}

	svc := NewGateService(tokens)
	svc.now = func() time.Time { return issued.Add(time.Hour) }
	link := &model.Link{ID: "link-1"}

	if err := svc.VerifyToken(context.Background(), link, "tok-valid"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}

	if err := svc.VerifyToken(context.Background(), link, "tok-unknown"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	svc.now = func() time.Time { return issued.Add(25 * time.Hour) }
	if err := svc.VerifyToken(context.Background(), link, "tok-valid"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyToken_ScopedToLink(t *testing.T) {
	tokens := &mockTokenRepo{
		getFn: func(ctx context.Context, linkID, token string) (*model.AccessToken, error) {
			if linkID == "link-1" {
				return &model.AccessToken{
					Token:     token,
					LinkID:    linkID,
					ExpiresAt: time.Now().Add(time.Hour),
				}, nil
			}
			return nil, repository.ErrTokenNotFound
		},
	}

	svc := NewGateService(tokens)
	other := &model.Link{ID: "link-2"}

	if err := svc.VerifyToken(context.Background(), other, "tok-valid"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token for another link must be invalid, got %v", err)
	}
}
