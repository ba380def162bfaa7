package access

import (
	"errors"
	"testing"
	"time"
)

func TestInviteOnly(t *testing.T) {
	cfg, err := InviteOnly([]string{"alice@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsInviteOnly() {
		t.Fatal("expected invite-only variant")
	}
	if cfg.PasswordHash() != "" || cfg.ExpiresAt() != nil || cfg.MaxClicks() != nil {
		t.Fatal("invite-only config must not carry restriction gates")
	}
}

func TestInviteOnly_RequiresEmails(t *testing.T) {
	if _, err := InviteOnly(nil); !errors.Is(err, ErrEmptyAllowList) {
		t.Fatalf("expected ErrEmptyAllowList, got %v", err)
	}
}

func TestInviteOnly_CopiesAllowList(t *testing.T) {
	emails := []string{"alice@example.com"}
	cfg, err := InviteOnly(emails)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emails[0] = "mallory@example.com"
	if cfg.AllowedEmails()[0] != "alice@example.com" {
		t.Fatal("config shares the caller's slice")
	}
}

func TestRestrictions(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limit := 5

	cfg, err := Restrictions("$2a$04$digest", &expiry, &limit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IsInviteOnly() {
		t.Fatal("restriction config must not be invite-only")
	}
	if cfg.PasswordHash() != "$2a$04$digest" {
		t.Fatalf("unexpected hash %q", cfg.PasswordHash())
	}
	if cfg.ExpiresAt() == nil || !cfg.ExpiresAt().Equal(expiry) {
		t.Fatalf("unexpected expiry %v", cfg.ExpiresAt())
	}
	if cfg.MaxClicks() == nil || *cfg.MaxClicks() != 5 {
		t.Fatalf("unexpected cap %v", cfg.MaxClicks())
	}
}

func TestRestrictions_RejectsNonPositiveCap(t *testing.T) {
	for _, limit := range []int{0, -1} {
		l := limit
		if _, err := Restrictions("", nil, &l); !errors.Is(err, ErrBadMaxClicks) {
			t.Fatalf("limit %d: expected ErrBadMaxClicks, got %v", limit, err)
		}
	}
}

func TestNoGates(t *testing.T) {
	cfg := NoGates()
	if cfg.IsInviteOnly() || cfg.PasswordHash() != "" || cfg.ExpiresAt() != nil || cfg.MaxClicks() != nil {
		t.Fatal("NoGates must describe a fully open link")
	}
}
