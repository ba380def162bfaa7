package identity

import (
	"errors"
	"testing"
)

func TestHeaderProvider(t *testing.T) {
	p := NewHeaderProvider()

	user, err := p.CurrentUser(map[string]string{
		HeaderUserID:    "u1",
		HeaderUserEmail: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "u1" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestHeaderProvider_Anonymous(t *testing.T) {
	p := NewHeaderProvider()

	if _, err := p.CurrentUser(nil); !errors.Is(err, ErrAnonymous) {
		t.Fatalf("expected ErrAnonymous, got %v", err)
	}

	// An email without a user id is not an identity.
	_, err := p.CurrentUser(map[string]string{HeaderUserEmail: "alice@example.com"})
	if !errors.Is(err, ErrAnonymous) {
		t.Fatalf("expected ErrAnonymous, got %v", err)
	}
}
