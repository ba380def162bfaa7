package access

import (
	"reflect"
	"testing"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/model"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func intPtr(n int) *int              { return &n }
func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluate_DeletedWinsOverEverything(t *testing.T) {
	link := &model.Link{
		IsDeleted:    true,
		IsDisabled:   true,
		ExpiresAt:    timePtr(now.Add(-time.Hour)),
		MaxClicks:    intPtr(1),
		ClickCount:   5,
		HasPassword:  true,
		IsInviteOnly: true,
	}

	if got := Evaluate(link, now); got != StatusDeleted {
		t.Fatalf("expected %s, got %s", StatusDeleted, got)
	}
}

func TestEvaluate_DisabledBeforeGates(t *testing.T) {
	link := &model.Link{
		IsDisabled:  true,
		HasPassword: true,
	}

	if got := Evaluate(link, now); got != StatusDisabled {
		t.Fatalf("expected %s, got %s", StatusDisabled, got)
	}
}

func TestEvaluate_ExpiryBoundaryIsInclusive(t *testing.T) {
	link := &model.Link{ExpiresAt: timePtr(now)}
	if got := Evaluate(link, now); got != StatusExpired {
		t.Fatalf("expiresAt == now: expected %s, got %s", StatusExpired, got)
	}

	link.ExpiresAt = timePtr(now.Add(time.Second))
	if got := Evaluate(link, now); got == StatusExpired {
		t.Fatal("link expiring in the future must not be expired")
	}
}

func TestEvaluate_MaxClicksBoundary(t *testing.T) {
	link := &model.Link{MaxClicks: intPtr(5), ClickCount: 4}
	if got := Evaluate(link, now); got == StatusMaxClicksReached {
		t.Fatal("clickCount below maxClicks must not be capped")
	}

	link.ClickCount = 5
	if got := Evaluate(link, now); got != StatusMaxClicksReached {
		t.Fatalf("clickCount == maxClicks: expected %s, got %s", StatusMaxClicksReached, got)
	}
}

func TestEvaluate_InviteOnlyIgnoresOtherGates(t *testing.T) {
	// A record carrying both invite-only and a password must never surface
	// as password protected.
	link := &model.Link{
		IsInviteOnly: true,
		HasPassword:  true,
		ExpiresAt:    timePtr(now.Add(time.Hour)),
		MaxClicks:    intPtr(10),
	}

	if got := Evaluate(link, now); got != StatusInviteOnly {
		t.Fatalf("expected %s, got %s", StatusInviteOnly, got)
	}
}

func TestEvaluate_PasswordVariants(t *testing.T) {
	link := &model.Link{HasPassword: true}
	if got := Evaluate(link, now); got != StatusPasswordProtected {
		t.Fatalf("password only: expected %s, got %s", StatusPasswordProtected, got)
	}

	link.MaxClicks = intPtr(10)
	if got := Evaluate(link, now); got != StatusRestricted {
		t.Fatalf("password + max clicks: expected %s, got %s", StatusRestricted, got)
	}

	link.MaxClicks = nil
	link.ExpiresAt = timePtr(now.Add(time.Hour))
	if got := Evaluate(link, now); got != StatusRestricted {
		t.Fatalf("password + expiry: expected %s, got %s", StatusRestricted, got)
	}
}

func TestEvaluate_RestrictedWithoutPassword(t *testing.T) {
	link := &model.Link{MaxClicks: intPtr(3)}
	if got := Evaluate(link, now); got != StatusRestricted {
		t.Fatalf("expected %s, got %s", StatusRestricted, got)
	}
}

func TestEvaluate_Open(t *testing.T) {
	link := &model.Link{OriginalURL: "https://example.com"}
	if got := Evaluate(link, now); got != StatusOpen {
		t.Fatalf("expected %s, got %s", StatusOpen, got)
	}
}

func TestEvaluate_IsPure(t *testing.T) {
	link := &model.Link{HasPassword: true, ClickCount: 3}
	before := *link

	for i := 0; i < 10; i++ {
		Evaluate(link, now)
	}

	if !reflect.DeepEqual(*link, before) {
		t.Fatal("Evaluate mutated the link")
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusDeleted, StatusDisabled, StatusExpired, StatusMaxClicksReached}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		if s.Reason() == "" {
			t.Fatalf("%s should carry a reason", s)
		}
	}

	open := []Status{StatusInviteOnly, StatusPasswordProtected, StatusRestricted, StatusOpen}
	for _, s := range open {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
