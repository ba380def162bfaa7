package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/access"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"golang.org/x/crypto/bcrypt"
)

func newTestLinkService(repo *mockLinkRepo) *LinkService {
	return NewLinkService(LinkServiceDeps{Repo: repo})
}

func TestCreateLink(t *testing.T) {
	var created *model.Link
	repo := &mockLinkRepo{
		createFn: func(ctx context.Context, link *model.Link) error {
			created = link
			return nil
		},
	}

	svc := newTestLinkService(repo)
	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:      "u1",
		OriginalURL: "https://example.com/docs",
		Title:       "Docs",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created == nil {
		t.Fatal("link never reached the repository")
	}
	if link.UserID != "u1" || link.Title != "Docs" {
		t.Fatalf("unexpected link: %+v", link)
	}
	if len(link.ShortID) != shortIDLength {
		t.Fatalf("short id %q has wrong length", link.ShortID)
	}
	if link.ID == "" {
		t.Fatal("expected a generated id")
	}
}

func TestCreateLink_TitleDefaultsToURL(t *testing.T) {
	svc := newTestLinkService(&mockLinkRepo{})

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:      "u1",
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if link.Title != "https://example.com" {
		t.Fatalf("expected title to default to the url, got %q", link.Title)
	}
}

func TestCreateLink_RejectsBadURL(t *testing.T) {
	svc := newTestLinkService(&mockLinkRepo{})

	for _, raw := range []string{"", "example.com", "ftp://example.com", "/relative/path"} {
		_, err := svc.CreateLink(context.Background(), CreateLinkInput{
			UserID:      "u1",
			OriginalURL: raw,
		})
		if !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("url %q: expected ErrInvalidURL, got %v", raw, err)
		}
	}
}

func TestCreateLink_HashesPassword(t *testing.T) {
	svc := newTestLinkService(&mockLinkRepo{})

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:      "u1",
		OriginalURL: "https://example.com",
		Password:    "hunter2",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !link.HasPassword {
		t.Fatal("expected password gate")
	}
	if link.PasswordHash == "hunter2" {
		t.Fatal("password stored in the clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte("hunter2")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestCreateLink_InviteOnlyExcludesOtherGates(t *testing.T) {
	svc := newTestLinkService(&mockLinkRepo{})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:        "u1",
		OriginalURL:   "https://example.com",
		InviteOnly:    true,
		AllowedEmails: []string{"alice@example.com"},
		Password:      "hunter2",
	})
	if !errors.Is(err, access.ErrGateConflict) {
		t.Fatalf("expected ErrGateConflict, got %v", err)
	}
}

func TestCreateLink_InviteOnlyNeedsEmails(t *testing.T) {
	svc := newTestLinkService(&mockLinkRepo{})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:      "u1",
		OriginalURL: "https://example.com",
		InviteOnly:  true,
	})
	if !errors.Is(err, access.ErrEmptyAllowList) {
		t.Fatalf("expected ErrEmptyAllowList, got %v", err)
	}
}

func TestCreateLink_RejectsNonPositiveMaxClicks(t *testing.T) {
	svc := newTestLinkService(&mockLinkRepo{})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:      "u1",
		OriginalURL: "https://example.com",
		MaxClicks:   intPtr(0),
	})
	if !errors.Is(err, access.ErrBadMaxClicks) {
		t.Fatalf("expected ErrBadMaxClicks, got %v", err)
	}
}

func TestCreateLink_NotifiesInvitedEmails(t *testing.T) {
	invites := &mockInviteSender{}
	svc := NewLinkService(LinkServiceDeps{
		Repo:    &mockLinkRepo{},
		Invites: invites,
	})

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:        "u1",
		OriginalURL:   "https://example.com",
		InviteOnly:    true,
		AllowedEmails: []string{"alice@example.com", "bob@example.com"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(invites.notified) != 1 || len(invites.notified[0]) != 2 {
		t.Fatalf("expected one notification batch of two emails, got %v", invites.notified)
	}
}

func TestCreateLink_FeedsShortIDRecorder(t *testing.T) {
	recorder := &mockRecorder{}
	svc := NewLinkService(LinkServiceDeps{
		Repo:     &mockLinkRepo{},
		Recorder: recorder,
	})

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		UserID:      "u1",
		OriginalURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(recorder.added) != 1 || recorder.added[0] != link.ShortID {
		t.Fatalf("expected recorder to receive %q, got %v", link.ShortID, recorder.added)
	}
}

func storedLink() *model.Link {
	return &model.Link{
		ID:          "l1",
		ShortID:     "abc12345",
		UserID:      "u1",
		OriginalURL: "https://example.com",
		Title:       "Docs",
	}
}

func repoWith(link *model.Link) *mockLinkRepo {
	return &mockLinkRepo{
		getByShortIDFn: func(ctx context.Context, shortID string) (*model.Link, error) {
			snapshot := *link
			return &snapshot, nil
		},
	}
}

func TestGetLink_EnforcesOwnership(t *testing.T) {
	svc := newTestLinkService(repoWith(storedLink()))

	if _, err := svc.GetLink(context.Background(), "u1", "abc12345"); err != nil {
		t.Fatalf("owner denied: %v", err)
	}

	if _, err := svc.GetLink(context.Background(), "u2", "abc12345"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestUpdateLink_EnablingInviteOnlyDropsOtherGates(t *testing.T) {
	link := storedLink()
	link.HasPassword = true
	link.PasswordHash = "$2a$04$stale"
	link.ExpiresAt = timePtr(time.Now().Add(time.Hour))
	link.MaxClicks = intPtr(10)

	repo := repoWith(link)
	svc := newTestLinkService(repo)

	inviteOnly := true
	updated, err := svc.UpdateLink(context.Background(), "u1", "abc12345", UpdateLinkInput{
		InviteOnly:    &inviteOnly,
		AllowedEmails: []string{"alice@example.com"},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.IsInviteOnly {
		t.Fatal("invite-only not enabled")
	}
	if updated.HasPassword || updated.PasswordHash != "" || updated.ExpiresAt != nil || updated.MaxClicks != nil {
		t.Fatalf("other gates survived the invite-only switch: %+v", updated)
	}
}

func TestUpdateLink_DisablingInviteOnlyClearsAllowList(t *testing.T) {
	link := storedLink()
	link.IsInviteOnly = true
	link.AllowedEmails = []string{"alice@example.com"}

	svc := newTestLinkService(repoWith(link))

	inviteOnly := false
	updated, err := svc.UpdateLink(context.Background(), "u1", "abc12345", UpdateLinkInput{
		InviteOnly: &inviteOnly,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.IsInviteOnly || updated.AllowedEmails != nil {
		t.Fatalf("allow-list survived: %+v", updated)
	}
}

func TestUpdateLink_ClearFlags(t *testing.T) {
	link := storedLink()
	link.HasPassword = true
	link.PasswordHash = "$2a$04$stale"
	link.ExpiresAt = timePtr(time.Now().Add(time.Hour))
	link.MaxClicks = intPtr(10)

	svc := newTestLinkService(repoWith(link))

	updated, err := svc.UpdateLink(context.Background(), "u1", "abc12345", UpdateLinkInput{
		ClearPassword:  true,
		ClearExpiry:    true,
		ClearMaxClicks: true,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.HasPassword || updated.PasswordHash != "" {
		t.Fatal("password gate survived ClearPassword")
	}
	if updated.ExpiresAt != nil || updated.MaxClicks != nil {
		t.Fatalf("expiry or cap survived: %+v", updated)
	}
}

func TestUpdateLink_KeepsHashWhenPasswordUntouched(t *testing.T) {
	link := storedLink()
	link.HasPassword = true
	link.PasswordHash = "$2a$04$keepme"

	svc := newTestLinkService(repoWith(link))

	title := "Renamed"
	updated, err := svc.UpdateLink(context.Background(), "u1", "abc12345", UpdateLinkInput{
		Title: &title,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.PasswordHash != "$2a$04$keepme" {
		t.Fatalf("hash changed without a new password: %q", updated.PasswordHash)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title not applied: %q", updated.Title)
	}
}

func TestUpdateLink_NotifiesOnlyNewlyInvited(t *testing.T) {
	link := storedLink()
	link.IsInviteOnly = true
	link.AllowedEmails = []string{"alice@example.com"}

	invites := &mockInviteSender{}
	svc := NewLinkService(LinkServiceDeps{
		Repo:    repoWith(link),
		Invites: invites,
	})

	_, err := svc.UpdateLink(context.Background(), "u1", "abc12345", UpdateLinkInput{
		AllowedEmails: []string{"alice@example.com", "bob@example.com"},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(invites.notified) != 1 {
		t.Fatalf("expected one notification batch, got %v", invites.notified)
	}
	batch := invites.notified[0]
	if len(batch) != 1 || batch[0] != "bob@example.com" {
		t.Fatalf("expected only the new email, got %v", batch)
	}
}

func TestUpdateLink_InvalidatesCache(t *testing.T) {
	cache := &mockInvalidator{}
	svc := NewLinkService(LinkServiceDeps{
		Repo:  repoWith(storedLink()),
		Cache: cache,
	})

	title := "Renamed"
	if _, err := svc.UpdateLink(context.Background(), "u1", "abc12345", UpdateLinkInput{Title: &title}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "abc12345" {
		t.Fatalf("expected cache invalidation, got %v", cache.invalidated)
	}
}

func TestDeleteLink(t *testing.T) {
	link := storedLink()
	repo := repoWith(link)
	var deleted string
	repo.softDeleteFn = func(ctx context.Context, id string) error {
		deleted = id
		return nil
	}

	svc := newTestLinkService(repo)

	if err := svc.DeleteLink(context.Background(), "u2", "abc12345"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.DeleteLink(context.Background(), "u1", "abc12345"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != "l1" {
		t.Fatalf("expected soft delete of l1, got %q", deleted)
	}
}
