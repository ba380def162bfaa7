package service

import (
	"context"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
)

type mockLinkRepo struct {
	createFn       func(ctx context.Context, link *model.Link) error
	getByShortIDFn func(ctx context.Context, shortID string) (*model.Link, error)
	listByUserFn   func(ctx context.Context, userID string, limit, offset int) ([]model.Link, error)
	listShortIDsFn func(ctx context.Context) ([]string, error)
	updateFn       func(ctx context.Context, link *model.Link) error
	softDeleteFn   func(ctx context.Context, id string) error
}

func (m *mockLinkRepo) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepo) GetByShortID(ctx context.Context, shortID string) (*model.Link, error) {
	if m.getByShortIDFn != nil {
		return m.getByShortIDFn(ctx, shortID)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Link, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepo) ListShortIDs(ctx context.Context) ([]string, error) {
	if m.listShortIDsFn != nil {
		return m.listShortIDsFn(ctx)
	}
	return nil, nil
}

func (m *mockLinkRepo) Update(ctx context.Context, link *model.Link) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepo) SoftDelete(ctx context.Context, id string) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

type mockClickMutator struct {
	recordAccessFn func(ctx context.Context, linkID string) error
	issueTokenFn   func(ctx context.Context, token *model.AccessToken) error
}

func (m *mockClickMutator) RecordAccess(ctx context.Context, linkID string) error {
	if m.recordAccessFn != nil {
		return m.recordAccessFn(ctx, linkID)
	}
	return nil
}

func (m *mockClickMutator) IssueAccessToken(ctx context.Context, token *model.AccessToken) error {
	if m.issueTokenFn != nil {
		return m.issueTokenFn(ctx, token)
	}
	return nil
}

type mockTokenRepo struct {
	getFn           func(ctx context.Context, linkID, token string) (*model.AccessToken, error)
	deleteExpiredFn func(ctx context.Context, before time.Time) (int64, error)
}

func (m *mockTokenRepo) Get(ctx context.Context, linkID, token string) (*model.AccessToken, error) {
	if m.getFn != nil {
		return m.getFn(ctx, linkID, token)
	}
	return nil, repository.ErrTokenNotFound
}

func (m *mockTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, before)
	}
	return 0, nil
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, shortID string) {
	m.invalidated = append(m.invalidated, shortID)
}

type mockRecorder struct {
	added []string
}

func (m *mockRecorder) Add(shortID string) {
	m.added = append(m.added, shortID)
}

type mockInviteSender struct {
	notified [][]string
}

func (m *mockInviteSender) NotifyInvited(link *model.Link, emails []string) {
	m.notified = append(m.notified, emails)
}

type mockFilter struct {
	mightContainFn func(shortID string) bool
}

func (m *mockFilter) MightContain(shortID string) bool {
	if m.mightContainFn != nil {
		return m.mightContainFn(shortID)
	}
	return true
}
