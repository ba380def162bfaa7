package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/access"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"go.uber.org/zap"
)

// DefaultTokenTTL is the server-enforced lifetime of issued access tokens.
// The browser cookie is session-scoped; this bound wins.
const DefaultTokenTTL = 24 * time.Hour

// RequestMeta carries the request attributes recorded with clicks and tokens.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LinkInvalidator drops a cached link record after a mutation.
type LinkInvalidator interface {
	Invalidate(ctx context.Context, shortID string)
}

// ShortIDTester is a membership pre-filter over known short ids. A negative
// answer is definitive and skips the store read.
type ShortIDTester interface {
	MightContain(shortID string) bool
}

// AccessService drives one resolution attempt: load and evaluate the link,
// and record granted accesses. It is the only caller of the ClickMutator.
type AccessService struct {
	logger    *zap.Logger
	links     repository.LinkRepository
	mutator   repository.ClickMutator
	cache     LinkInvalidator
	filter    ShortIDTester
	publisher *ClickPublisher
	tokenTTL  time.Duration
	now       func() time.Time
}

// AccessServiceDeps bundles the collaborators of an AccessService. Cache,
// filter and publisher are optional.
type AccessServiceDeps struct {
	Logger    *zap.Logger
	Links     repository.LinkRepository
	Mutator   repository.ClickMutator
	Cache     LinkInvalidator
	Filter    ShortIDTester
	Publisher *ClickPublisher
	TokenTTL  time.Duration
}

// NewAccessService builds an AccessService from its dependencies.
func NewAccessService(deps AccessServiceDeps) *AccessService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AccessService{
		logger:    logger,
		links:     deps.Links,
		mutator:   deps.Mutator,
		cache:     deps.Cache,
		filter:    deps.Filter,
		publisher: deps.Publisher,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// Resolve loads the link for a short id and computes its current status.
// It never mutates anything.
func (s *AccessService) Resolve(ctx context.Context, shortID string) (*model.Link, access.Status, error) {
	if s.filter != nil && !s.filter.MightContain(shortID) {
		return nil, "", repository.ErrLinkNotFound
	}

	link, err := s.links.GetByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("load link: %w", err)
	}

	return link, access.Evaluate(link, s.now()), nil
}

// RecordAccess counts one granted access. The terminal-status check is
// re-run inside the store's guarded update, so a link that expired or hit its
// cap since evaluation comes back as ErrAccessClosed. Any other store
// failure is logged and swallowed: the redirect proceeds and the count is
// best effort.
func (s *AccessService) RecordAccess(ctx context.Context, link *model.Link, meta RequestMeta) error {
	err := s.mutator.RecordAccess(ctx, link.ID)
	if errors.Is(err, repository.ErrAccessClosed) {
		return err
	}
	if err != nil {
		s.logger.Error("failed to record access, proceeding with redirect",
			zap.Error(err), zap.String("short_id", link.ShortID))
	}

	s.afterMutation(ctx, link, meta)
	return nil
}

// IssueAccessToken mints an opaque token after a successful password check
// and persists it together with the click increment in one transaction.
// Password-gated links count their click here, at verification time, not at
// the final redirect. A store failure past the closed check is logged and
// swallowed; the caller still receives the token.
func (s *AccessService) IssueAccessToken(ctx context.Context, link *model.Link, meta RequestMeta) (string, error) {
	value, err := newOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	now := s.now()
	token := &model.AccessToken{
		Token:     value,
		LinkID:    link.ID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}

	err = s.mutator.IssueAccessToken(ctx, token)
	if errors.Is(err, repository.ErrAccessClosed) {
		return "", err
	}
	if err != nil {
		s.logger.Error("failed to persist access token, returning it anyway",
			zap.Error(err), zap.String("short_id", link.ShortID))
	}

	s.afterMutation(ctx, link, meta)
	return value, nil
}

func (s *AccessService) afterMutation(ctx context.Context, link *model.Link, meta RequestMeta) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, link.ShortID)
	}
	if s.publisher != nil {
		go func() {
			if err := s.publisher.Publish(link.ShortID, meta.IP, meta.UserAgent); err != nil {
				s.logger.Error("failed to publish click event",
					zap.Error(err), zap.String("short_id", link.ShortID))
			}
		}()
	}
}

// newOpaqueToken returns 32 bytes of randomness, URL-safe base64 encoded.
func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
