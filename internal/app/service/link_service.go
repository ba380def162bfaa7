package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/lockyolinks/lockyolinks/internal/app/access"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidURL signals a missing or non-absolute original URL.
	ErrInvalidURL = errors.New("original url must be an absolute http(s) url")

	// ErrNotOwner signals an operation on a link owned by another account.
	ErrNotOwner = errors.New("link belongs to another user")
)

const shortIDLength = 8

// ShortIDRecorder receives newly created short ids (feeds the bloom filter).
type ShortIDRecorder interface {
	Add(shortID string)
}

// InviteSender notifies newly invited emails about a link. Delivery is fire
// and forget.
type InviteSender interface {
	NotifyInvited(link *model.Link, emails []string)
}

// LinkService implements the owner-facing link lifecycle: create, list,
// edit gates, disable and soft delete. Gate edits go through the tagged
// GateConfig so invite-only can never coexist with the other gates.
type LinkService struct {
	logger   *zap.Logger
	repo     repository.LinkRepository
	cache    LinkInvalidator
	recorder ShortIDRecorder
	invites  InviteSender
}

// LinkServiceDeps bundles the collaborators of a LinkService. Cache, recorder
// and invites are optional.
type LinkServiceDeps struct {
	Logger   *zap.Logger
	Repo     repository.LinkRepository
	Cache    LinkInvalidator
	Recorder ShortIDRecorder
	Invites  InviteSender
}

// NewLinkService builds a LinkService from its dependencies.
func NewLinkService(deps LinkServiceDeps) *LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{
		logger:   logger,
		repo:     deps.Repo,
		cache:    deps.Cache,
		recorder: deps.Recorder,
		invites:  deps.Invites,
	}
}

// CreateLinkInput captures the data required to create a link. All gate
// flags are explicit.
type CreateLinkInput struct {
	UserID        string
	OriginalURL   string
	Title         string
	Disabled      bool
	Password      string
	ExpiresAt     *time.Time
	MaxClicks     *int
	InviteOnly    bool
	AllowedEmails []string
}

func (s *LinkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	if !validAbsoluteURL(input.OriginalURL) {
		return nil, ErrInvalidURL
	}
	if input.InviteOnly && (input.Password != "" || input.ExpiresAt != nil || input.MaxClicks != nil) {
		return nil, access.ErrGateConflict
	}

	title := input.Title
	if title == "" {
		title = input.OriginalURL
	}

	link := &model.Link{
		ID:          uuid.New().String(),
		ShortID:     newShortID(),
		UserID:      input.UserID,
		OriginalURL: input.OriginalURL,
		Title:       title,
		IsDisabled:  input.Disabled,
	}

	if err := applyGates(link, input.Password, false, input.ExpiresAt, input.MaxClicks, input.InviteOnly, input.AllowedEmails); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	if s.recorder != nil {
		s.recorder.Add(link.ShortID)
	}
	if s.invites != nil && link.IsInviteOnly {
		s.invites.NotifyInvited(link, link.AllowedEmails)
	}

	return link, nil
}

// GetLink loads a link and enforces ownership.
func (s *LinkService) GetLink(ctx context.Context, userID, shortID string) (*model.Link, error) {
	link, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link.UserID != userID {
		return nil, ErrNotOwner
	}
	return link, nil
}

// ListLinks returns the owner's links, newest first.
func (s *LinkService) ListLinks(ctx context.Context, userID string, limit, offset int) ([]model.Link, error) {
	links, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// UpdateLinkInput captures the fields an owner may change. Nil pointers
// leave a field untouched; the Clear flags drop an optional gate.
type UpdateLinkInput struct {
	OriginalURL    *string
	Title          *string
	Disabled       *bool
	Password       *string
	ClearPassword  bool
	ExpiresAt      *time.Time
	ClearExpiry    bool
	MaxClicks      *int
	ClearMaxClicks bool
	InviteOnly     *bool
	AllowedEmails  []string
}

func (s *LinkService) UpdateLink(ctx context.Context, userID, shortID string, input UpdateLinkInput) (*model.Link, error) {
	link, err := s.GetLink(ctx, userID, shortID)
	if err != nil {
		return nil, err
	}

	if input.OriginalURL != nil {
		if !validAbsoluteURL(*input.OriginalURL) {
			return nil, ErrInvalidURL
		}
		link.OriginalURL = *input.OriginalURL
	}
	if input.Title != nil {
		link.Title = *input.Title
	}
	if input.Disabled != nil {
		link.IsDisabled = *input.Disabled
	}

	expiresAt := link.ExpiresAt
	if input.ExpiresAt != nil {
		expiresAt = input.ExpiresAt
	}
	if input.ClearExpiry {
		expiresAt = nil
	}

	maxClicks := link.MaxClicks
	if input.MaxClicks != nil {
		maxClicks = input.MaxClicks
	}
	if input.ClearMaxClicks {
		maxClicks = nil
	}

	password := ""
	keepHash := link.HasPassword && !input.ClearPassword
	if input.Password != nil && *input.Password != "" {
		password = *input.Password
		keepHash = false
	}

	inviteOnly := link.IsInviteOnly
	if input.InviteOnly != nil {
		inviteOnly = *input.InviteOnly
	}
	emails := link.AllowedEmails
	if input.AllowedEmails != nil {
		emails = input.AllowedEmails
	}

	newlyInvited := addedEmails(link.AllowedEmails, emails)

	if err := applyGates(link, password, keepHash, expiresAt, maxClicks, inviteOnly, emails); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, link.ShortID)
	}
	if s.invites != nil && link.IsInviteOnly && len(newlyInvited) > 0 {
		s.invites.NotifyInvited(link, newlyInvited)
	}

	return link, nil
}

// DeleteLink soft-deletes a link. Deleted links are permanently terminal.
func (s *LinkService) DeleteLink(ctx context.Context, userID, shortID string) error {
	link, err := s.GetLink(ctx, userID, shortID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, link.ID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, link.ShortID)
	}
	return nil
}

// applyGates writes a validated gate configuration onto the link. Setting
// invite-only forces the password, expiration and max-clicks gates off.
func applyGates(link *model.Link, password string, keepHash bool, expiresAt *time.Time, maxClicks *int, inviteOnly bool, emails []string) error {
	if inviteOnly {
		cfg, err := access.InviteOnly(emails)
		if err != nil {
			return err
		}
		link.IsInviteOnly = true
		link.AllowedEmails = cfg.AllowedEmails()
		link.HasPassword = false
		link.PasswordHash = ""
		link.ExpiresAt = nil
		link.MaxClicks = nil
		return nil
	}

	hash := ""
	if keepHash {
		hash = link.PasswordHash
	} else if password != "" {
		digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = string(digest)
	}

	cfg, err := access.Restrictions(hash, expiresAt, maxClicks)
	if err != nil {
		return err
	}

	link.IsInviteOnly = false
	link.AllowedEmails = nil
	link.HasPassword = cfg.PasswordHash() != ""
	link.PasswordHash = cfg.PasswordHash()
	link.ExpiresAt = cfg.ExpiresAt()
	link.MaxClicks = cfg.MaxClicks()
	return nil
}

func addedEmails(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, e := range before {
		seen[e] = true
	}
	var added []string
	for _, e := range after {
		if !seen[e] {
			added = append(added, e)
		}
	}
	return added
}

func validAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

const shortIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newShortID returns a fixed-length random public identifier.
func newShortID() string {
	buf := make([]byte, shortIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = shortIDAlphabet[int(b)%len(shortIDAlphabet)]
	}
	return string(buf)
}
