package repository

import (
	"context"
	"errors"

	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that no link matches the requested identifier.
	ErrLinkNotFound = errors.New("link not found")
)

// LinkRepository defines the data access contract for links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByShortID(ctx context.Context, shortID string) (*model.Link, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Link, error)
	ListShortIDs(ctx context.Context) ([]string, error)
	Update(ctx context.Context, link *model.Link) error
	SoftDelete(ctx context.Context, id string) error
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *linkRepository) GetByShortID(ctx context.Context, shortID string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("short_id = ?", shortID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Link
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = false", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// ListShortIDs returns every short id, soft-deleted links included: their
// records still resolve to a terminal page, so they must stay visible to the
// membership pre-filter.
func (r *linkRepository) ListShortIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Pluck("short_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *linkRepository) Update(ctx context.Context, link *model.Link) error {
	result := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ? AND is_deleted = false", link.ID).
		Updates(map[string]interface{}{
			"original_url":   link.OriginalURL,
			"title":          link.Title,
			"is_disabled":    link.IsDisabled,
			"expires_at":     link.ExpiresAt,
			"max_clicks":     link.MaxClicks,
			"has_password":   link.HasPassword,
			"password_hash":  link.PasswordHash,
			"is_invite_only": link.IsInviteOnly,
			"allowed_emails": link.AllowedEmails,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}

	return r.db.WithContext(ctx).Where("id = ?", link.ID).First(link).Error
}

func (r *linkRepository) SoftDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ? AND is_deleted = false", id).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}
