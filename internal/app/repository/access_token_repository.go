package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"gorm.io/gorm"
)

// ErrTokenNotFound signals that no access token matches the supplied value.
var ErrTokenNotFound = errors.New("access token not found")

// AccessTokenRepository defines the data access contract for issued access
// tokens.
type AccessTokenRepository interface {
	Get(ctx context.Context, linkID, token string) (*model.AccessToken, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type accessTokenRepository struct {
	db *gorm.DB
}

// NewAccessTokenRepository returns a GORM-backed AccessTokenRepository.
func NewAccessTokenRepository(db *gorm.DB) AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

func (r *accessTokenRepository) Get(ctx context.Context, linkID, token string) (*model.AccessToken, error) {
	var row model.AccessToken
	if err := r.db.WithContext(ctx).
		Where("link_id = ? AND token = ?", linkID, token).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *accessTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&model.AccessToken{})
	return result.RowsAffected, result.Error
}
