package service

import (
	"context"
	"time"

	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"go.uber.org/zap"
)

// TokenSweeper periodically deletes access tokens past their expiry so the
// token table does not grow without bound.
type TokenSweeper struct {
	logger   *zap.Logger
	tokens   repository.AccessTokenRepository
	interval time.Duration
	stopChan chan struct{}
}

// NewTokenSweeper creates a sweeper over the access token repository.
func NewTokenSweeper(logger *zap.Logger, tokens repository.AccessTokenRepository) *TokenSweeper {
	return &TokenSweeper{
		logger:   logger,
		tokens:   tokens,
		interval: 10 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *TokenSweeper) Start() {
	go s.run()
}

// Stop stops the periodic sweep.
func (s *TokenSweeper) Stop() {
	close(s.stopChan)
}

func (s *TokenSweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.logger.Info("token sweeper stopped")
			return
		}
	}
}

func (s *TokenSweeper) sweep() {
	ctx := context.Background()

	deleted, err := s.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to delete expired access tokens", zap.Error(err))
		return
	}

	if deleted > 0 {
		s.logger.Info("deleted expired access tokens", zap.Int64("count", deleted))
	}
}
