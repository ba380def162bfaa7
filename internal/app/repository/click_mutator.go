package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
)

// ErrAccessClosed signals that the guarded increment matched no row: the link
// turned terminal (deleted, disabled, expired or capped) between the status
// check and the mutation.
var ErrAccessClosed = errors.New("link is no longer open for access")

// The status predicate is re-checked inside the UPDATE itself so the
// race between evaluation and increment is closed by the database, and
// click_count can never pass max_clicks through this path.
const incrementClickSQL = `
UPDATE links
SET click_count = click_count + 1, updated_at = now()
WHERE id = $1
  AND is_deleted = false
  AND is_disabled = false
  AND (expires_at IS NULL OR expires_at > now())
  AND (max_clicks IS NULL OR click_count < max_clicks)`

const insertTokenSQL = `
INSERT INTO access_tokens (token, link_id, ip, user_agent, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// ClickMutator is the only component that advances a link's click counter or
// inserts access tokens. Both operations run as guarded single statements on
// the pgx pool rather than through the ORM.
type ClickMutator interface {
	// RecordAccess increments the click count by exactly one, re-validating
	// the link's status inside the same statement. Returns ErrAccessClosed
	// when the link is no longer open.
	RecordAccess(ctx context.Context, linkID string) error

	// IssueAccessToken stores the token row and increments the click count in
	// one transaction. Password-gated links count their click at verification
	// time, not at redirect time.
	IssueAccessToken(ctx context.Context, token *model.AccessToken) error
}

type clickMutator struct {
	pool *pgxpool.Pool
}

// NewClickMutator returns a pgx-backed ClickMutator.
func NewClickMutator(pool *pgxpool.Pool) ClickMutator {
	return &clickMutator{pool: pool}
}

func (m *clickMutator) RecordAccess(ctx context.Context, linkID string) error {
	tag, err := m.pool.Exec(ctx, incrementClickSQL, linkID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccessClosed
	}
	return nil
}

func (m *clickMutator) IssueAccessToken(ctx context.Context, token *model.AccessToken) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, incrementClickSQL, token.LinkID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAccessClosed
		}

		_, err = tx.Exec(ctx, insertTokenSQL,
			token.Token, token.LinkID, token.IP, token.UserAgent,
			token.CreatedAt, token.ExpiresAt)
		return err
	})
}
