package auth_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"mecsa/internal/domain/auth"
	"mecsa/internal/infrastructure/storage/postgres"
)

var (
	_ auth.SessionRepository = (*SessionRepo)(nil)
	_ auth.TokenRepository   = (*TokenRepo)(nil)
)

type SessionRepo struct {
	txManager *postgres.TxManager
}

func NewSessionRepo(txManager *postgres.TxManager) *SessionRepo {
	return &SessionRepo{txManager: txManager}
}

func (r *SessionRepo) Create(ctx context.Context, s *auth.Session) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sessions (id, user_id, ip, not_before, not_after)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.IP, s.NotBefore, s.NotAfter)
	if err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (*auth.Session, error) {
	var s auth.Session
	err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, `
		SELECT id, user_id, ip, not_before, not_after
		FROM sessions WHERE id = $1
	`, id)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &s, nil
}

// Expire closes the refresh window by moving not_after to now.
func (r *SessionRepo) Expire(ctx context.Context, id uuid.UUID) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx,
		"UPDATE sessions SET not_after = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("expire session %s: %w", id, err)
	}
	return nil
}

type TokenRepo struct {
	txManager *postgres.TxManager
}

func NewTokenRepo(txManager *postgres.TxManager) *TokenRepo {
	return &TokenRepo{txManager: txManager}
}

func (r *TokenRepo) Save(ctx context.Context, t *auth.AuthToken) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO auth_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.Token, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("save auth token for user %d: %w", t.UserID, err)
	}
	return nil
}

func (r *TokenRepo) GetByUser(ctx context.Context, userID int) (*auth.AuthToken, error) {
	var t auth.AuthToken
	err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &t, `
		SELECT id, user_id, token, expires_at, created_at
		FROM auth_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth token of user %d: %w", userID, err)
	}
	return &t, nil
}

func (r *TokenRepo) DeleteByUser(ctx context.Context, userID int) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx,
		"DELETE FROM auth_tokens WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("delete auth tokens of user %d: %w", userID, err)
	}
	return nil
}
