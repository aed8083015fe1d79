// Package auth_repo implements security persistence in the App DB.
package auth_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/auth"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ auth.UserRepository = (*UserRepo)(nil)

var userColumns = []string{
	"id", "username", "password", "display_name", "email", "is_active",
	"blocked_until", "reset_password", "password_reset_at", "created_at", "updated_at",
}

type UserRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO users (username, password, display_name, email, is_active,
			reset_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, u.Username, u.PasswordHash, u.DisplayName, u.Email, u.IsActive,
		u.ResetPassword, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return nil
}

func (r *UserRepo) getBy(ctx context.Context, pred sq.Eq) (*auth.User, error) {
	query, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	var u auth.User
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &u, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int) (*auth.User, error) {
	return r.getBy(ctx, sq.Eq{"id": userID})
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.getBy(ctx, sq.Eq{"username": username})
}

func (r *UserRepo) Update(ctx context.Context, u *auth.User) error {
	query, args, err := r.builder.
		Update("users").
		Set("password", u.PasswordHash).
		Set("display_name", u.DisplayName).
		Set("email", u.Email).
		Set("is_active", u.IsActive).
		Set("blocked_until", u.BlockedUntil).
		Set("reset_password", u.ResetPassword).
		Set("password_reset_at", u.PasswordResetAt).
		Set("updated_at", u.UpdatedAt).
		Where(sq.Eq{"id": u.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int64, error) {
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}

	q := r.builder.Select(userColumns...).From("users")
	countQ := r.builder.Select("COUNT(*)").From("users")
	if filter.Search != "" {
		like := sq.Or{
			sq.ILike{"username": "%" + filter.Search + "%"},
			sq.ILike{"display_name": "%" + filter.Search + "%"},
		}
		q = q.Where(like)
		countQ = countQ.Where(like)
	}
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		countQ = countQ.Where(sq.Eq{"is_active": *filter.IsActive})
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build user count query: %w", err)
	}
	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query, args, err := q.
		OrderBy("username").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build user list query: %w", err)
	}

	var users []auth.User
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepo) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", username, err)
	}
	return exists, nil
}

func (r *UserRepo) LoadRoles(ctx context.Context, userID int) ([]auth.Role, error) {
	var roles []auth.Role
	err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &roles, `
		SELECT r.id, r.name, r.is_active, r.use_system
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles of user %d: %w", userID, err)
	}
	return roles, nil
}

func (r *UserRepo) ReplaceRoles(ctx context.Context, userID int, roleIDs []int) error {
	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, "DELETE FROM user_roles WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("clear roles of user %d: %w", userID, err)
	}
	for _, roleID := range roleIDs {
		if _, err := querier.Exec(ctx,
			"INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)", userID, roleID); err != nil {
			return fmt.Errorf("assign role %d to user %d: %w", roleID, userID, err)
		}
	}
	return nil
}
