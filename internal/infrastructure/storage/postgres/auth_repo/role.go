package auth_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/auth"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ auth.RoleRepository = (*RoleRepo)(nil)

type RoleRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewRoleRepo(txManager *postgres.TxManager) *RoleRepo {
	return &RoleRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RoleRepo) GetByID(ctx context.Context, roleID int) (*auth.Role, error) {
	query, args, err := r.builder.
		Select("id", "name", "is_active", "use_system").
		From("roles").
		Where(sq.Eq{"id": roleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build role query: %w", err)
	}

	var role auth.Role
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &role, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role %d: %w", roleID, err)
	}
	return &role, nil
}

func (r *RoleRepo) List(ctx context.Context) ([]auth.Role, error) {
	var roles []auth.Role
	err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &roles,
		"SELECT id, name, is_active, use_system FROM roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// ListUserAccesses flattens the grants of the user's active roles into the
// distinct accesses whose names are carried in the access token.
func (r *RoleRepo) ListUserAccesses(ctx context.Context, userID int) ([]auth.Access, error) {
	var accesses []auth.Access
	err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &accesses, `
		SELECT DISTINCT a.id, a.name, a.path, a.is_active
		FROM role_access_operations rao
		JOIN roles r ON r.id = rao.role_id AND r.is_active
		JOIN user_roles ur ON ur.role_id = rao.role_id
		JOIN accesses a ON a.id = rao.access_id AND a.is_active
		WHERE ur.user_id = $1 AND rao.is_active
		ORDER BY a.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accesses of user %d: %w", userID, err)
	}
	return accesses, nil
}

func (r *RoleRepo) HasGrant(ctx context.Context, userID, accessID, operationID int) (bool, error) {
	var ok bool
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM role_access_operations rao
			JOIN roles r ON r.id = rao.role_id AND r.is_active
			JOIN user_roles ur ON ur.role_id = rao.role_id
			WHERE ur.user_id = $1
			  AND rao.access_id = $2
			  AND rao.operation_id = $3
			  AND rao.is_active
		)
	`, userID, accessID, operationID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check grant %d/%d for user %d: %w", accessID, operationID, userID, err)
	}
	return ok, nil
}

func (r *RoleRepo) ListAccesses(ctx context.Context) ([]auth.Access, error) {
	var accesses []auth.Access
	err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &accesses,
		"SELECT id, name, path, is_active FROM accesses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list accesses: %w", err)
	}
	return accesses, nil
}

func (r *RoleRepo) ListOperations(ctx context.Context) ([]auth.Operation, error) {
	var ops []auth.Operation
	err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &ops,
		"SELECT id, name FROM operations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return ops, nil
}
