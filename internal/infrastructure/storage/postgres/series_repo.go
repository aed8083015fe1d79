package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"mecsa/internal/domain/series"
)

// Compile-time check.
var _ series.Repository = (*SeriesRepo)(nil)

// SeriesRepo persists document series counters in the Promec DB.
type SeriesRepo struct {
	txManager *TxManager
	builder   sq.StatementBuilderType
}

func NewSeriesRepo(txManager *TxManager) *SeriesRepo {
	return &SeriesRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// NextNumber returns the current counter value and increments the row.
// The UPDATE takes the row lock, so concurrent allocations of the same
// series serialize on commit.
func (r *SeriesRepo) NextNumber(ctx context.Context, company, documentCode, serviceNumber string) (int64, error) {
	query, args, err := r.builder.
		Update("doc_series").
		Set("number", sq.Expr("number + 1")).
		Where(sq.Eq{
			"company":        company,
			"document_code":  documentCode,
			"service_number": serviceNumber,
		}).
		Suffix("RETURNING number - 1").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build series query: %w", err)
	}

	var n int64
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, query, args...).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, series.NotFound(documentCode, serviceNumber)
	}
	if err != nil {
		return 0, fmt.Errorf("next number %s/%s: %w", documentCode, serviceNumber, err)
	}
	return n, nil
}

// NextVal advances a DB-native sequence.
func (r *SeriesRepo) NextVal(ctx context.Context, sequence string) (int64, error) {
	var n int64
	err := r.txManager.GetQuerier(ctx).
		QueryRow(ctx, fmt.Sprintf("SELECT nextval('%s')", sequence)).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("nextval %s: %w", sequence, err)
	}
	return n, nil
}
