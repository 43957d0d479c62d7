package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pc28/database"
	"pc28/domain/entities"

	"github.com/jackc/pgx/v5"
)

const drawResultColumns = `
	id, issue, number1, number2, number3, sum, is_return, return_reason,
	size_category, parity_category, combo_category, draw_time, source,
	settled, settled_at, created_at`

// DrawResultRepository implements access to the draw ledger
type DrawResultRepository struct {
	q Queryable
}

// NewDrawResultRepository creates a draw repository over the connection pool
func NewDrawResultRepository(db *database.DB) *DrawResultRepository {
	return &DrawResultRepository{q: db.Pool}
}

// newDrawResultRepositoryWithTx creates a draw repository bound to a transaction
func newDrawResultRepositoryWithTx(tx Queryable) *DrawResultRepository {
	return &DrawResultRepository{q: tx}
}

// Insert appends a draw. A duplicate issue leaves the existing row untouched
// and reports false.
func (r *DrawResultRepository) Insert(ctx context.Context, draw *entities.DrawResult) (bool, error) {
	query := `
		INSERT INTO draw_results (
			issue, number1, number2, number3, sum, is_return, return_reason,
			size_category, parity_category, combo_category, draw_time, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (issue) DO NOTHING
		RETURNING id, settled, settled_at, created_at
	`

	err := r.q.QueryRow(ctx, query,
		draw.Issue,
		draw.Digits[0],
		draw.Digits[1],
		draw.Digits[2],
		draw.Sum,
		draw.IsReturn,
		string(draw.ReturnReason),
		string(draw.Size),
		string(draw.Parity),
		string(draw.Combo),
		draw.DrawTime,
		draw.Source,
	).Scan(&draw.ID, &draw.Settled, &draw.SettledAt, &draw.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert draw result %s: %w", draw.Issue, err)
	}

	return true, nil
}

// GetByIssue retrieves a draw by issue
func (r *DrawResultRepository) GetByIssue(ctx context.Context, issue string) (*entities.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + ` FROM draw_results WHERE issue = $1`

	draw, err := scanDrawResult(r.q.QueryRow(ctx, query, issue))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result %s: %w", issue, err)
	}
	return draw, nil
}

// GetLatest returns the draw with the highest issue.
// Issues are compared numerically so "100" sorts after "99".
func (r *DrawResultRepository) GetLatest(ctx context.Context) (*entities.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + `
		FROM draw_results
		ORDER BY LENGTH(issue) DESC, issue DESC
		LIMIT 1`

	draw, err := scanDrawResult(r.q.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest draw result: %w", err)
	}
	return draw, nil
}

// GetRecent returns up to limit draws, newest first
func (r *DrawResultRepository) GetRecent(ctx context.Context, limit int) ([]*entities.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + `
		FROM draw_results
		ORDER BY LENGTH(issue) DESC, issue DESC
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent draw results: %w", err)
	}
	defer rows.Close()

	return collectDrawResults(rows)
}

// GetUnsettled returns up to limit unsettled draws, oldest first
func (r *DrawResultRepository) GetUnsettled(ctx context.Context, limit int) ([]*entities.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + `
		FROM draw_results
		WHERE settled = FALSE
		ORDER BY LENGTH(issue) ASC, issue ASC
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsettled draw results: %w", err)
	}
	defer rows.Close()

	return collectDrawResults(rows)
}

// MarkSettled flips settled to true only if it is still false
func (r *DrawResultRepository) MarkSettled(ctx context.Context, issue string, settledAt time.Time) (bool, error) {
	query := `
		UPDATE draw_results
		SET settled = TRUE, settled_at = $2
		WHERE issue = $1 AND settled = FALSE
	`

	tag, err := r.q.Exec(ctx, query, issue, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark draw result %s settled: %w", issue, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanDrawResult(row pgx.Row) (*entities.DrawResult, error) {
	var draw entities.DrawResult
	var returnReason, size, parity, combo string
	err := row.Scan(
		&draw.ID,
		&draw.Issue,
		&draw.Digits[0],
		&draw.Digits[1],
		&draw.Digits[2],
		&draw.Sum,
		&draw.IsReturn,
		&returnReason,
		&size,
		&parity,
		&combo,
		&draw.DrawTime,
		&draw.Source,
		&draw.Settled,
		&draw.SettledAt,
		&draw.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	draw.ReturnReason = entities.ReturnReason(returnReason)
	draw.Size = entities.SizeCategory(size)
	draw.Parity = entities.ParityCategory(parity)
	draw.Combo = entities.ComboCategory(combo)
	return &draw, nil
}

func collectDrawResults(rows pgx.Rows) ([]*entities.DrawResult, error) {
	var draws []*entities.DrawResult
	for rows.Next() {
		draw, err := scanDrawResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw result: %w", err)
		}
		draws = append(draws, draw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draw results: %w", err)
	}
	return draws, nil
}
