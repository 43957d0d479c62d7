package repository

import (
	"context"
	"errors"
	"fmt"

	"pc28/database"
	"pc28/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ErrBetNotUpdated is returned by Settle when the row was not pending anymore
var ErrBetNotUpdated = errors.New("bet is no longer pending")

const betColumns = `
	id, user_id, issue, bet_type, bet_content, amount, display_fee, fee,
	status, result_amount, points_before, points_after, settled_at,
	created_at, updated_at`

// BetRepository implements bet data access
type BetRepository struct {
	q Queryable
}

// NewBetRepository creates a bet repository over the connection pool
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx Queryable) *BetRepository {
	return &BetRepository{q: tx}
}

// Create inserts a pending bet
func (r *BetRepository) Create(ctx context.Context, bet *entities.Bet) error {
	query := `
		INSERT INTO bets (user_id, issue, bet_type, bet_content, amount, display_fee, status, points_before)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	if bet.Status == "" {
		bet.Status = entities.BetStatusPending
	}

	err := r.q.QueryRow(ctx, query,
		bet.UserID,
		bet.Issue,
		string(bet.BetType),
		bet.BetContent,
		bet.Amount,
		bet.DisplayFee,
		string(bet.Status),
		bet.PointsBefore,
	).Scan(&bet.ID, &bet.CreatedAt, &bet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}

	return nil
}

// GetByID retrieves a bet by ID
func (r *BetRepository) GetByID(ctx context.Context, id int64) (*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, err)
	}
	return bet, nil
}

// GetByIDForUpdate retrieves a bet by ID with a row lock
func (r *BetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1 FOR UPDATE`

	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d for update: %w", id, err)
	}
	return bet, nil
}

// GetPendingByIssue returns pending bets on an issue in placement order
func (r *BetRepository) GetPendingByIssue(ctx context.Context, issue string) ([]*entities.Bet, error) {
	query := `SELECT ` + betColumns + `
		FROM bets
		WHERE issue = $1 AND status = 'pending'
		ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, issue)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending bets for %s: %w", issue, err)
	}
	defer rows.Close()

	var bets []*entities.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}

	return bets, nil
}

// Settle writes the settlement columns. The update is guarded on the row
// still being pending so a bet is never settled twice.
func (r *BetRepository) Settle(ctx context.Context, bet *entities.Bet) error {
	query := `
		UPDATE bets
		SET status = $2, fee = $3, result_amount = $4, points_after = $5,
		    settled_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.ID,
		string(bet.Status),
		bet.Fee,
		bet.ResultAmount,
		bet.PointsAfter,
		bet.SettledAt,
	).Scan(&bet.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrBetNotUpdated, bet.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to settle bet %d: %w", bet.ID, err)
	}

	return nil
}

func scanBet(row pgx.Row) (*entities.Bet, error) {
	var bet entities.Bet
	var betType, status string
	err := row.Scan(
		&bet.ID,
		&bet.UserID,
		&bet.Issue,
		&betType,
		&bet.BetContent,
		&bet.Amount,
		&bet.DisplayFee,
		&bet.Fee,
		&status,
		&bet.ResultAmount,
		&bet.PointsBefore,
		&bet.PointsAfter,
		&bet.SettledAt,
		&bet.CreatedAt,
		&bet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	bet.BetType = entities.BetType(betType)
	bet.Status = entities.BetStatus(status)
	return &bet, nil
}
