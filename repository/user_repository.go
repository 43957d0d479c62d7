package repository

import (
	"context"
	"errors"
	"fmt"

	"pc28/database"
	"pc28/domain/entities"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements balance access
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a user repository over the connection pool
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

func newUserRepositoryWithTx(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// Create inserts a user with a starting balance
func (r *UserRepository) Create(ctx context.Context, username string, points int64) (*entities.User, error) {
	query := `
		INSERT INTO users (username, points)
		VALUES ($1, $2)
		RETURNING id, username, points, created_at, updated_at
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, username, points).Scan(
		&user.ID,
		&user.Username,
		&user.Points,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}

	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves a user by ID with a row lock
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error) {
	return r.getByID(ctx, id, true)
}

func (r *UserRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*entities.User, error) {
	query := `SELECT id, username, points, created_at, updated_at FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var user entities.User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Points,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	return &user, nil
}

// UpdatePoints sets a user's balance
func (r *UserRepository) UpdatePoints(ctx context.Context, id int64, points int64) error {
	query := `
		UPDATE users
		SET points = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, points)
	if err != nil {
		return fmt.Errorf("failed to update points for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", id)
	}

	return nil
}
