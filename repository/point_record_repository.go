package repository

import (
	"context"
	"fmt"

	"pc28/database"
	"pc28/domain/entities"
)

// PointRecordRepository implements the balance audit ledger
type PointRecordRepository struct {
	q Queryable
}

// NewPointRecordRepository creates an audit repository over the connection pool
func NewPointRecordRepository(db *database.DB) *PointRecordRepository {
	return &PointRecordRepository{q: db.Pool}
}

func newPointRecordRepositoryWithTx(tx Queryable) *PointRecordRepository {
	return &PointRecordRepository{q: tx}
}

// Record creates a new audit entry
func (r *PointRecordRepository) Record(ctx context.Context, record *entities.PointRecord) error {
	query := `
		INSERT INTO point_records (
			user_id, type, amount, balance_before, balance_after,
			related_type, related_id, remark, operator_type, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))
		RETURNING id, created_at
	`

	var createdAt any
	if !record.CreatedAt.IsZero() {
		createdAt = record.CreatedAt
	}

	var relatedType *string
	if record.RelatedType != "" {
		rt := string(record.RelatedType)
		relatedType = &rt
	}

	err := r.q.QueryRow(ctx, query,
		record.UserID,
		string(record.Type),
		record.Amount,
		record.BalanceBefore,
		record.BalanceAfter,
		relatedType,
		record.RelatedID,
		record.Remark,
		string(record.OperatorType),
		record.Metadata,
		createdAt,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record point change for user %d: %w", record.UserID, err)
	}

	return nil
}

// GetByRelated returns the entries tied to one entity, oldest first
func (r *PointRecordRepository) GetByRelated(ctx context.Context, relatedType entities.RelatedType, relatedID int64) ([]*entities.PointRecord, error) {
	query := `
		SELECT id, user_id, type, amount, balance_before, balance_after,
		       COALESCE(related_type, ''), related_id, remark, operator_type, metadata, created_at
		FROM point_records
		WHERE related_type = $1 AND related_id = $2
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, string(relatedType), relatedID)
	if err != nil {
		return nil, fmt.Errorf("failed to query point records: %w", err)
	}
	defer rows.Close()

	var records []*entities.PointRecord
	for rows.Next() {
		var record entities.PointRecord
		var recordType, related, operator string
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&recordType,
			&record.Amount,
			&record.BalanceBefore,
			&record.BalanceAfter,
			&related,
			&record.RelatedID,
			&record.Remark,
			&operator,
			&record.Metadata,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point record: %w", err)
		}
		record.Type = entities.PointRecordType(recordType)
		record.RelatedType = entities.RelatedType(related)
		record.OperatorType = entities.OperatorType(operator)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating point records: %w", err)
	}

	return records, nil
}
