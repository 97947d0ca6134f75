package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, record *entity.TransitionRecord) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO transition_history (
			subject_type, subject_id, actor_id, previous_status, new_status,
			action, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.SubjectType,
		record.SubjectID,
		record.ActorID,
		record.PreviousStatus,
		record.NewStatus,
		record.Action,
		utc(record.Timestamp),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("subject_id", record.SubjectID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetBySubject retrieves all history records of a subject in write order
func (r *HistoryRepository) GetBySubject(ctx context.Context, subjectType, subjectID string) ([]*entity.TransitionRecord, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, `
		SELECT id, subject_type, subject_id, actor_id, previous_status, new_status,
			action, timestamp
		FROM transition_history
		WHERE subject_type = ? AND subject_id = ?
		ORDER BY id ASC`, subjectType, subjectID)
	if err != nil {
		r.logger.Error("Failed to get history by subject", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	records := []*entity.TransitionRecord{}
	for rows.Next() {
		var record entity.TransitionRecord
		err := rows.Scan(
			&record.ID,
			&record.SubjectType,
			&record.SubjectID,
			&record.ActorID,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Action,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
