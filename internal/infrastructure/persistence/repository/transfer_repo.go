package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/persistence/sqlite"
)

// TransferRepository implements port.TransferRepository
type TransferRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransferRepository creates a new asset transfer repository
func NewTransferRepository(db *sql.DB, logger *zap.Logger) port.TransferRepository {
	return &TransferRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new asset transfer
func (r *TransferRepository) Create(ctx context.Context, t *entity.AssetTransfer) error {
	if !t.Status.IsValid() {
		return fmt.Errorf("refusing to store invalid status %q", t.Status)
	}

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO asset_transfers (
			id, organization_id, asset_id, from_department_id, to_department_id,
			requester_id, reason, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.OrganizationID,
		t.AssetID,
		t.FromDepartmentID,
		t.ToDepartmentID,
		t.RequesterID,
		t.Reason,
		t.Status,
		utc(t.CreatedAt),
		utc(t.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create asset transfer", zap.String("id", t.ID), zap.Error(err))
		return fmt.Errorf("failed to create asset transfer: %w", err)
	}
	return nil
}

// GetByID retrieves an asset transfer by organization and ID
func (r *TransferRepository) GetByID(ctx context.Context, organizationID, id string) (*entity.AssetTransfer, error) {
	var t entity.AssetTransfer
	var approvedAt, completedAt sql.NullTime

	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, organization_id, asset_id, from_department_id, to_department_id,
			requester_id, reason, status, approved_by, approved_at, completed_at,
			created_at, updated_at
		FROM asset_transfers
		WHERE organization_id = ? AND id = ?`, organizationID, id).Scan(
		&t.ID,
		&t.OrganizationID,
		&t.AssetID,
		&t.FromDepartmentID,
		&t.ToDepartmentID,
		&t.RequesterID,
		&t.Reason,
		&t.Status,
		&t.ApprovedBy,
		&approvedAt,
		&completedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get asset transfer by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get asset transfer: %w", err)
	}

	t.ApprovedAt = timePtr(approvedAt)
	t.CompletedAt = timePtr(completedAt)
	return &t, nil
}

// ApplyTransition updates the transfer only while its status equals FromStatus.
// Unset stamps keep their stored values.
func (r *TransferRepository) ApplyTransition(ctx context.Context, u *port.TransferUpdate) error {
	if !u.ToStatus.IsValid() {
		return fmt.Errorf("refusing to store invalid status %q", u.ToStatus)
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		UPDATE asset_transfers SET
			status = ?,
			updated_at = ?,
			approved_by = CASE WHEN ? <> '' THEN ? ELSE approved_by END,
			approved_at = COALESCE(?, approved_at),
			completed_at = COALESCE(?, completed_at)
		WHERE id = ? AND status = ?`,
		u.ToStatus,
		utc(u.At),
		u.ApprovedBy, u.ApprovedBy,
		nullTime(u.ApprovedAt),
		nullTime(u.CompletedAt),
		u.ID,
		u.FromStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update asset transfer status", zap.String("id", u.ID), zap.Error(err))
		return fmt.Errorf("failed to update asset transfer: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("asset transfer %s: %w", u.ID, port.ErrStaleStatus)
	}
	return nil
}

// Verify interface compliance
var _ port.TransferRepository = (*TransferRepository)(nil)
