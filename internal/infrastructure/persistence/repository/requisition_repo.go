package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/persistence/sqlite"
)

const requisitionColumns = `
	id, organization_id, requester_id, remarks, warehouse_id, status,
	supervisor_ack_by, supervisor_ack_at, fa_manager_ack_by, fa_manager_ack_at,
	gm_approved_by, gm_approved_at, created_at, updated_at`

// ackColumns maps an acknowledged stage to its audit columns
var ackColumns = map[entity.RequisitionStatus][2]string{
	entity.RequisitionPendingSupervisor: {"supervisor_ack_by", "supervisor_ack_at"},
	entity.RequisitionPendingFA:         {"fa_manager_ack_by", "fa_manager_ack_at"},
	entity.RequisitionPendingGM:         {"gm_approved_by", "gm_approved_at"},
}

// RequisitionRepository implements port.RequisitionRepository
type RequisitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequisitionRepository creates a new requisition repository
func NewRequisitionRepository(db *sql.DB, logger *zap.Logger) port.RequisitionRepository {
	return &RequisitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the requisition and its items. Callers wrap it in a transaction.
func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	if !req.Status.IsValid() {
		return fmt.Errorf("refusing to store invalid status %q", req.Status)
	}

	exec := sqlite.ExecutorFor(ctx, r.db)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO requisitions (
			id, organization_id, requester_id, remarks, warehouse_id, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.OrganizationID,
		req.RequesterID,
		req.Remarks,
		req.WarehouseID,
		req.Status,
		utc(req.CreatedAt),
		utc(req.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create requisition", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create requisition: %w", err)
	}

	for i := range req.Items {
		item := &req.Items[i]
		item.RequisitionID = req.ID
		result, err := exec.ExecContext(ctx,
			`INSERT INTO requisition_items (requisition_id, item_id, quantity) VALUES (?, ?, ?)`,
			req.ID, item.ItemID, item.Quantity,
		)
		if err != nil {
			r.logger.Error("Failed to create requisition item",
				zap.String("requisition_id", req.ID),
				zap.String("item_id", item.ItemID),
				zap.Error(err))
			return fmt.Errorf("failed to create requisition item %s: %w", item.ItemID, err)
		}
		if item.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a requisition by organization and ID
func (r *RequisitionRepository) GetByID(ctx context.Context, organizationID, id string) (*entity.Requisition, error) {
	query := `SELECT ` + requisitionColumns + ` FROM requisitions WHERE organization_id = ? AND id = ?`

	req, err := scanRequisition(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, organizationID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get requisition by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get requisition: %w", err)
	}
	return req, nil
}

// GetItems returns the items of a requisition in insertion order
func (r *RequisitionRepository) GetItems(ctx context.Context, requisitionID string) ([]entity.RequisitionItem, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, `
		SELECT id, requisition_id, item_id, quantity
		FROM requisition_items
		WHERE requisition_id = ?
		ORDER BY id ASC`, requisitionID)
	if err != nil {
		r.logger.Error("Failed to get requisition items", zap.String("requisition_id", requisitionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get requisition items: %w", err)
	}
	defer rows.Close()

	items := []entity.RequisitionItem{}
	for rows.Next() {
		var item entity.RequisitionItem
		if err := rows.Scan(&item.ID, &item.RequisitionID, &item.ItemID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan requisition item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ApplyTransition updates status, audit stamp and warehouse only while the
// stored status still equals FromStatus
func (r *RequisitionRepository) ApplyTransition(ctx context.Context, u *port.RequisitionUpdate) error {
	if !u.ToStatus.IsValid() {
		return fmt.Errorf("refusing to store invalid status %q", u.ToStatus)
	}

	sets := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{u.ToStatus, utc(u.At)}

	if u.WarehouseID != "" {
		sets = append(sets, "warehouse_id = ?")
		args = append(args, u.WarehouseID)
	}
	if u.AckStage != "" {
		cols, ok := ackColumns[u.AckStage]
		if !ok {
			return fmt.Errorf("no audit columns for stage %s", u.AckStage)
		}
		sets = append(sets, cols[0]+" = ?", cols[1]+" = ?")
		args = append(args, u.AckBy, utc(u.At))
	}
	args = append(args, u.ID, u.FromStatus)

	query := `UPDATE requisitions SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update requisition status",
			zap.String("id", u.ID),
			zap.String("from", u.FromStatus.String()),
			zap.String("to", u.ToStatus.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update requisition: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("requisition %s: %w", u.ID, port.ErrStaleStatus)
	}
	return nil
}

// List returns requisitions newest first
func (r *RequisitionRepository) List(ctx context.Context, filter entity.RequisitionFilter) ([]*entity.Requisition, error) {
	query := `SELECT ` + requisitionColumns + ` FROM requisitions WHERE organization_id = ?`
	args := []interface{}{filter.OrganizationID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requisitions", zap.String("organization_id", filter.OrganizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list requisitions: %w", err)
	}
	defer rows.Close()

	reqs := []*entity.Requisition{}
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requisition: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// CountByStatus counts the organization's requisitions per status
func (r *RequisitionRepository) CountByStatus(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM requisitions
		WHERE organization_id = ?
		GROUP BY status`, organizationID)
	if err != nil {
		r.logger.Error("Failed to count requisitions", zap.String("organization_id", organizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to count requisitions: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.RequisitionStatus]int)
	for rows.Next() {
		var status entity.RequisitionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanRequisition(s rowScanner) (*entity.Requisition, error) {
	var req entity.Requisition
	var supervisorAt, faAt, gmAt sql.NullTime

	err := s.Scan(
		&req.ID,
		&req.OrganizationID,
		&req.RequesterID,
		&req.Remarks,
		&req.WarehouseID,
		&req.Status,
		&req.SupervisorAckBy,
		&supervisorAt,
		&req.FAManagerAckBy,
		&faAt,
		&req.GMApprovedBy,
		&gmAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.SupervisorAckAt = timePtr(supervisorAt)
	req.FAManagerAckAt = timePtr(faAt)
	req.GMApprovedAt = timePtr(gmAt)
	return &req, nil
}

// Verify interface compliance
var _ port.RequisitionRepository = (*RequisitionRepository)(nil)
