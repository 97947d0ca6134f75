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

// CatalogRepository implements port.CatalogRepository over the items and
// warehouses tables
type CatalogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *sql.DB, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
	}
}

// MissingItems returns the ids not found in the organization's item catalog,
// in input order
func (r *CatalogRepository) MissingItems(ctx context.Context, organizationID string, itemIDs []string) ([]string, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]interface{}, 0, len(itemIDs)+1)
	args = append(args, organizationID)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx,
		`SELECT id FROM items WHERE organization_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		r.logger.Error("Failed to look up items", zap.String("organization_id", organizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to look up items: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(itemIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range itemIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// GetWarehouse returns nil, nil when the warehouse does not exist in the organization
func (r *CatalogRepository) GetWarehouse(ctx context.Context, organizationID, id string) (*entity.Warehouse, error) {
	var wh entity.Warehouse
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, organization_id, name FROM warehouses WHERE organization_id = ? AND id = ?`,
		organizationID, id,
	).Scan(&wh.ID, &wh.OrganizationID, &wh.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get warehouse", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}
	return &wh, nil
}

// UpsertItem adds or renames a catalog item
func (r *CatalogRepository) UpsertItem(ctx context.Context, item *entity.Item) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO items (id, organization_id, name, unit) VALUES (?, ?, ?, ?)
		ON CONFLICT (organization_id, id) DO UPDATE SET name = excluded.name, unit = excluded.unit`,
		item.ID, item.OrganizationID, item.Name, item.Unit)
	if err != nil {
		r.logger.Error("Failed to upsert item", zap.String("id", item.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

// UpsertWarehouse adds or renames a warehouse
func (r *CatalogRepository) UpsertWarehouse(ctx context.Context, wh *entity.Warehouse) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO warehouses (id, organization_id, name) VALUES (?, ?, ?)
		ON CONFLICT (organization_id, id) DO UPDATE SET name = excluded.name`,
		wh.ID, wh.OrganizationID, wh.Name)
	if err != nil {
		r.logger.Error("Failed to upsert warehouse", zap.String("id", wh.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert warehouse: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.CatalogRepository = (*CatalogRepository)(nil)
