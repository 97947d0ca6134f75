package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

const (
	exportPageSize = 100
	// MaxExportRows bounds a single export
	MaxExportRows = 5000
)

// ExportService renders requisition listings into spreadsheets
type ExportService interface {
	ExportRequisitions(ctx context.Context, actor access.Actor, status entity.RequisitionStatus, w io.Writer) (int, error)
}

type exportServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	exporter        port.RequisitionExporter
	logger          Logger
}

// NewExportService creates a new ExportService
func NewExportService(requisitionRepo port.RequisitionRepository, exporter port.RequisitionExporter, logger Logger) ExportService {
	return &exportServiceImpl{
		requisitionRepo: requisitionRepo,
		exporter:        exporter,
		logger:          logger,
	}
}

// ExportRequisitions writes the actor's organization requisitions, newest
// first, and returns the number of rows written
func (s *exportServiceImpl) ExportRequisitions(ctx context.Context, actor access.Actor, status entity.RequisitionStatus, w io.Writer) (int, error) {
	if status != "" && !status.IsValid() {
		return 0, fmt.Errorf("%w: unknown status %q", entity.ErrValidation, status)
	}

	var rows []*entity.Requisition
	for offset := 0; offset < MaxExportRows; offset += exportPageSize {
		page, err := s.requisitionRepo.List(ctx, entity.RequisitionFilter{
			OrganizationID: actor.OrganizationID,
			Status:         status,
			Limit:          exportPageSize,
			Offset:         offset,
		})
		if err != nil {
			return 0, fmt.Errorf("list requisitions: %w", err)
		}
		for _, req := range page {
			items, err := s.requisitionRepo.GetItems(ctx, req.ID)
			if err != nil {
				return 0, fmt.Errorf("get items of %s: %w", req.ID, err)
			}
			req.Items = items
		}
		rows = append(rows, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	if err := s.exporter.Export(w, rows); err != nil {
		s.logger.Error("Failed to render export", "error", err, "organization_id", actor.OrganizationID)
		return 0, fmt.Errorf("render export: %w", err)
	}

	s.logger.Info("Requisitions exported", "organization_id", actor.OrganizationID, "rows", len(rows), "actor_id", actor.ID)
	return len(rows), nil
}
