package service

import (
	"context"
	"fmt"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// BadgeService serves pending-approval counts for UI badges
type BadgeService interface {
	PendingCounts(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, error)
}

type badgeServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	cache           port.BadgeCache
	logger          Logger
}

// NewBadgeService creates a new BadgeService. cache may be nil.
func NewBadgeService(requisitionRepo port.RequisitionRepository, cache port.BadgeCache, logger Logger) BadgeService {
	return &badgeServiceImpl{
		requisitionRepo: requisitionRepo,
		cache:           cache,
		logger:          logger,
	}
}

// PendingCounts returns one entry per pending status, zero included
func (s *badgeServiceImpl) PendingCounts(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, error) {
	cacheable := false
	var generation int64
	if s.cache != nil {
		counts, ok, err := s.cache.Get(ctx, organizationID)
		if err != nil {
			s.logger.Error("Badge cache read failed", "error", err, "organization_id", organizationID)
		} else if ok {
			return counts, nil
		} else if generation, err = s.cache.Generation(ctx, organizationID); err != nil {
			s.logger.Error("Badge cache read failed", "error", err, "organization_id", organizationID)
		} else {
			cacheable = true
		}
	}

	all, err := s.requisitionRepo.CountByStatus(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("count requisitions: %w", err)
	}

	counts := make(map[entity.RequisitionStatus]int, len(entity.PendingRequisitionStatuses))
	for _, status := range entity.PendingRequisitionStatuses {
		counts[status] = all[status]
	}

	if cacheable {
		if err := s.cache.Set(ctx, organizationID, generation, counts); err != nil {
			s.logger.Error("Badge cache write failed", "error", err, "organization_id", organizationID)
		}
	}
	return counts, nil
}
