package port

import (
	"context"
	"io"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// MessageSender delivers chat messages to members
type MessageSender interface {
	SendText(ctx context.Context, openID string, content string) error
}

// BadgeCache stores pending-approval counts per organization
type BadgeCache interface {
	// Get returns ok=false on a cache miss
	Get(ctx context.Context, organizationID string) (counts map[entity.RequisitionStatus]int, ok bool, err error)

	// Generation returns the organization's invalidation counter. Read it
	// before counting and hand it to Set.
	Generation(ctx context.Context, organizationID string) (int64, error)

	// Set stores counts only while the generation is unchanged, so counts
	// taken before a concurrent Invalidate are dropped
	Set(ctx context.Context, organizationID string, generation int64, counts map[entity.RequisitionStatus]int) error

	// Invalidate drops the counts and advances the generation
	Invalidate(ctx context.Context, organizationID string) error
}

// RequisitionExporter renders requisitions into a spreadsheet
type RequisitionExporter interface {
	Export(w io.Writer, requisitions []*entity.Requisition) error
}
