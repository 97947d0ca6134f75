package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// ErrStaleStatus is returned by conditional updates when the stored status no
// longer equals the expected source status
var ErrStaleStatus = errors.New("status changed concurrently")

// RequisitionUpdate is one committed step of the requisition workflow
type RequisitionUpdate struct {
	ID         string
	FromStatus entity.RequisitionStatus
	ToStatus   entity.RequisitionStatus
	// WarehouseID overwrites the target warehouse when non-empty
	WarehouseID string
	// AckStage selects the audit pair to stamp (PENDING_SUPERVISOR, PENDING_FA
	// or PENDING_GM); empty stamps nothing
	AckStage entity.RequisitionStatus
	AckBy    string
	At       time.Time
}

// RequisitionRepository defines persistence operations for Requisition
type RequisitionRepository interface {
	// Create inserts the requisition and its items
	Create(ctx context.Context, req *entity.Requisition) error

	// GetByID returns nil, nil when no requisition with that id exists in the organization
	GetByID(ctx context.Context, organizationID, id string) (*entity.Requisition, error)

	// GetItems returns the items of a requisition
	GetItems(ctx context.Context, requisitionID string) ([]entity.RequisitionItem, error)

	// ApplyTransition updates the row only while its status equals FromStatus;
	// otherwise it returns ErrStaleStatus
	ApplyTransition(ctx context.Context, update *RequisitionUpdate) error

	// List returns requisitions newest first
	List(ctx context.Context, filter entity.RequisitionFilter) ([]*entity.Requisition, error)

	// CountByStatus counts the organization's requisitions per status
	CountByStatus(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, error)
}

// TransferUpdate is one committed step of the asset transfer workflow
type TransferUpdate struct {
	ID          string
	FromStatus  entity.TransferStatus
	ToStatus    entity.TransferStatus
	ApprovedBy  string
	ApprovedAt  *time.Time
	CompletedAt *time.Time
	At          time.Time
}

// TransferRepository defines persistence operations for AssetTransfer
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.AssetTransfer) error
	GetByID(ctx context.Context, organizationID, id string) (*entity.AssetTransfer, error)
	ApplyTransition(ctx context.Context, update *TransferUpdate) error
}

// CatalogRepository looks up organization-owned reference data
type CatalogRepository interface {
	// MissingItems returns the ids that are not in the organization's item catalog
	MissingItems(ctx context.Context, organizationID string, itemIDs []string) ([]string, error)

	// GetWarehouse returns nil, nil when the warehouse does not exist in the organization
	GetWarehouse(ctx context.Context, organizationID, id string) (*entity.Warehouse, error)
}

// MemberDirectory resolves organization members (the identity boundary)
type MemberDirectory interface {
	// GetMember returns nil, nil when the member is unknown in the organization
	GetMember(ctx context.Context, organizationID, memberID string) (*entity.Member, error)

	// ListMembers returns all members of an organization
	ListMembers(ctx context.Context, organizationID string) ([]*entity.Member, error)
}

// HistoryRepository defines persistence operations for TransitionRecord
type HistoryRepository interface {
	Create(ctx context.Context, record *entity.TransitionRecord) error
	GetBySubject(ctx context.Context, subjectType, subjectID string) ([]*entity.TransitionRecord, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
