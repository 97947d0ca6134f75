package workflow

import (
	"context"

	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// ItemLine is one requested item of a new requisition
type ItemLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// CreateRequisitionInput holds the fields a requester supplies
type CreateRequisitionInput struct {
	Items       []ItemLine `json:"items"`
	Remarks     string     `json:"remarks"`
	WarehouseID string     `json:"warehouse_id"`
}

// TransitionInput asks to move a requisition to Target. ExpectedStatus, when
// set, must equal the current status; otherwise a forward target implies it.
type TransitionInput struct {
	RequisitionID  string
	Target         entity.RequisitionStatus
	WarehouseID    string
	ExpectedStatus entity.RequisitionStatus
}

// ListQuery pages through an organization's requisitions
type ListQuery struct {
	Status entity.RequisitionStatus
	Limit  int
	Offset int
}

// RequisitionEngine runs the requisition approval chain
type RequisitionEngine interface {
	// Create submits a new requisition on behalf of the actor
	Create(ctx context.Context, actor access.Actor, in CreateRequisitionInput) (*entity.Requisition, error)

	// Transition moves a requisition one step along the chain or rejects it
	Transition(ctx context.Context, actor access.Actor, in TransitionInput) (*entity.Requisition, error)

	// ListPendingForActor returns what waits on the actor's stage, newest first
	ListPendingForActor(ctx context.Context, actor access.Actor) ([]*entity.Requisition, error)

	// Get returns a requisition of the actor's organization with its items
	Get(ctx context.Context, actor access.Actor, id string) (*entity.Requisition, error)

	// History returns the transition records of a requisition, oldest first
	History(ctx context.Context, actor access.Actor, id string) ([]*entity.TransitionRecord, error)

	// List pages through the actor's organization, newest first
	List(ctx context.Context, actor access.Actor, q ListQuery) ([]*entity.Requisition, error)
}

// CreateTransferInput holds the fields of a new asset transfer
type CreateTransferInput struct {
	AssetID          string `json:"asset_id"`
	FromDepartmentID string `json:"from_department_id"`
	ToDepartmentID   string `json:"to_department_id"`
	Reason           string `json:"reason"`
}

// TransferTransitionInput asks to move an asset transfer to Target
type TransferTransitionInput struct {
	TransferID     string
	Target         entity.TransferStatus
	ExpectedStatus entity.TransferStatus
}

// TransferEngine runs the asset transfer workflow
type TransferEngine interface {
	Create(ctx context.Context, actor access.Actor, in CreateTransferInput) (*entity.AssetTransfer, error)
	Transition(ctx context.Context, actor access.Actor, in TransferTransitionInput) (*entity.AssetTransfer, error)
	Get(ctx context.Context, actor access.Actor, id string) (*entity.AssetTransfer, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
