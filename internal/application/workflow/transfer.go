package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/erp-requisitions/internal/application/dispatcher"
	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	"github.com/garyjia/erp-requisitions/internal/domain/event"
	domainwf "github.com/garyjia/erp-requisitions/internal/domain/workflow"
)

// transferStageRoles maps each open transfer status to the role that acts on it
var transferStageRoles = map[entity.TransferStatus]access.Role{
	entity.TransferPending:  access.RoleSupervisor,
	entity.TransferApproved: access.RoleWarehouse,
}

type transferEngine struct {
	transferRepo port.TransferRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	logger       Logger
	now          func() time.Time
}

// NewTransferEngine creates a new asset transfer workflow engine
func NewTransferEngine(
	transferRepo port.TransferRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) TransferEngine {
	o := buildOptions(opts)
	return &transferEngine{
		transferRepo: transferRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		dispatcher:   o.dispatcher,
		logger:       o.logger,
		now:          o.now,
	}
}

// Create opens a new asset transfer in PENDING
func (e *transferEngine) Create(ctx context.Context, actor access.Actor, in CreateTransferInput) (*entity.AssetTransfer, error) {
	assetID := strings.TrimSpace(in.AssetID)
	from := strings.TrimSpace(in.FromDepartmentID)
	to := strings.TrimSpace(in.ToDepartmentID)

	switch {
	case assetID == "":
		return nil, fmt.Errorf("%w: asset id is required", entity.ErrValidation)
	case from == "" || to == "":
		return nil, fmt.Errorf("%w: source and destination departments are required", entity.ErrValidation)
	case from == to:
		return nil, fmt.Errorf("%w: source and destination departments must differ", entity.ErrValidation)
	}

	now := e.now()
	transfer := &entity.AssetTransfer{
		ID:               uuid.NewString(),
		OrganizationID:   actor.OrganizationID,
		AssetID:          assetID,
		FromDepartmentID: from,
		ToDepartmentID:   to,
		RequesterID:      actor.ID,
		Reason:           strings.TrimSpace(in.Reason),
		Status:           entity.TransferPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.transferRepo.Create(txCtx, transfer); err != nil {
			return fmt.Errorf("failed to create asset transfer: %w", err)
		}
		return e.historyRepo.Create(txCtx, &entity.TransitionRecord{
			SubjectType: entity.SubjectAssetTransfer,
			SubjectID:   transfer.ID,
			ActorID:     actor.ID,
			NewStatus:   transfer.Status.String(),
			Action:      entity.ActionCreate,
			Timestamp:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeTransferCreated, transfer, map[string]interface{}{
		event.KeyNewStatus: transfer.Status.String(),
		event.KeyActorID:   actor.ID,
	})
	return transfer, nil
}

// Transition moves an asset transfer to the requested status
func (e *transferEngine) Transition(ctx context.Context, actor access.Actor, in TransferTransitionInput) (*entity.AssetTransfer, error) {
	var (
		transfer *entity.AssetTransfer
		previous entity.TransferStatus
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		transfer, err = e.load(txCtx, actor.OrganizationID, in.TransferID)
		if err != nil {
			return err
		}
		previous = transfer.Status

		update, err := e.planTransition(txCtx, actor, transfer, in)
		if err != nil {
			return err
		}

		if err := e.transferRepo.ApplyTransition(txCtx, update); err != nil {
			if errors.Is(err, port.ErrStaleStatus) {
				return fmt.Errorf("%w: transfer %s is no longer %s", entity.ErrInvalidTransition, transfer.ID, previous)
			}
			return fmt.Errorf("failed to update transfer status: %w", err)
		}

		action := entity.ActionAdvance
		if update.ToStatus == entity.TransferCancelled {
			action = entity.ActionCancel
		}
		if err := e.historyRepo.Create(txCtx, &entity.TransitionRecord{
			SubjectType:    entity.SubjectAssetTransfer,
			SubjectID:      transfer.ID,
			ActorID:        actor.ID,
			PreviousStatus: previous.String(),
			NewStatus:      update.ToStatus.String(),
			Action:         action,
			Timestamp:      update.At,
		}); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}

		transfer.Status = update.ToStatus
		transfer.UpdatedAt = update.At
		if update.ApprovedAt != nil {
			transfer.ApprovedBy = update.ApprovedBy
			transfer.ApprovedAt = update.ApprovedAt
		}
		if update.CompletedAt != nil {
			transfer.CompletedAt = update.CompletedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Asset transfer transitioned",
		"transfer_id", transfer.ID,
		"from", previous.String(),
		"to", transfer.Status.String(),
		"actor_id", actor.ID)

	e.emit(ctx, event.TypeTransferStatusChanged, transfer, map[string]interface{}{
		event.KeyPreviousStatus: previous.String(),
		event.KeyNewStatus:      transfer.Status.String(),
		event.KeyActorID:        actor.ID,
	})
	return transfer, nil
}

func (e *transferEngine) planTransition(ctx context.Context, actor access.Actor, transfer *entity.AssetTransfer, in TransferTransitionInput) (*port.TransferUpdate, error) {
	if !in.Target.IsValid() {
		return nil, fmt.Errorf("%w: unknown target status %q", entity.ErrValidation, in.Target)
	}
	if in.ExpectedStatus != "" && !in.ExpectedStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown expected status %q", entity.ErrValidation, in.ExpectedStatus)
	}

	current := transfer.Status

	if in.ExpectedStatus != "" {
		if in.ExpectedStatus != current {
			return nil, fmt.Errorf("%w: transfer %s is %s, not %s", entity.ErrInvalidTransition, transfer.ID, current, in.ExpectedStatus)
		}
	} else if prev, ok := in.Target.Predecessor(); ok && prev != current && current.Reached(prev) {
		return nil, fmt.Errorf("%w: transfer %s is %s, not %s", entity.ErrInvalidTransition, transfer.ID, current, prev)
	}

	if current.IsTerminal() {
		return nil, fmt.Errorf("%w: transfer %s is already %s", entity.ErrInvalidTransition, transfer.ID, current)
	}

	if err := authorizeTransfer(actor, transfer, in.Target); err != nil {
		return nil, err
	}

	machine := BuildTransferStateMachine(current)
	if err := machine.Transition(ctx, domainwf.State(in.Target)); err != nil {
		if errors.Is(err, domainwf.ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: %s -> %s is not allowed", entity.ErrInvalidTransition, current, in.Target)
		}
		return nil, err
	}

	now := e.now()
	update := &port.TransferUpdate{
		ID:         transfer.ID,
		FromStatus: current,
		ToStatus:   in.Target,
		At:         now,
	}
	switch in.Target {
	case entity.TransferApproved:
		update.ApprovedBy = actor.ID
		update.ApprovedAt = &now
	case entity.TransferCompleted:
		update.CompletedAt = &now
	}
	return update, nil
}

// Get returns an asset transfer of the actor's organization
func (e *transferEngine) Get(ctx context.Context, actor access.Actor, id string) (*entity.AssetTransfer, error) {
	return e.load(ctx, actor.OrganizationID, id)
}

func (e *transferEngine) load(ctx context.Context, organizationID, id string) (*entity.AssetTransfer, error) {
	transfer, err := e.transferRepo.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset transfer: %w", err)
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: asset transfer %s", entity.ErrNotFound, id)
	}
	return transfer, nil
}

func (e *transferEngine) emit(ctx context.Context, eventType event.Type, t *entity.AssetTransfer, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEventFromContext(ctx, eventType, t.ID, t.OrganizationID, payload))
}

// authorizeTransfer lets the stage role act; the requester may also cancel
func authorizeTransfer(actor access.Actor, t *entity.AssetTransfer, target entity.TransferStatus) error {
	if target == entity.TransferCancelled && actor.ID == t.RequesterID {
		return nil
	}
	role, ok := transferStageRoles[t.Status]
	if !ok || !actor.HasRole(role) {
		return fmt.Errorf("%w: role %s cannot act on transfer in %s", entity.ErrForbidden, actor.Role, t.Status)
	}
	return nil
}

var _ TransferEngine = (*transferEngine)(nil)
