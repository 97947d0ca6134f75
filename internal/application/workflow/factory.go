package workflow

import (
	"context"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	domainwf "github.com/garyjia/erp-requisitions/internal/domain/workflow"
)

var requisitionStates = func() domainwf.StateSet {
	states := make([]domainwf.State, 0, len(entity.RequisitionStatuses))
	for _, s := range entity.RequisitionStatuses {
		states = append(states, domainwf.State(s))
	}
	return domainwf.NewStateSet(states...)
}()

var transferStates = func() domainwf.StateSet {
	states := make([]domainwf.State, 0, len(entity.TransferStatuses))
	for _, s := range entity.TransferStatuses {
		states = append(states, domainwf.State(s))
	}
	return domainwf.NewStateSet(states...)
}()

// BuildRequisitionStateMachine creates a state machine for the requisition
// approval chain. warehouseGuard runs when entering PENDING_WAREHOUSE or
// COMPLETED; completionGuard additionally runs for COMPLETED. Either may be nil.
func BuildRequisitionStateMachine(initial entity.RequisitionStatus, warehouseGuard, completionGuard domainwf.GuardFunc) domainwf.StateMachine {
	builder := domainwf.NewBuilder(requisitionStates)

	st := func(s entity.RequisitionStatus) domainwf.State { return domainwf.State(s) }

	builder.Configure(st(entity.RequisitionPendingSupervisor)).
		Permit(st(entity.RequisitionPendingFA)).
		Permit(st(entity.RequisitionRejected))

	builder.Configure(st(entity.RequisitionPendingFA)).
		Permit(st(entity.RequisitionPendingGM)).
		Permit(st(entity.RequisitionRejected))

	builder.Configure(st(entity.RequisitionPendingGM)).
		PermitIf(st(entity.RequisitionPendingWarehouse), warehouseGuard).
		Permit(st(entity.RequisitionRejected))

	builder.Configure(st(entity.RequisitionPendingWarehouse)).
		PermitIf(st(entity.RequisitionCompleted), chainGuards(warehouseGuard, completionGuard)).
		Permit(st(entity.RequisitionRejected))

	// COMPLETED and REJECTED are terminal

	return builder.Build(st(initial))
}

// BuildTransferStateMachine creates a state machine for asset transfers
func BuildTransferStateMachine(initial entity.TransferStatus) domainwf.StateMachine {
	builder := domainwf.NewBuilder(transferStates)

	st := func(s entity.TransferStatus) domainwf.State { return domainwf.State(s) }

	builder.Configure(st(entity.TransferPending)).
		Permit(st(entity.TransferApproved)).
		Permit(st(entity.TransferCancelled))

	builder.Configure(st(entity.TransferApproved)).
		Permit(st(entity.TransferCompleted)).
		Permit(st(entity.TransferCancelled))

	return builder.Build(st(initial))
}

func chainGuards(guards ...domainwf.GuardFunc) domainwf.GuardFunc {
	var active []domainwf.GuardFunc
	for _, g := range guards {
		if g != nil {
			active = append(active, g)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(ctx context.Context) error {
		for _, g := range active {
			if err := g(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
