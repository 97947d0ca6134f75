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

const (
	defaultPendingPageSize = 10
	defaultListLimit       = 20
	maxListLimit           = 100
)

// requisitionEngine is the concrete implementation of RequisitionEngine
type requisitionEngine struct {
	requisitionRepo port.RequisitionRepository
	catalogRepo     port.CatalogRepository
	historyRepo     port.HistoryRepository
	txManager       port.TransactionManager
	dispatcher      dispatcher.Dispatcher
	badgeCache      port.BadgeCache
	logger          Logger

	pendingPageSize int
	now             func() time.Time
}

// EngineOption configures the workflow engines
type EngineOption func(*engineOptions)

type engineOptions struct {
	dispatcher      dispatcher.Dispatcher
	badgeCache      port.BadgeCache
	logger          Logger
	pendingPageSize int
	now             func() time.Time
}

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(o *engineOptions) {
		o.dispatcher = d
	}
}

// WithBadgeCache sets the cache invalidated after every committed change
func WithBadgeCache(c port.BadgeCache) EngineOption {
	return func(o *engineOptions) {
		o.badgeCache = c
	}
}

// WithLogger sets a logger for the engine
func WithLogger(l Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = l
	}
}

// WithPendingPageSize caps the pending list returned to an approver
func WithPendingPageSize(n int) EngineOption {
	return func(o *engineOptions) {
		if n > 0 {
			o.pendingPageSize = n
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.now = now
	}
}

func buildOptions(opts []EngineOption) engineOptions {
	o := engineOptions{
		logger:          nopLogger{},
		pendingPageSize: defaultPendingPageSize,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRequisitionEngine creates a new requisition workflow engine
func NewRequisitionEngine(
	requisitionRepo port.RequisitionRepository,
	catalogRepo port.CatalogRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) RequisitionEngine {
	o := buildOptions(opts)
	return &requisitionEngine{
		requisitionRepo: requisitionRepo,
		catalogRepo:     catalogRepo,
		historyRepo:     historyRepo,
		txManager:       txManager,
		dispatcher:      o.dispatcher,
		badgeCache:      o.badgeCache,
		logger:          o.logger,
		pendingPageSize: o.pendingPageSize,
		now:             o.now,
	}
}

// Create submits a new requisition on behalf of the actor
func (e *requisitionEngine) Create(ctx context.Context, actor access.Actor, in CreateRequisitionInput) (*entity.Requisition, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", entity.ErrValidation)
	}

	seen := make(map[string]bool, len(in.Items))
	itemIDs := make([]string, 0, len(in.Items))
	for i, line := range in.Items {
		itemID := strings.TrimSpace(line.ItemID)
		if itemID == "" {
			return nil, fmt.Errorf("%w: item %d has no item id", entity.ErrValidation, i+1)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity of item %s must be at least 1", entity.ErrValidation, itemID)
		}
		if seen[itemID] {
			return nil, fmt.Errorf("%w: item %s is listed more than once", entity.ErrValidation, itemID)
		}
		seen[itemID] = true
		itemIDs = append(itemIDs, itemID)
	}

	missing, err := e.catalogRepo.MissingItems(ctx, actor.OrganizationID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check item catalog: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unknown items: %s", entity.ErrValidation, strings.Join(missing, ", "))
	}

	warehouseID := strings.TrimSpace(in.WarehouseID)
	if warehouseID != "" {
		if err := e.checkWarehouse(ctx, actor.OrganizationID, warehouseID); err != nil {
			return nil, err
		}
	}

	now := e.now()
	req := &entity.Requisition{
		ID:             uuid.NewString(),
		RequesterID:    actor.ID,
		OrganizationID: actor.OrganizationID,
		Remarks:        strings.TrimSpace(in.Remarks),
		WarehouseID:    warehouseID,
		Status:         entity.RequisitionPendingSupervisor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i, line := range in.Items {
		req.Items = append(req.Items, entity.RequisitionItem{
			RequisitionID: req.ID,
			ItemID:        itemIDs[i],
			Quantity:      line.Quantity,
		})
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requisitionRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create requisition: %w", err)
		}

		history := &entity.TransitionRecord{
			SubjectType: entity.SubjectRequisition,
			SubjectID:   req.ID,
			ActorID:     actor.ID,
			NewStatus:   req.Status.String(),
			Action:      entity.ActionCreate,
			Timestamp:   now,
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Requisition created", "requisition_id", req.ID, "organization_id", req.OrganizationID, "items", len(req.Items))

	e.emit(ctx, event.TypeRequisitionCreated, req, map[string]interface{}{
		event.KeyNewStatus: req.Status.String(),
		event.KeyActorID:   actor.ID,
	})
	e.invalidateBadges(ctx, req.OrganizationID)

	return req, nil
}

// Transition moves a requisition one step along the chain or rejects it.
// The read, the checks and the write share one transaction.
func (e *requisitionEngine) Transition(ctx context.Context, actor access.Actor, in TransitionInput) (*entity.Requisition, error) {
	var (
		req      *entity.Requisition
		previous entity.RequisitionStatus
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = e.load(txCtx, actor.OrganizationID, in.RequisitionID)
		if err != nil {
			return err
		}
		previous = req.Status

		update, err := e.planTransition(txCtx, actor, req, in)
		if err != nil {
			return err
		}

		if err := e.requisitionRepo.ApplyTransition(txCtx, update); err != nil {
			if errors.Is(err, port.ErrStaleStatus) {
				return fmt.Errorf("%w: requisition %s is no longer %s", entity.ErrInvalidTransition, req.ID, previous)
			}
			return fmt.Errorf("failed to update requisition status: %w", err)
		}

		action := entity.ActionAdvance
		if update.ToStatus == entity.RequisitionRejected {
			action = entity.ActionReject
		}
		history := &entity.TransitionRecord{
			SubjectType:    entity.SubjectRequisition,
			SubjectID:      req.ID,
			ActorID:        actor.ID,
			PreviousStatus: previous.String(),
			NewStatus:      update.ToStatus.String(),
			Action:         action,
			Timestamp:      update.At,
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}

		applyUpdate(req, update)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Requisition transitioned",
		"requisition_id", req.ID,
		"from", previous.String(),
		"to", req.Status.String(),
		"actor_id", actor.ID)

	e.emit(ctx, event.TypeRequisitionStatusChanged, req, map[string]interface{}{
		event.KeyPreviousStatus: previous.String(),
		event.KeyNewStatus:      req.Status.String(),
		event.KeyActorID:        actor.ID,
	})
	e.invalidateBadges(ctx, req.OrganizationID)

	return req, nil
}

// planTransition runs every check in order and returns the update to apply
func (e *requisitionEngine) planTransition(ctx context.Context, actor access.Actor, req *entity.Requisition, in TransitionInput) (*port.RequisitionUpdate, error) {
	if !in.Target.IsValid() {
		return nil, fmt.Errorf("%w: unknown target status %q", entity.ErrValidation, in.Target)
	}
	if in.ExpectedStatus != "" && !in.ExpectedStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown expected status %q", entity.ErrValidation, in.ExpectedStatus)
	}

	current := req.Status

	// An explicit source must match. An implied one only decides the outcome
	// once the requisition has moved past it; earlier, the role check answers.
	if in.ExpectedStatus != "" {
		if in.ExpectedStatus != current {
			return nil, fmt.Errorf("%w: requisition %s is %s, not %s", entity.ErrInvalidTransition, req.ID, current, in.ExpectedStatus)
		}
	} else if prev, ok := in.Target.Predecessor(); ok && prev != current && current.Reached(prev) {
		return nil, fmt.Errorf("%w: requisition %s is %s, not %s", entity.ErrInvalidTransition, req.ID, current, prev)
	}

	if current.IsTerminal() {
		return nil, fmt.Errorf("%w: requisition %s is already %s", entity.ErrInvalidTransition, req.ID, current)
	}

	if err := actor.Authorize(current); err != nil {
		return nil, err
	}

	warehouseID := strings.TrimSpace(in.WarehouseID)

	machine := BuildRequisitionStateMachine(current,
		e.warehouseGuard(actor.OrganizationID, warehouseID),
		completionGuard(req, warehouseID),
	)
	if err := machine.Transition(ctx, domainwf.State(in.Target)); err != nil {
		if errors.Is(err, domainwf.ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: %s -> %s is not allowed", entity.ErrInvalidTransition, current, in.Target)
		}
		return nil, err
	}

	update := &port.RequisitionUpdate{
		ID:         req.ID,
		FromStatus: current,
		ToStatus:   in.Target,
		At:         e.now(),
	}
	if in.Target == entity.RequisitionPendingWarehouse || in.Target == entity.RequisitionCompleted {
		update.WarehouseID = warehouseID
	}
	if in.Target != entity.RequisitionRejected && isAcknowledgedStage(current) {
		update.AckStage = current
		update.AckBy = actor.ID
	}
	return update, nil
}

// ListPendingForActor returns what waits on the actor's stage, newest first
func (e *requisitionEngine) ListPendingForActor(ctx context.Context, actor access.Actor) ([]*entity.Requisition, error) {
	stage, ok := actor.Stage()
	if !ok {
		return []*entity.Requisition{}, nil
	}

	reqs, err := e.requisitionRepo.List(ctx, entity.RequisitionFilter{
		OrganizationID: actor.OrganizationID,
		Status:         stage,
		Limit:          e.pendingPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requisitions: %w", err)
	}
	return reqs, nil
}

// Get returns a requisition of the actor's organization with its items
func (e *requisitionEngine) Get(ctx context.Context, actor access.Actor, id string) (*entity.Requisition, error) {
	req, err := e.load(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	items, err := e.requisitionRepo.GetItems(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requisition items: %w", err)
	}
	req.Items = items
	return req, nil
}

// History returns the transition records of a requisition, oldest first
func (e *requisitionEngine) History(ctx context.Context, actor access.Actor, id string) ([]*entity.TransitionRecord, error) {
	req, err := e.load(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	records, err := e.historyRepo.GetBySubject(ctx, entity.SubjectRequisition, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

// List pages through the actor's organization, newest first
func (e *requisitionEngine) List(ctx context.Context, actor access.Actor, q ListQuery) ([]*entity.Requisition, error) {
	if q.Status != "" && !q.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrValidation, q.Status)
	}
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", entity.ErrValidation)
	}

	limit := q.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	reqs, err := e.requisitionRepo.List(ctx, entity.RequisitionFilter{
		OrganizationID: actor.OrganizationID,
		Status:         q.Status,
		Limit:          limit,
		Offset:         q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list requisitions: %w", err)
	}
	return reqs, nil
}

func (e *requisitionEngine) load(ctx context.Context, organizationID, id string) (*entity.Requisition, error) {
	req, err := e.requisitionRepo.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requisition: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: requisition %s", entity.ErrNotFound, id)
	}
	return req, nil
}

func (e *requisitionEngine) checkWarehouse(ctx context.Context, organizationID, warehouseID string) error {
	wh, err := e.catalogRepo.GetWarehouse(ctx, organizationID, warehouseID)
	if err != nil {
		return fmt.Errorf("failed to check warehouse: %w", err)
	}
	if wh == nil {
		return fmt.Errorf("%w: unknown warehouse %s", entity.ErrValidation, warehouseID)
	}
	return nil
}

// warehouseGuard validates a supplied warehouse against the catalog
func (e *requisitionEngine) warehouseGuard(organizationID, warehouseID string) domainwf.GuardFunc {
	if warehouseID == "" {
		return nil
	}
	return func(ctx context.Context) error {
		return e.checkWarehouse(ctx, organizationID, warehouseID)
	}
}

// completionGuard requires a target warehouse before fulfilment
func completionGuard(req *entity.Requisition, suppliedWarehouseID string) domainwf.GuardFunc {
	return func(ctx context.Context) error {
		if req.WarehouseID == "" && suppliedWarehouseID == "" {
			return fmt.Errorf("%w: a warehouse is required to complete requisition %s", entity.ErrValidation, req.ID)
		}
		return nil
	}
}

func (e *requisitionEngine) emit(ctx context.Context, eventType event.Type, req *entity.Requisition, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEventFromContext(ctx, eventType, req.ID, req.OrganizationID, payload))
}

func (e *requisitionEngine) invalidateBadges(ctx context.Context, organizationID string) {
	if e.badgeCache == nil {
		return
	}
	if err := e.badgeCache.Invalidate(ctx, organizationID); err != nil {
		e.logger.Error("Failed to invalidate badge cache", "organization_id", organizationID, "error", err)
	}
}

// isAcknowledgedStage reports whether leaving this status records an approver
func isAcknowledgedStage(s entity.RequisitionStatus) bool {
	switch s {
	case entity.RequisitionPendingSupervisor, entity.RequisitionPendingFA, entity.RequisitionPendingGM:
		return true
	default:
		return false
	}
}

// applyUpdate mirrors a committed update onto the loaded requisition
func applyUpdate(req *entity.Requisition, u *port.RequisitionUpdate) {
	req.Status = u.ToStatus
	req.UpdatedAt = u.At
	if u.WarehouseID != "" {
		req.WarehouseID = u.WarehouseID
	}

	at := u.At
	switch u.AckStage {
	case entity.RequisitionPendingSupervisor:
		req.SupervisorAckBy, req.SupervisorAckAt = u.AckBy, &at
	case entity.RequisitionPendingFA:
		req.FAManagerAckBy, req.FAManagerAckAt = u.AckBy, &at
	case entity.RequisitionPendingGM:
		req.GMApprovedBy, req.GMApprovedAt = u.AckBy, &at
	}
}

var _ RequisitionEngine = (*requisitionEngine)(nil)
