package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	"github.com/garyjia/erp-requisitions/internal/domain/event"
)

type mockTransferRepo struct {
	transfers map[string]*entity.AssetTransfer
}

func newMockTransferRepo() *mockTransferRepo {
	return &mockTransferRepo{transfers: make(map[string]*entity.AssetTransfer)}
}

func (m *mockTransferRepo) Create(ctx context.Context, t *entity.AssetTransfer) error {
	cp := *t
	m.transfers[t.ID] = &cp
	return nil
}

func (m *mockTransferRepo) GetByID(ctx context.Context, organizationID, id string) (*entity.AssetTransfer, error) {
	t, exists := m.transfers[id]
	if !exists || t.OrganizationID != organizationID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockTransferRepo) ApplyTransition(ctx context.Context, u *port.TransferUpdate) error {
	t, exists := m.transfers[u.ID]
	if !exists || t.Status != u.FromStatus {
		return port.ErrStaleStatus
	}
	t.Status = u.ToStatus
	if u.ApprovedAt != nil {
		t.ApprovedBy, t.ApprovedAt = u.ApprovedBy, u.ApprovedAt
	}
	if u.CompletedAt != nil {
		t.CompletedAt = u.CompletedAt
	}
	return nil
}

type transferFixture struct {
	repo       *mockTransferRepo
	history    *mockHistoryRepo
	dispatcher *mockDispatcher
	engine     TransferEngine
}

func newTransferFixture() *transferFixture {
	f := &transferFixture{
		repo:       newMockTransferRepo(),
		history:    &mockHistoryRepo{},
		dispatcher: &mockDispatcher{},
	}
	f.engine = NewTransferEngine(f.repo, f.history, &mockTxManager{},
		WithDispatcher(f.dispatcher),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *transferFixture) create(t *testing.T, requester access.Actor) *entity.AssetTransfer {
	t.Helper()
	transfer, err := f.engine.Create(context.Background(), requester, CreateTransferInput{
		AssetID:          "asset-9",
		FromDepartmentID: "dept-a",
		ToDepartmentID:   "dept-b",
		Reason:           "team move",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return transfer
}

func TestTransferCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateTransferInput
	}{
		{"missing asset", CreateTransferInput{FromDepartmentID: "a", ToDepartmentID: "b"}},
		{"missing source", CreateTransferInput{AssetID: "x", ToDepartmentID: "b"}},
		{"missing destination", CreateTransferInput{AssetID: "x", FromDepartmentID: "a"}},
		{"same department", CreateTransferInput{AssetID: "x", FromDepartmentID: "a", ToDepartmentID: " a "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransferFixture()
			_, err := f.engine.Create(context.Background(), actorWith(access.RoleNone), tt.in)
			if !errors.Is(err, entity.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTransfer_ApproveAndComplete(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()
	transfer := f.create(t, actorWith(access.RoleNone))

	if transfer.Status != entity.TransferPending {
		t.Fatalf("Status = %s, want PENDING", transfer.Status)
	}

	// Warehouse cannot approve
	_, err := f.engine.Transition(ctx, actorWith(access.RoleWarehouse), TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferApproved})
	if !errors.Is(err, entity.ErrForbidden) {
		t.Fatalf("warehouse approve error = %v, want ErrForbidden", err)
	}

	supervisor := actorWith(access.RoleSupervisor)
	approved, err := f.engine.Transition(ctx, supervisor, TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferApproved})
	if err != nil {
		t.Fatalf("approve error = %v", err)
	}
	if approved.ApprovedBy != supervisor.ID || approved.ApprovedAt == nil {
		t.Errorf("approval stamp = %q %v", approved.ApprovedBy, approved.ApprovedAt)
	}

	// Second approval is at-most-once
	_, err = f.engine.Transition(ctx, supervisor, TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferApproved})
	if !errors.Is(err, entity.ErrInvalidTransition) {
		t.Errorf("repeat approve error = %v, want ErrInvalidTransition", err)
	}

	completed, err := f.engine.Transition(ctx, actorWith(access.RoleWarehouse), TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferCompleted})
	if err != nil {
		t.Fatalf("complete error = %v", err)
	}
	if completed.Status != entity.TransferCompleted || completed.CompletedAt == nil {
		t.Errorf("completed = %+v", completed)
	}

	_, err = f.engine.Transition(ctx, actorWith(access.RoleWarehouse), TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferCancelled})
	if !errors.Is(err, entity.ErrInvalidTransition) {
		t.Errorf("cancel after completion error = %v, want ErrInvalidTransition", err)
	}

	if len(f.history.records) != 3 {
		t.Errorf("history rows = %d, want 3", len(f.history.records))
	}
	if n := len(f.dispatcher.events); n != 3 || f.dispatcher.events[n-1].Type != event.TypeTransferStatusChanged {
		t.Errorf("events = %+v", f.dispatcher.events)
	}
}

func TestTransfer_Cancel(t *testing.T) {
	tests := []struct {
		name    string
		status  entity.TransferStatus
		actor   access.Actor
		wantErr error
	}{
		{"requester cancels pending", entity.TransferPending, access.Actor{ID: "requester", OrganizationID: testOrg}, nil},
		{"requester cancels approved", entity.TransferApproved, access.Actor{ID: "requester", OrganizationID: testOrg}, nil},
		{"supervisor cancels pending", entity.TransferPending, actorWith(access.RoleSupervisor), nil},
		{"warehouse cancels approved", entity.TransferApproved, actorWith(access.RoleWarehouse), nil},
		{"supervisor cannot cancel approved", entity.TransferApproved, actorWith(access.RoleSupervisor), entity.ErrForbidden},
		{"stranger cannot cancel", entity.TransferPending, actorWith(access.RoleGM), entity.ErrForbidden},
		{"cancelled is terminal", entity.TransferCancelled, access.Actor{ID: "requester", OrganizationID: testOrg}, entity.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransferFixture()
			f.repo.transfers["t-1"] = &entity.AssetTransfer{
				ID:             "t-1",
				OrganizationID: testOrg,
				RequesterID:    "requester",
				Status:         tt.status,
			}

			got, err := f.engine.Transition(context.Background(), tt.actor, TransferTransitionInput{TransferID: "t-1", Target: entity.TransferCancelled})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got.Status != entity.TransferCancelled {
				t.Errorf("Status = %s", got.Status)
			}
			if f.history.records[0].Action != entity.ActionCancel {
				t.Errorf("Action = %s, want CANCEL", f.history.records[0].Action)
			}
		})
	}
}

func TestTransfer_Errors(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()
	transfer := f.create(t, actorWith(access.RoleNone))
	supervisor := actorWith(access.RoleSupervisor)

	if _, err := f.engine.Transition(ctx, supervisor, TransferTransitionInput{TransferID: "missing", Target: entity.TransferApproved}); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("missing transfer error = %v", err)
	}
	if _, err := f.engine.Transition(ctx, supervisor, TransferTransitionInput{TransferID: transfer.ID, Target: "SHIPPED"}); !errors.Is(err, entity.ErrValidation) {
		t.Errorf("unknown target error = %v", err)
	}
	if _, err := f.engine.Transition(ctx, supervisor, TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferCompleted}); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Errorf("skip approval error = %v", err)
	}
	if _, err := f.engine.Transition(ctx, supervisor, TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferCancelled, ExpectedStatus: entity.TransferApproved}); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Errorf("stale expected status error = %v", err)
	}
	if _, err := f.engine.Transition(ctx, actorWith(access.RoleWarehouse), TransferTransitionInput{TransferID: transfer.ID, Target: entity.TransferCompleted}); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("warehouse completing a pending transfer error = %v, want ErrForbidden", err)
	}

	got, err := f.engine.Get(ctx, supervisor, transfer.ID)
	if err != nil || got.AssetID != "asset-9" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
	if _, err := f.engine.Get(ctx, access.Actor{OrganizationID: "org-2"}, transfer.ID); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("Get() other org error = %v", err)
	}
}
