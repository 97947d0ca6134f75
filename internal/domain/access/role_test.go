package access

import (
	"errors"
	"testing"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

func TestResolveTitle(t *testing.T) {
	tests := []struct {
		title   string
		want    Role
		wantErr error
	}{
		{"Supervisor", RoleSupervisor, nil},
		{"Line SUPERVISOR", RoleSupervisor, nil},
		{"Finance Officer", RoleFAManager, nil},
		{"FA Manager", RoleFAManager, nil},
		{"GM", RoleGM, nil},
		{"General Manager", RoleGM, nil},
		{"System Admin", RoleWarehouse, nil},
		{"Warehouse Clerk", RoleWarehouse, nil},
		{"Engineer", RoleNone, nil},
		{"", RoleNone, nil},
		{"Warehouse Supervisor", RoleNone, ErrAmbiguousRole},
		{"Finance Admin", RoleNone, ErrAmbiguousRole},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, err := ResolveTitle(tt.title)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveTitle(%q) error = %v, want %v", tt.title, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveTitle(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestResolveMember_ClaimWinsOverTitle(t *testing.T) {
	m := &entity.Member{ID: "u1", Title: "Warehouse Supervisor", RoleClaim: "GM"}

	role, err := ResolveMember(m)
	if err != nil {
		t.Fatalf("ResolveMember() error = %v", err)
	}
	if role != RoleGM {
		t.Errorf("ResolveMember() = %v, want %v", role, RoleGM)
	}
}

func TestResolveMember_UnknownClaim(t *testing.T) {
	m := &entity.Member{ID: "u1", Title: "Supervisor", RoleClaim: "owner"}

	if _, err := ResolveMember(m); err == nil {
		t.Error("ResolveMember() should fail on unknown claim")
	}
}

func TestRole_Stage(t *testing.T) {
	tests := []struct {
		role Role
		want entity.RequisitionStatus
		ok   bool
	}{
		{RoleSupervisor, entity.RequisitionPendingSupervisor, true},
		{RoleFAManager, entity.RequisitionPendingFA, true},
		{RoleGM, entity.RequisitionPendingGM, true},
		{RoleWarehouse, entity.RequisitionPendingWarehouse, true},
		{RoleNone, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			got, ok := tt.role.Stage()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Stage() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}

	role, ok := RoleForStage(entity.RequisitionPendingGM)
	if !ok || role != RoleGM {
		t.Errorf("RoleForStage(PENDING_GM) = (%v, %v), want (gm, true)", role, ok)
	}
	if _, ok := RoleForStage(entity.RequisitionCompleted); ok {
		t.Error("RoleForStage(COMPLETED) should not resolve")
	}
}

func TestActor_Authorize(t *testing.T) {
	supervisor := NewActor(&entity.Member{ID: "s1", OrganizationID: "org", Title: "Supervisor"})
	ambiguous := NewActor(&entity.Member{ID: "a1", OrganizationID: "org", Title: "Warehouse Supervisor"})
	nobody := NewActor(&entity.Member{ID: "n1", OrganizationID: "org", Title: "Engineer"})

	if err := supervisor.Authorize(entity.RequisitionPendingSupervisor); err != nil {
		t.Errorf("supervisor.Authorize(PENDING_SUPERVISOR) error = %v", err)
	}
	if err := supervisor.Authorize(entity.RequisitionPendingGM); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("supervisor.Authorize(PENDING_GM) error = %v, want ErrForbidden", err)
	}
	if err := ambiguous.Authorize(entity.RequisitionPendingSupervisor); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("ambiguous.Authorize() error = %v, want ErrForbidden", err)
	}
	if err := nobody.Authorize(entity.RequisitionPendingWarehouse); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("nobody.Authorize() error = %v, want ErrForbidden", err)
	}
	if _, ok := ambiguous.Stage(); ok {
		t.Error("ambiguous actor should have no stage")
	}
}
