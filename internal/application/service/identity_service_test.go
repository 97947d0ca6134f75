package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

func TestIdentityService_ResolveActor(t *testing.T) {
	svc := NewIdentityService(testMembers(), &mockLogger{})

	tests := []struct {
		name     string
		org      string
		member   string
		wantRole access.Role
		wantErr  error
		roleErr  bool
	}{
		{"title shim", "org-1", "m-1", access.RoleFAManager, nil, false},
		{"explicit claim wins", "org-1", "m-2", access.RoleFAManager, nil, false},
		{"ambiguous title", "org-1", "m-3", access.RoleNone, nil, true},
		{"member of another org", "org-2", "m-1", access.RoleNone, entity.ErrForbidden, false},
		{"missing member id", "org-1", "", access.RoleNone, entity.ErrForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, err := svc.ResolveActor(context.Background(), tt.org, tt.member)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if actor.Role != tt.wantRole {
				t.Errorf("Role = %s, want %s", actor.Role, tt.wantRole)
			}
			if (actor.RoleErr != nil) != tt.roleErr {
				t.Errorf("RoleErr = %v, want error %v", actor.RoleErr, tt.roleErr)
			}
			if actor.OrganizationID != tt.org || actor.ID != tt.member {
				t.Errorf("actor = %+v", actor)
			}
		})
	}
}
