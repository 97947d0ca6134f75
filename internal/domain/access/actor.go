package access

import (
	"fmt"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// Actor is the request-scoped identity passed into workflow operations.
// It is resolved once at the identity boundary.
type Actor struct {
	ID             string
	OrganizationID string
	Role           Role
	// RoleErr records why the role could not be resolved (e.g. ambiguous title)
	RoleErr error
}

// NewActor builds an actor from a directory member
func NewActor(m *entity.Member) Actor {
	role, err := ResolveMember(m)
	return Actor{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Role:           role,
		RoleErr:        err,
	}
}

// Stage returns the requisition status the actor may act on
func (a Actor) Stage() (entity.RequisitionStatus, bool) {
	if a.RoleErr != nil {
		return "", false
	}
	return a.Role.Stage()
}

// Authorize returns ErrForbidden unless the actor acts on the given stage
func (a Actor) Authorize(status entity.RequisitionStatus) error {
	if a.RoleErr != nil {
		return fmt.Errorf("%w: %v", entity.ErrForbidden, a.RoleErr)
	}
	stage, ok := a.Role.Stage()
	if !ok || stage != status {
		return fmt.Errorf("%w: role %s cannot act on %s", entity.ErrForbidden, a.Role, status)
	}
	return nil
}

// HasRole returns true if the actor's role resolved to r
func (a Actor) HasRole(r Role) bool {
	return a.RoleErr == nil && a.Role == r
}
