// Package access resolves who may act on which approval stage.
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// Role is an explicit approval permission claim
type Role string

const (
	RoleNone       Role = ""
	RoleSupervisor Role = "supervisor"
	RoleFAManager  Role = "fa_manager"
	RoleGM         Role = "gm"
	RoleWarehouse  Role = "warehouse"
)

// ErrAmbiguousRole is returned when a job title matches keywords of more than one role
var ErrAmbiguousRole = errors.New("ambiguous role")

// stages maps each role to the requisition status it may act on
var stages = map[Role]entity.RequisitionStatus{
	RoleSupervisor: entity.RequisitionPendingSupervisor,
	RoleFAManager:  entity.RequisitionPendingFA,
	RoleGM:         entity.RequisitionPendingGM,
	RoleWarehouse:  entity.RequisitionPendingWarehouse,
}

// titleKeywords is checked in this order; order only affects error messages
var titleKeywords = []struct {
	role     Role
	keywords []string
}{
	{RoleSupervisor, []string{"supervisor"}},
	{RoleFAManager, []string{"finance", "fa manager"}},
	{RoleGM, []string{"gm", "general manager"}},
	{RoleWarehouse, []string{"admin", "warehouse"}},
}

// String returns the string representation of the role
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// IsValid returns true for the four approval roles
func (r Role) IsValid() bool {
	_, ok := stages[r]
	return ok
}

// Stage returns the requisition status this role acts on
func (r Role) Stage() (entity.RequisitionStatus, bool) {
	status, ok := stages[r]
	return status, ok
}

// RoleForStage returns the role authorized to act on a pending requisition status
func RoleForStage(status entity.RequisitionStatus) (Role, bool) {
	for role, stage := range stages {
		if stage == status {
			return role, true
		}
	}
	return RoleNone, false
}

// ParseRole parses an explicit role claim
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return RoleNone, fmt.Errorf("unknown role claim %q", s)
	}
	return role, nil
}

// ResolveTitle maps a free-text job title to a role by case-insensitive
// substring match. Kept for organizations that only record titles; explicit
// role claims take precedence (see ResolveMember).
func ResolveTitle(title string) (Role, error) {
	lower := strings.ToLower(title)

	var matched []Role
	for _, tk := range titleKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, tk.role)
				break
			}
		}
	}

	switch len(matched) {
	case 0:
		return RoleNone, nil
	case 1:
		return matched[0], nil
	default:
		return RoleNone, fmt.Errorf("%w: title %q matches %v", ErrAmbiguousRole, title, matched)
	}
}

// ResolveMember returns the member's role, preferring the explicit claim
func ResolveMember(m *entity.Member) (Role, error) {
	if m.RoleClaim != "" {
		return ParseRole(m.RoleClaim)
	}
	return ResolveTitle(m.Title)
}
