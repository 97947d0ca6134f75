package service

import (
	"context"
	"fmt"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// IdentityService resolves authenticated callers into workflow actors
type IdentityService interface {
	// ResolveActor looks the member up once per request and fixes its role
	ResolveActor(ctx context.Context, organizationID, memberID string) (access.Actor, error)
}

type identityServiceImpl struct {
	members port.MemberDirectory
	logger  Logger
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(members port.MemberDirectory, logger Logger) IdentityService {
	return &identityServiceImpl{
		members: members,
		logger:  logger,
	}
}

// ResolveActor returns ErrForbidden for callers that are not members of the organization
func (s *identityServiceImpl) ResolveActor(ctx context.Context, organizationID, memberID string) (access.Actor, error) {
	if organizationID == "" || memberID == "" {
		return access.Actor{}, fmt.Errorf("%w: missing organization or member", entity.ErrForbidden)
	}

	member, err := s.members.GetMember(ctx, organizationID, memberID)
	if err != nil {
		s.logger.Error("Failed to look up member", "error", err, "organization_id", organizationID, "member_id", memberID)
		return access.Actor{}, fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return access.Actor{}, fmt.Errorf("%w: %s is not a member of %s", entity.ErrForbidden, memberID, organizationID)
	}

	actor := access.NewActor(member)
	if actor.RoleErr != nil {
		// Still a valid actor: it may create and read, just not approve
		s.logger.Info("Member role unresolved", "member_id", memberID, "title", member.Title, "reason", actor.RoleErr.Error())
	}
	return actor, nil
}
