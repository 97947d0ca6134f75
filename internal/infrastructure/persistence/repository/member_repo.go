package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	"github.com/garyjia/erp-requisitions/internal/infrastructure/persistence/sqlite"
)

// MemberRepository implements port.MemberDirectory
type MemberRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{
		db:     db,
		logger: logger,
	}
}

// GetMember returns nil, nil when the member is unknown in the organization
func (r *MemberRepository) GetMember(ctx context.Context, organizationID, memberID string) (*entity.Member, error) {
	var m entity.Member
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, organization_id, name, title, role_claim, lark_open_id
		FROM members
		WHERE organization_id = ? AND id = ?`, organizationID, memberID,
	).Scan(&m.ID, &m.OrganizationID, &m.Name, &m.Title, &m.RoleClaim, &m.LarkOpenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get member", zap.String("member_id", memberID), zap.Error(err))
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// ListMembers returns all members of an organization ordered by id
func (r *MemberRepository) ListMembers(ctx context.Context, organizationID string) ([]*entity.Member, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, `
		SELECT id, organization_id, name, title, role_claim, lark_open_id
		FROM members
		WHERE organization_id = ?
		ORDER BY id`, organizationID)
	if err != nil {
		r.logger.Error("Failed to list members", zap.String("organization_id", organizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*entity.Member
	for rows.Next() {
		var m entity.Member
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.Name, &m.Title, &m.RoleClaim, &m.LarkOpenID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// Organizations returns the distinct organization ids that have members
func (r *MemberRepository) Organizations(ctx context.Context) ([]string, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx,
		`SELECT DISTINCT organization_id FROM members ORDER BY organization_id`)
	if err != nil {
		r.logger.Error("Failed to list organizations", zap.Error(err))
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, id)
	}
	return orgs, rows.Err()
}

// Upsert adds a member or refreshes its title, claim and chat account
func (r *MemberRepository) Upsert(ctx context.Context, m *entity.Member) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO members (id, organization_id, name, title, role_claim, lark_open_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, id) DO UPDATE SET
			name = excluded.name,
			title = excluded.title,
			role_claim = excluded.role_claim,
			lark_open_id = excluded.lark_open_id`,
		m.ID, m.OrganizationID, m.Name, m.Title, m.RoleClaim, m.LarkOpenID)
	if err != nil {
		r.logger.Error("Failed to upsert member", zap.String("member_id", m.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.MemberDirectory = (*MemberRepository)(nil)
