package service

import (
	"context"
	"fmt"

	"github.com/garyjia/erp-requisitions/internal/application/dispatcher"
	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/access"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
	"github.com/garyjia/erp-requisitions/internal/domain/event"
)

// NotificationService tells members about requisitions that need them
type NotificationService interface {
	// NotifyApprovers messages every member whose role acts on the requisition's current stage
	NotifyApprovers(ctx context.Context, organizationID, requisitionID string) error

	// NotifyRequester messages the requester once the requisition is closed
	NotifyRequester(ctx context.Context, organizationID, requisitionID string) error

	// Register subscribes the service to requisition events
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	members         port.MemberDirectory
	messageSender   port.MessageSender
	logger          Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	requisitionRepo port.RequisitionRepository,
	members port.MemberDirectory,
	messageSender port.MessageSender,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		requisitionRepo: requisitionRepo,
		members:         members,
		messageSender:   messageSender,
		logger:          logger,
	}
}

// Register subscribes the service to requisition events
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeRequisitionCreated, "notify-approvers", s.handleEvent)
	d.SubscribeNamed(event.TypeRequisitionStatusChanged, "notify-approvers", s.handleEvent)
}

func (s *notificationServiceImpl) handleEvent(ctx context.Context, evt *event.Event) error {
	status := entity.RequisitionStatus(evt.GetPayloadString(event.KeyNewStatus))
	if status.IsTerminal() {
		return s.NotifyRequester(ctx, evt.OrganizationID, evt.SubjectID)
	}
	return s.NotifyApprovers(ctx, evt.OrganizationID, evt.SubjectID)
}

// NotifyApprovers messages every member whose role acts on the requisition's current stage
func (s *notificationServiceImpl) NotifyApprovers(ctx context.Context, organizationID, requisitionID string) error {
	req, err := s.loadRequisition(ctx, organizationID, requisitionID)
	if err != nil {
		return err
	}

	role, ok := access.RoleForStage(req.Status)
	if !ok {
		return nil
	}

	members, err := s.members.ListMembers(ctx, organizationID)
	if err != nil {
		s.logger.Error("Failed to list members", "error", err, "organization_id", organizationID)
		return fmt.Errorf("list members: %w", err)
	}

	message := fmt.Sprintf("Requisition %s is waiting for your review (%s).", req.ID, stageLabel(req.Status))

	sent, failed := 0, 0
	for _, m := range members {
		if m.LarkOpenID == "" {
			continue
		}
		if r, err := access.ResolveMember(m); err != nil || r != role {
			continue
		}
		if err := s.messageSender.SendText(ctx, m.LarkOpenID, message); err != nil {
			failed++
			s.logger.Error("Failed to notify approver", "error", err, "requisition_id", req.ID, "member_id", m.ID)
			continue
		}
		sent++
	}

	s.logger.Info("Approvers notified",
		"requisition_id", req.ID,
		"status", req.Status.String(),
		"sent", sent,
		"failed", failed,
	)

	if failed > 0 && sent == 0 {
		return fmt.Errorf("notify approvers of %s: all %d messages failed", req.ID, failed)
	}
	return nil
}

// NotifyRequester messages the requester once the requisition is closed
func (s *notificationServiceImpl) NotifyRequester(ctx context.Context, organizationID, requisitionID string) error {
	req, err := s.loadRequisition(ctx, organizationID, requisitionID)
	if err != nil {
		return err
	}

	requester, err := s.members.GetMember(ctx, organizationID, req.RequesterID)
	if err != nil {
		return fmt.Errorf("get requester: %w", err)
	}
	if requester == nil || requester.LarkOpenID == "" {
		s.logger.Info("Requester has no chat account, skipping", "requisition_id", req.ID, "requester_id", req.RequesterID)
		return nil
	}

	var message string
	switch req.Status {
	case entity.RequisitionCompleted:
		message = fmt.Sprintf("Your requisition %s has been fulfilled.", req.ID)
	case entity.RequisitionRejected:
		message = fmt.Sprintf("Your requisition %s was rejected.", req.ID)
	default:
		return nil
	}

	if err := s.messageSender.SendText(ctx, requester.LarkOpenID, message); err != nil {
		s.logger.Error("Failed to notify requester", "error", err, "requisition_id", req.ID)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *notificationServiceImpl) loadRequisition(ctx context.Context, organizationID, requisitionID string) (*entity.Requisition, error) {
	req, err := s.requisitionRepo.GetByID(ctx, organizationID, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("get requisition: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: requisition %s", entity.ErrNotFound, requisitionID)
	}
	return req, nil
}

func stageLabel(status entity.RequisitionStatus) string {
	switch status {
	case entity.RequisitionPendingSupervisor:
		return "supervisor acknowledgement"
	case entity.RequisitionPendingFA:
		return "finance review"
	case entity.RequisitionPendingGM:
		return "general manager approval"
	case entity.RequisitionPendingWarehouse:
		return "warehouse fulfilment"
	default:
		return status.String()
	}
}
