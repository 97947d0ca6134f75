package entity

import "time"

// RequisitionStatus is the approval stage of a requisition
type RequisitionStatus string

const (
	RequisitionPendingSupervisor RequisitionStatus = "PENDING_SUPERVISOR"
	RequisitionPendingFA         RequisitionStatus = "PENDING_FA"
	RequisitionPendingGM         RequisitionStatus = "PENDING_GM"
	RequisitionPendingWarehouse  RequisitionStatus = "PENDING_WAREHOUSE"
	RequisitionCompleted         RequisitionStatus = "COMPLETED"
	RequisitionRejected          RequisitionStatus = "REJECTED"
)

// RequisitionStatuses lists every status in approval order
var RequisitionStatuses = []RequisitionStatus{
	RequisitionPendingSupervisor,
	RequisitionPendingFA,
	RequisitionPendingGM,
	RequisitionPendingWarehouse,
	RequisitionCompleted,
	RequisitionRejected,
}

// PendingRequisitionStatuses lists the statuses that wait on an approver
var PendingRequisitionStatuses = []RequisitionStatus{
	RequisitionPendingSupervisor,
	RequisitionPendingFA,
	RequisitionPendingGM,
	RequisitionPendingWarehouse,
}

// forward predecessor of each non-initial, non-rejected status
var requisitionPredecessors = map[RequisitionStatus]RequisitionStatus{
	RequisitionPendingFA:        RequisitionPendingSupervisor,
	RequisitionPendingGM:        RequisitionPendingFA,
	RequisitionPendingWarehouse: RequisitionPendingGM,
	RequisitionCompleted:        RequisitionPendingWarehouse,
}

// String returns the string representation of the status
func (s RequisitionStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the defined values
func (s RequisitionStatus) IsValid() bool {
	for _, status := range RequisitionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal returns true for COMPLETED and REJECTED
func (s RequisitionStatus) IsTerminal() bool {
	return s == RequisitionCompleted || s == RequisitionRejected
}

// Predecessor returns the only status a forward transition into s may start from.
// REJECTED and PENDING_SUPERVISOR have none.
func (s RequisitionStatus) Predecessor() (RequisitionStatus, bool) {
	prev, ok := requisitionPredecessors[s]
	return prev, ok
}

// Reached reports whether s is stage or lies past it on the approval chain.
// Terminal statuses have reached every stage.
func (s RequisitionStatus) Reached(stage RequisitionStatus) bool {
	if s == stage || s.IsTerminal() {
		return true
	}
	return requisitionRank(s) > requisitionRank(stage)
}

func requisitionRank(s RequisitionStatus) int {
	for i, status := range PendingRequisitionStatuses {
		if s == status {
			return i
		}
	}
	return len(PendingRequisitionStatuses)
}

// Requisition is a stock request moving through the approval chain
type Requisition struct {
	ID             string            `json:"id"`
	RequesterID    string            `json:"requester_id"`
	OrganizationID string            `json:"organization_id"`
	Remarks        string            `json:"remarks,omitempty"`
	WarehouseID    string            `json:"warehouse_id,omitempty"`
	Status         RequisitionStatus `json:"status"`

	SupervisorAckBy string     `json:"supervisor_ack_by,omitempty"`
	SupervisorAckAt *time.Time `json:"supervisor_ack_at,omitempty"`
	FAManagerAckBy  string     `json:"fa_manager_ack_by,omitempty"`
	FAManagerAckAt  *time.Time `json:"fa_manager_ack_at,omitempty"`
	GMApprovedBy    string     `json:"gm_approved_by,omitempty"`
	GMApprovedAt    *time.Time `json:"gm_approved_at,omitempty"`

	Items     []RequisitionItem `json:"items,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RequisitionItem is one requested catalog item and its quantity
type RequisitionItem struct {
	ID            int64  `json:"id"`
	RequisitionID string `json:"requisition_id"`
	ItemID        string `json:"item_id"`
	Quantity      int    `json:"quantity"`
}

// RequisitionFilter narrows requisition listings within one organization
type RequisitionFilter struct {
	OrganizationID string
	Status         RequisitionStatus // empty means any
	Limit          int
	Offset         int
}
