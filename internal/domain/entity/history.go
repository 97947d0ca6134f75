package entity

import "time"

// Subject types recorded in the transition history
const (
	SubjectRequisition   = "requisition"
	SubjectAssetTransfer = "asset_transfer"
)

// History actions
const (
	ActionCreate  = "CREATE"
	ActionAdvance = "ADVANCE"
	ActionReject  = "REJECT"
	ActionCancel  = "CANCEL"
)

// TransitionRecord is one row of the audit trail of a workflow subject
type TransitionRecord struct {
	ID             int64     `json:"id"`
	SubjectType    string    `json:"subject_type"`
	SubjectID      string    `json:"subject_id"`
	ActorID        string    `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
}
