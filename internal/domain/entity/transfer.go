package entity

import "time"

// TransferStatus is the lifecycle stage of an asset transfer
type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferApproved  TransferStatus = "APPROVED"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// TransferStatuses lists every asset transfer status
var TransferStatuses = []TransferStatus{
	TransferPending,
	TransferApproved,
	TransferCompleted,
	TransferCancelled,
}

// String returns the string representation of the status
func (s TransferStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the defined values
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferPending, TransferApproved, TransferCompleted, TransferCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for COMPLETED and CANCELLED
func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// Reached reports whether s is stage or lies past it. Terminal statuses have
// reached every stage.
func (s TransferStatus) Reached(stage TransferStatus) bool {
	if s == stage || s.IsTerminal() {
		return true
	}
	return s == TransferApproved && stage == TransferPending
}

// Predecessor returns the only status a forward transition into s may start from
func (s TransferStatus) Predecessor() (TransferStatus, bool) {
	switch s {
	case TransferApproved:
		return TransferPending, true
	case TransferCompleted:
		return TransferApproved, true
	default:
		return "", false
	}
}

// AssetTransfer moves a fixed asset between departments
type AssetTransfer struct {
	ID               string         `json:"id"`
	OrganizationID   string         `json:"organization_id"`
	AssetID          string         `json:"asset_id"`
	FromDepartmentID string         `json:"from_department_id"`
	ToDepartmentID   string         `json:"to_department_id"`
	RequesterID      string         `json:"requester_id"`
	Reason           string         `json:"reason,omitempty"`
	Status           TransferStatus `json:"status"`
	ApprovedBy       string         `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
