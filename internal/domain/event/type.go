package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequisitionCreated       Type = "requisition.created"
	TypeRequisitionStatusChanged Type = "requisition.status_changed"
	TypeTransferCreated          Type = "transfer.created"
	TypeTransferStatusChanged    Type = "transfer.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequisitionCreated,
		TypeRequisitionStatusChanged,
		TypeTransferCreated,
		TypeTransferStatusChanged:
		return true
	default:
		return false
	}
}
