package entity

import "testing"

func TestRequisitionStatus_IsValid(t *testing.T) {
	for _, s := range RequisitionStatuses {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false, want true", s)
		}
	}
	for _, s := range []RequisitionStatus{"", "PENDING", "pending_fa", "APPROVED"} {
		if s.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", s)
		}
	}
}

func TestRequisitionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   RequisitionStatus
		expected bool
	}{
		{RequisitionPendingSupervisor, false},
		{RequisitionPendingFA, false},
		{RequisitionPendingGM, false},
		{RequisitionPendingWarehouse, false},
		{RequisitionCompleted, true},
		{RequisitionRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRequisitionStatus_Predecessor(t *testing.T) {
	tests := []struct {
		status RequisitionStatus
		want   RequisitionStatus
		ok     bool
	}{
		{RequisitionPendingSupervisor, "", false},
		{RequisitionPendingFA, RequisitionPendingSupervisor, true},
		{RequisitionPendingGM, RequisitionPendingFA, true},
		{RequisitionPendingWarehouse, RequisitionPendingGM, true},
		{RequisitionCompleted, RequisitionPendingWarehouse, true},
		{RequisitionRejected, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got, ok := tt.status.Predecessor()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Predecessor() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRequisitionStatus_Reached(t *testing.T) {
	tests := []struct {
		status RequisitionStatus
		stage  RequisitionStatus
		want   bool
	}{
		{RequisitionPendingSupervisor, RequisitionPendingSupervisor, true},
		{RequisitionPendingSupervisor, RequisitionPendingWarehouse, false},
		{RequisitionPendingGM, RequisitionPendingFA, true},
		{RequisitionPendingFA, RequisitionPendingGM, false},
		{RequisitionCompleted, RequisitionPendingWarehouse, true},
		{RequisitionRejected, RequisitionPendingGM, true},
	}

	for _, tt := range tests {
		if got := tt.status.Reached(tt.stage); got != tt.want {
			t.Errorf("%s.Reached(%s) = %v, want %v", tt.status, tt.stage, got, tt.want)
		}
	}
}

func TestTransferStatus_Reached(t *testing.T) {
	if TransferPending.Reached(TransferApproved) {
		t.Error("PENDING has not reached APPROVED")
	}
	if !TransferApproved.Reached(TransferPending) || !TransferCancelled.Reached(TransferApproved) {
		t.Error("APPROVED and CANCELLED should have reached earlier stages")
	}
}

func TestTransferStatus_IsTerminal(t *testing.T) {
	if TransferPending.IsTerminal() || TransferApproved.IsTerminal() {
		t.Error("PENDING and APPROVED should not be terminal")
	}
	if !TransferCompleted.IsTerminal() || !TransferCancelled.IsTerminal() {
		t.Error("COMPLETED and CANCELLED should be terminal")
	}
	if TransferStatus("DONE").IsValid() {
		t.Error("unknown transfer status should be invalid")
	}
}

func TestTransferStatus_Predecessor(t *testing.T) {
	if prev, ok := TransferApproved.Predecessor(); !ok || prev != TransferPending {
		t.Errorf("APPROVED predecessor = %s, %v", prev, ok)
	}
	if prev, ok := TransferCompleted.Predecessor(); !ok || prev != TransferApproved {
		t.Errorf("COMPLETED predecessor = %s, %v", prev, ok)
	}
	if _, ok := TransferCancelled.Predecessor(); ok {
		t.Error("CANCELLED should have no single predecessor")
	}
}
