package model

import (
	"errors"
	"testing"
	"time"
)

func TestNextTransitionTable(t *testing.T) {
	statuses := []LoanStatus{LoanPending, LoanApproved, LoanRejected, LoanReturned}
	actions := []Action{ActionApprove, ActionReject, ActionReturn}

	allowed := map[LoanStatus]map[Action]LoanStatus{
		LoanPending:  {ActionApprove: LoanApproved, ActionReject: LoanRejected},
		LoanApproved: {ActionReturn: LoanReturned},
	}

	for _, from := range statuses {
		for _, action := range actions {
			got, err := Next(from, action)
			want, ok := allowed[from][action]
			if ok {
				if err != nil {
					t.Errorf("Next(%s, %s): unexpected error %v", from, action, err)
				} else if got != want {
					t.Errorf("Next(%s, %s) = %s, want %s", from, action, got, want)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Next(%s, %s): expected ErrInvalidTransition, got %v", from, action, err)
			}
		}
	}
}

func TestNextUnknownAction(t *testing.T) {
	if _, err := Next(LoanPending, Action("cancel")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for unknown action, got %v", err)
	}
}

func TestTerminalStatuses(t *testing.T) {
	if LoanPending.Terminal() || LoanApproved.Terminal() {
		t.Error("pending and approved must not be terminal")
	}
	if !LoanRejected.Terminal() || !LoanReturned.Terminal() {
		t.Error("rejected and returned must be terminal")
	}
	if LoanStatus("lost").Valid() {
		t.Error("unknown status reported as valid")
	}
}

func TestLoanTime(t *testing.T) {
	req := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	due := req.Add(LoanPeriod)
	l := &Loan{RequestedAt: req, DueAt: &due}

	if !l.Time(FieldRequestedAt).Equal(req) {
		t.Errorf("requestedAt = %v, want %v", l.Time(FieldRequestedAt), req)
	}
	if !l.Time(FieldDueAt).Equal(due) {
		t.Errorf("dueAt = %v, want %v", l.Time(FieldDueAt), due)
	}
	if !l.Time(FieldReturnedAt).IsZero() {
		t.Errorf("unset returnedAt should be zero, got %v", l.Time(FieldReturnedAt))
	}
}

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		wantErr bool
	}{
		{"Projector", 3, false},
		{"Cable", 0, false},
		{"", 1, true},
		{"   ", 1, true},
		{"Camera", -1, true},
	}

	for _, tt := range tests {
		err := ValidateItem(tt.name, tt.total)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateItem(%q, %d) error = %v, wantErr %v", tt.name, tt.total, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidItem) {
			t.Errorf("ValidateItem(%q, %d) error should wrap ErrInvalidItem", tt.name, tt.total)
		}
	}
}
