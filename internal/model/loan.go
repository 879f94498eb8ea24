package model

import (
	"fmt"
	"time"
)

// LoanPeriod is how long an approved loan runs before it is due.
const LoanPeriod = 7 * 24 * time.Hour

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

// Loan statuses.
const (
	LoanPending  LoanStatus = "pending"
	LoanApproved LoanStatus = "approved"
	LoanRejected LoanStatus = "rejected"
	LoanReturned LoanStatus = "returned"
)

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanApproved, LoanRejected, LoanReturned:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s LoanStatus) Terminal() bool {
	return s == LoanRejected || s == LoanReturned
}

// Action is a staff operation applied to a loan.
type Action string

// Actions.
const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionReturn  Action = "return"
)

// StockDelta is the change an action makes to the item's available stock.
func (a Action) StockDelta() int {
	switch a {
	case ActionApprove:
		return -1
	case ActionReturn:
		return 1
	}
	return 0
}

type transitionKey struct {
	from   LoanStatus
	action Action
}

// transitions is the complete table of allowed moves. Anything missing is rejected.
var transitions = map[transitionKey]LoanStatus{
	{LoanPending, ActionApprove}: LoanApproved,
	{LoanPending, ActionReject}:  LoanRejected,
	{LoanApproved, ActionReturn}: LoanReturned,
}

// Next returns the status reached by applying action to a loan in status from.
func Next(from LoanStatus, action Action) (LoanStatus, error) {
	to, ok := transitions[transitionKey{from, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s loan", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// Loan is a single borrow request for one item by one borrower.
type Loan struct {
	ID          string     `json:"id"`
	ItemID      string     `json:"itemId"`
	BorrowerUID string     `json:"borrowerUid"`
	Status      LoanStatus `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	DueAt       *time.Time `json:"dueAt"`
	ReturnedAt  *time.Time `json:"returnedAt"`
	Version     int64      `json:"version"`
}

// LoanOrder selects the sort key and direction of a loan query.
type LoanOrder struct {
	Field      LoanField
	Descending bool
}

// LoanField is a sortable loan timestamp.
type LoanField string

// Sortable fields.
const (
	FieldRequestedAt LoanField = "requestedAt"
	FieldDueAt       LoanField = "dueAt"
	FieldReturnedAt  LoanField = "returnedAt"
)

// Time returns the value of field f on l. Unset timestamps are the zero time.
func (l *Loan) Time(f LoanField) time.Time {
	switch f {
	case FieldDueAt:
		if l.DueAt != nil {
			return *l.DueAt
		}
	case FieldReturnedAt:
		if l.ReturnedAt != nil {
			return *l.ReturnedAt
		}
	default:
		return l.RequestedAt
	}
	return time.Time{}
}

// Transition is the result of applying an action: the updated loan and, when
// stock moved, the updated item. The versions identify the records the
// update was computed from.
type Transition struct {
	Loan        Loan
	LoanVersion int64
	Item        *Item
	ItemVersion int64
}
