package ledger

import (
	"errors"
	"fmt"
)

// Action is a lifecycle transition. Values match the server's path segments.
type Action string

const (
	ActionAccept         Action = "accept"
	ActionReject         Action = "reject"
	ActionRequestPayment Action = "request-payment"
	ActionConfirmPayment Action = "confirm-payment"
	ActionRejectPayment  Action = "reject-payment"
)

// Role is the set of sides a user plays in an expense. On a personal expense
// the user is both.
type Role int

const (
	RoleDebtor Role = 1 << iota
	RoleCreditor
)

func (r Role) Has(o Role) bool {
	return r&o == o && o != 0
}

func (r Role) String() string {
	switch r {
	case RoleDebtor:
		return "debtor"
	case RoleCreditor:
		return "creditor"
	case RoleDebtor | RoleCreditor:
		return "debtor and creditor"
	}
	return "outsider"
}

var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrNotAllowed        = errors.New("action not allowed for this user")
)

type transition struct {
	from  State
	to    State
	actor Role
}

var transitions = map[Action]transition{
	ActionAccept:         {from: StatePending, to: StateAccepted, actor: RoleDebtor},
	ActionReject:         {from: StatePending, to: StateRejected, actor: RoleDebtor},
	ActionRequestPayment: {from: StateAccepted, to: StatePaymentPending, actor: RoleDebtor},
	ActionConfirmPayment: {from: StatePaymentPending, to: StatePaid, actor: RoleCreditor},
	ActionRejectPayment:  {from: StatePaymentPending, to: StateAccepted, actor: RoleCreditor},
}

// Actions lists every action in table order.
var Actions = []Action{
	ActionAccept,
	ActionReject,
	ActionRequestPayment,
	ActionConfirmPayment,
	ActionRejectPayment,
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := transitions[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Next returns the state reached by applying action from current when
// performed by role.
func Next(current State, action Action, role Role) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	from := current.Effective()
	if from != t.from {
		return current, fmt.Errorf("%w: can't %s an expense in state %s", ErrIllegalTransition, action, from)
	}
	if !role.Has(t.actor) {
		return current, fmt.Errorf("%w: only the %s can %s", ErrNotAllowed, t.actor, action)
	}
	return t.to, nil
}

func (e Expense) RoleOf(userID string) Role {
	var r Role
	if userID == "" {
		return r
	}
	if e.Debtor.ID == userID {
		r |= RoleDebtor
	}
	if e.Creditor.ID == userID {
		r |= RoleCreditor
	}
	return r
}

// Allowed checks whether userID may apply action to the expense right now.
func (e Expense) Allowed(action Action, userID string) error {
	_, err := Next(e.State, action, e.RoleOf(userID))
	return err
}

// AvailableActions lists what userID can do with the expense.
func (e Expense) AvailableActions(userID string) []Action {
	var out []Action
	for _, a := range Actions {
		if e.Allowed(a, userID) == nil {
			out = append(out, a)
		}
	}
	return out
}

// CanEdit: only the creditor, and never mid-settlement.
func (e Expense) CanEdit(userID string) bool {
	if !e.RoleOf(userID).Has(RoleCreditor) {
		return false
	}
	switch e.State.Effective() {
	case StatePaid, StatePaymentPending:
		return false
	}
	return true
}

// EditNeedsReaccept reports that editing will ask the debtor to accept again.
func (e Expense) EditNeedsReaccept() bool {
	return e.IsShared() && e.IsAccepted()
}
