package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		action  Action
		role    Role
		want    State
		wantErr error
	}{
		{name: "debtor accepts", from: StatePending, action: ActionAccept, role: RoleDebtor, want: StateAccepted},
		{name: "debtor rejects", from: StatePending, action: ActionReject, role: RoleDebtor, want: StateRejected},
		{name: "debtor requests payment", from: StateAccepted, action: ActionRequestPayment, role: RoleDebtor, want: StatePaymentPending},
		{name: "legacy unset state is accepted", from: "", action: ActionRequestPayment, role: RoleDebtor, want: StatePaymentPending},
		{name: "creditor confirms", from: StatePaymentPending, action: ActionConfirmPayment, role: RoleCreditor, want: StatePaid},
		{name: "creditor rejects payment", from: StatePaymentPending, action: ActionRejectPayment, role: RoleCreditor, want: StateAccepted},
		{name: "creditor can't accept", from: StatePending, action: ActionAccept, role: RoleCreditor, wantErr: ErrNotAllowed},
		{name: "debtor can't confirm", from: StatePaymentPending, action: ActionConfirmPayment, role: RoleDebtor, wantErr: ErrNotAllowed},
		{name: "outsider can't act", from: StatePending, action: ActionAccept, wantErr: ErrNotAllowed},
		{name: "can't skip to paid", from: StateAccepted, action: ActionConfirmPayment, role: RoleCreditor, wantErr: ErrIllegalTransition},
		{name: "rejected is final", from: StateRejected, action: ActionAccept, role: RoleDebtor, wantErr: ErrIllegalTransition},
		{name: "paid is final", from: StatePaid, action: ActionRejectPayment, role: RoleCreditor, wantErr: ErrIllegalTransition},
		{name: "unknown action", from: StatePending, action: "cancel", role: RoleDebtor, wantErr: ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.action, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaidOnlyFromPaymentPending(t *testing.T) {
	states := []State{StatePending, StateAccepted, StateRejected, StatePaymentPending, StatePaid}
	roles := []Role{RoleDebtor, RoleCreditor, RoleDebtor | RoleCreditor}

	for _, from := range states {
		for _, a := range Actions {
			for _, r := range roles {
				to, err := Next(from, a, r)
				if err != nil || to != StatePaid {
					continue
				}
				assert.Equal(t, StatePaymentPending, from, "%s reached pagado via %s", from, a)
			}
		}
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("confirm-payment")
	require.NoError(t, err)
	assert.Equal(t, ActionConfirmPayment, a)

	_, err = ParseAction("pay")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestExpense_AvailableActions(t *testing.T) {
	e := Expense{
		ID:       "c1",
		Creditor: Party{ID: "alice"},
		Debtor:   Party{ID: "bob"},
		State:    StatePending,
	}

	assert.Equal(t, []Action{ActionAccept, ActionReject}, e.AvailableActions("bob"))
	assert.Empty(t, e.AvailableActions("alice"))
	assert.Empty(t, e.AvailableActions("carol"))

	e.State = StatePaymentPending
	assert.Equal(t, []Action{ActionConfirmPayment, ActionRejectPayment}, e.AvailableActions("alice"))
	assert.Empty(t, e.AvailableActions("bob"))
}

func TestExpense_RoleOf(t *testing.T) {
	personal := Expense{Creditor: Party{ID: "alice"}, Debtor: Party{ID: "alice"}}
	assert.True(t, personal.RoleOf("alice").Has(RoleDebtor))
	assert.True(t, personal.RoleOf("alice").Has(RoleCreditor))
	assert.Equal(t, Role(0), personal.RoleOf(""))
	assert.Equal(t, "outsider", personal.RoleOf("bob").String())
}

func TestExpense_CanEdit(t *testing.T) {
	tests := []struct {
		state State
		user  string
		want  bool
	}{
		{state: StatePending, user: "alice", want: true},
		{state: StateAccepted, user: "alice", want: true},
		{state: StateRejected, user: "alice", want: true},
		{state: StatePaymentPending, user: "alice", want: false},
		{state: StatePaid, user: "alice", want: false},
		{state: StatePending, user: "bob", want: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.state)+"/"+tt.user, func(t *testing.T) {
			e := Expense{Creditor: Party{ID: "alice"}, Debtor: Party{ID: "bob"}, State: tt.state}
			assert.Equal(t, tt.want, e.CanEdit(tt.user))
		})
	}
}

func TestExpense_EditNeedsReaccept(t *testing.T) {
	shared := Expense{Creditor: Party{ID: "alice"}, Debtor: Party{ID: "bob"}}
	assert.True(t, shared.EditNeedsReaccept())

	shared.State = StatePending
	assert.False(t, shared.EditNeedsReaccept())

	personal := Expense{Creditor: Party{ID: "alice"}, Debtor: Party{ID: "alice"}}
	assert.False(t, personal.EditNeedsReaccept())
}

func TestAction_EventType(t *testing.T) {
	for _, a := range Actions {
		assert.NotEmpty(t, a.EventType(), a)
	}
}
