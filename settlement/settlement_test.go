package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/eventlogger"
	"github.com/billbatista/brofinance/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu      sync.Mutex
	failing map[string]bool
	marked  []string
	lastReq api.TransferRequest
}

func (f *fakeService) TransferInfo(_ context.Context, in api.TransferRequest) (*api.TransferInfo, error) {
	f.lastReq = in
	if in.CreditorID == "nocbu" {
		return nil, &api.Error{StatusCode: 400, Message: "El acreedor no tiene CBU configurado"}
	}
	return &api.TransferInfo{CBU: "0000003100010000000001", Amount: decimal.NewFromInt(85), CreditorUsername: "alice"}, nil
}

func (f *fakeService) RequestPayment(_ context.Context, id string) (*ledger.Expense, error) {
	if f.failing[id] {
		return nil, &api.Error{StatusCode: 400, Message: "Transición inválida"}
	}
	f.mu.Lock()
	f.marked = append(f.marked, id)
	f.mu.Unlock()
	return &ledger.Expense{ID: id, State: ledger.StatePaymentPending}, nil
}

type recorder struct {
	mu     sync.Mutex
	events []eventlogger.Event
}

func (r *recorder) Log(e eventlogger.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestFlow_Info(t *testing.T) {
	svc := &fakeService{}
	f := NewFlow(svc)

	info, err := f.Info(context.Background(), "alice", []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, "0000003100010000000001", info.CBU)
	assert.Equal(t, []string{"c1", "c2"}, svc.lastReq.ExpenseIDs)

	_, err = f.Info(context.Background(), "nocbu", []string{"c1"})
	assert.Equal(t, "El acreedor no tiene CBU configurado", api.Message(err))

	_, err = f.Info(context.Background(), "alice", nil)
	assert.ErrorIs(t, err, ErrNothingToSettle)
}

func owed(state ledger.State, ids ...string) []ledger.Expense {
	out := make([]ledger.Expense, 0, len(ids))
	for _, id := range ids {
		out = append(out, ledger.Expense{
			ID:       id,
			State:    state,
			Creditor: ledger.Party{ID: "alice"},
			Debtor:   ledger.Party{ID: "bob"},
		})
	}
	return out
}

func TestFlow_MarkPaid(t *testing.T) {
	svc := &fakeService{}
	rec := &recorder{}
	f := NewFlow(svc, WithRecorder(rec))

	require.NoError(t, f.MarkPaid(context.Background(), "bob", owed(ledger.StateAccepted, "c1", "c2", "c3")))
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, svc.marked)
	require.Len(t, rec.events, 3)
	assert.Equal(t, ledger.EventPaymentRequest, rec.events[0].Type)
	assert.Equal(t, "bob", rec.events[0].Metadata["user_id"])

	assert.ErrorIs(t, f.MarkPaid(context.Background(), "bob", nil), ErrNothingToSettle)
}

func TestFlow_MarkPaidPartialFailure(t *testing.T) {
	svc := &fakeService{failing: map[string]bool{"c2": true, "c3": true}}
	f := NewFlow(svc)

	err := f.MarkPaid(context.Background(), "bob", owed(ledger.StateAccepted, "c1", "c2", "c3"))
	require.Error(t, err)
	assert.Equal(t, 2, Failed(err))
	assert.Contains(t, err.Error(), "expense c2: Transición inválida")

	var apiErr *api.Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"c1"}, svc.marked)
}

func TestFlow_MarkPaidChecksTransition(t *testing.T) {
	svc := &fakeService{}
	rec := &recorder{}
	f := NewFlow(svc, WithRecorder(rec))

	expenses := owed(ledger.StateAccepted, "c1")
	expenses = append(expenses, owed(ledger.StatePending, "c2")...)
	expenses = append(expenses, owed(ledger.StatePaymentPending, "c3")...)

	err := f.MarkPaid(context.Background(), "bob", expenses)
	require.Error(t, err)
	assert.Equal(t, 2, Failed(err))
	assert.ErrorIs(t, err, ledger.ErrIllegalTransition)
	assert.Equal(t, []string{"c1"}, svc.marked)
	assert.Len(t, rec.events, 1)

	// only the debtor may ask for the payment to be confirmed
	err = f.MarkPaid(context.Background(), "alice", owed(ledger.StateAccepted, "c4"))
	assert.ErrorIs(t, err, ledger.ErrNotAllowed)
	assert.Equal(t, 1, Failed(err))
	assert.Equal(t, []string{"c1"}, svc.marked)
}

func TestFailed(t *testing.T) {
	assert.Equal(t, 0, Failed(nil))
	assert.Equal(t, 0, Failed(errors.New("x")))
	assert.Equal(t, 0, Failed(ErrNothingToSettle))
	assert.Equal(t, 0, Failed(errors.Join(errors.New("getting transfer info: boom"), errors.New("refreshing: offline"))))

	markErr := &MarkError{Errs: []error{errors.New("expense c1: boom")}}
	assert.Equal(t, 1, Failed(markErr))
	assert.Equal(t, 1, Failed(errors.Join(markErr, errors.New("refreshing: offline"))))
}
