// Package settlement pays off what the user owes a creditor: it fetches the
// bank details for a transfer and marks the expenses as paid.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/eventlogger"
	"github.com/billbatista/brofinance/ledger"
)

var ErrNothingToSettle = errors.New("no expenses selected")

type TransferInfo = api.TransferInfo

// Service is the part of the API a settlement needs.
type Service interface {
	TransferInfo(ctx context.Context, in api.TransferRequest) (*api.TransferInfo, error)
	RequestPayment(ctx context.Context, id string) (*ledger.Expense, error)
}

type Flow struct {
	svc    Service
	events eventlogger.Recorder
}

type Option func(*Flow)

// WithRecorder logs a payment request event per marked expense.
func WithRecorder(r eventlogger.Recorder) Option {
	return func(f *Flow) {
		f.events = r
	}
}

func NewFlow(svc Service, opts ...Option) *Flow {
	f := &Flow{svc: svc, events: eventlogger.Discard}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Info returns the transfer details for paying creditorID the given expenses.
func (f *Flow) Info(ctx context.Context, creditorID string, expenseIDs []string) (*TransferInfo, error) {
	if len(expenseIDs) == 0 {
		return nil, ErrNothingToSettle
	}
	info, err := f.svc.TransferInfo(ctx, api.TransferRequest{CreditorID: creditorID, ExpenseIDs: expenseIDs})
	if err != nil {
		return nil, fmt.Errorf("getting transfer info: %w", err)
	}
	return info, nil
}

// MarkError lists the expenses MarkPaid could not mark. The others went
// through and stay marked.
type MarkError struct {
	Errs []error
}

func (e *MarkError) Error() string {
	return errors.Join(e.Errs...).Error()
}

func (e *MarkError) Unwrap() []error {
	return e.Errs
}

// MarkPaid requests payment confirmation for every expense at once. Each one
// is checked against the lifecycle first; illegal ones are never sent.
// Failures come back as a *MarkError; expenses that did go through are not
// rolled back.
func (f *Flow) MarkPaid(ctx context.Context, userID string, expenses []ledger.Expense) error {
	if len(expenses) == 0 {
		return ErrNothingToSettle
	}

	var wg sync.WaitGroup
	errs := make([]error, len(expenses))
	for i, e := range expenses {
		if err := e.Allowed(ledger.ActionRequestPayment, userID); err != nil {
			errs[i] = fmt.Errorf("expense %s: %w", e.ID, err)
			continue
		}
		wg.Go(func() {
			if _, err := f.svc.RequestPayment(ctx, e.ID); err != nil {
				errs[i] = fmt.Errorf("expense %s: %w", e.ID, err)
				return
			}
			f.events.Log(eventlogger.NewEvent(
				eventlogger.WithType(ledger.ActionRequestPayment.EventType()),
				eventlogger.WithUser(userID),
				eventlogger.WithData(ledger.TransitionEvent{
					ExpenseID: e.ID,
					From:      e.State.Effective(),
					To:        ledger.StatePaymentPending,
					ActorID:   userID,
					Role:      ledger.RoleDebtor.String(),
				}),
			))
		})
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &MarkError{Errs: failed}
}

// Failed counts the expenses that could not be marked. Errors that don't
// come from MarkPaid count as none.
func Failed(err error) int {
	var markErr *MarkError
	if errors.As(err, &markErr) {
		return len(markErr.Errs)
	}
	return 0
}
