package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billbatista/brofinance/eventlogger"
	"github.com/billbatista/brofinance/ledger"
	"github.com/billbatista/brofinance/settlement"
)

// Create submits the draft as a single record (solo) or a batch (shared).
// On failure the draft is left untouched for another try.
func (d *Dashboard) Create(ctx context.Context, draft ledger.Draft) error {
	userID, err := d.userID()
	if err != nil {
		return err
	}
	if draft.CategoryName == "" {
		if c, ok := d.Category(draft.CategoryID); ok {
			draft.CategoryID = c.ID
			draft.CategoryName = c.Description
		}
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	var participants []string
	if draft.Mode == ledger.ModeSolo {
		_, err = d.svc.CreateCompra(ctx, draft.Solo())
	} else {
		batch := draft.Batch()
		for _, b := range batch.Deudores {
			participants = append(participants, b.DeudorID)
		}
		_, err = d.svc.CreateCompraBatch(ctx, batch)
	}
	if err != nil {
		return err
	}

	d.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(ledger.EventCreated),
		eventlogger.WithUser(userID),
		eventlogger.WithData(ledger.CreatedEvent{
			Description:  draft.Descripcion(),
			Total:        draft.Total,
			CategoryID:   draft.CategoryID,
			Participants: participants,
			CreatedBy:    userID,
			CreatedAt:    time.Now(),
		}),
	))
	return d.Refresh(ctx)
}

// EditResult tells the caller the debtor has to accept the expense again.
type EditResult struct {
	NeedsReaccept bool
}

func (d *Dashboard) Edit(ctx context.Context, id string, in ledger.UpdateInput) (EditResult, error) {
	userID, err := d.userID()
	if err != nil {
		return EditResult{}, err
	}
	e, ok := d.Find(id)
	if !ok {
		return EditResult{}, fmt.Errorf("%w: %s", ErrUnknownExpense, id)
	}
	if !e.CanEdit(userID) {
		return EditResult{}, ErrEditNotAllowed
	}
	if in.Empty() {
		return EditResult{}, ErrNothingToUpdate
	}
	if in.MontoTotal != nil && !in.MontoTotal.IsPositive() {
		return EditResult{}, ErrInvalidTotal
	}

	res := EditResult{NeedsReaccept: e.EditNeedsReaccept()}
	if _, err := d.svc.UpdateCompra(ctx, id, in); err != nil {
		return EditResult{}, err
	}

	d.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(ledger.EventUpdated),
		eventlogger.WithUser(userID),
		eventlogger.WithData(ledger.UpdatedEvent{ExpenseID: id, ActorID: userID, NeedsAccept: res.NeedsReaccept}),
	))
	return res, d.Refresh(ctx)
}

func (d *Dashboard) Accept(ctx context.Context, id string) error {
	return d.apply(ctx, id, ledger.ActionAccept)
}

func (d *Dashboard) Reject(ctx context.Context, id string) error {
	return d.apply(ctx, id, ledger.ActionReject)
}

func (d *Dashboard) RequestPayment(ctx context.Context, id string) error {
	return d.apply(ctx, id, ledger.ActionRequestPayment)
}

func (d *Dashboard) ConfirmPayment(ctx context.Context, id string) error {
	return d.apply(ctx, id, ledger.ActionConfirmPayment)
}

func (d *Dashboard) RejectPayment(ctx context.Context, id string) error {
	return d.apply(ctx, id, ledger.ActionRejectPayment)
}

// Apply runs any lifecycle action by name.
func (d *Dashboard) Apply(ctx context.Context, id string, action ledger.Action) error {
	return d.apply(ctx, id, action)
}

// apply checks the transition locally, sends it, then refetches. Accepting
// and confirming move the balance, so the user is refreshed too.
func (d *Dashboard) apply(ctx context.Context, id string, action ledger.Action) error {
	userID, err := d.userID()
	if err != nil {
		return err
	}
	e, ok := d.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExpense, id)
	}
	role := e.RoleOf(userID)
	to, err := ledger.Next(e.State, action, role)
	if err != nil {
		return err
	}

	if _, err := d.svc.Transition(ctx, id, action); err != nil {
		return err
	}

	d.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(action.EventType()),
		eventlogger.WithUser(userID),
		eventlogger.WithData(ledger.TransitionEvent{
			ExpenseID: id,
			From:      e.State.Effective(),
			To:        to,
			ActorID:   userID,
			Role:      role.String(),
		}),
	))

	if err := d.Refresh(ctx); err != nil {
		return err
	}
	if action == ledger.ActionAccept || action == ledger.ActionConfirmPayment {
		if _, err := d.session.RefreshUser(ctx); err != nil {
			d.logger.Warn("failed to refresh user after transition", "action", action, "error", err)
		}
	}
	return nil
}

// Transfer returns the bank details for paying everything owed to creditorID.
func (d *Dashboard) Transfer(ctx context.Context, creditorID string) (*settlement.TransferInfo, ledger.CreditorDebt, error) {
	userID, err := d.userID()
	if err != nil {
		return nil, ledger.CreditorDebt{}, err
	}
	debt, ok := ledger.DebtTo(d.Expenses(), userID, creditorID)
	if !ok {
		return nil, ledger.CreditorDebt{}, settlement.ErrNothingToSettle
	}
	info, err := d.flow.Info(ctx, creditorID, debt.ExpenseIDs)
	if err != nil {
		return nil, debt, err
	}
	return info, debt, nil
}

// SettleAll fetches the transfer details and marks every expense owed to
// creditorID as paid. Failed marks come back as a *settlement.MarkError and
// the list is refetched either way.
func (d *Dashboard) SettleAll(ctx context.Context, creditorID string) (*settlement.TransferInfo, error) {
	info, debt, err := d.Transfer(ctx, creditorID)
	if err != nil {
		return nil, err
	}
	userID, err := d.userID()
	if err != nil {
		return info, err
	}
	owed := make([]ledger.Expense, 0, len(debt.ExpenseIDs))
	for _, id := range debt.ExpenseIDs {
		if e, ok := d.Find(id); ok {
			owed = append(owed, e)
		}
	}
	markErr := d.flow.MarkPaid(ctx, userID, owed)
	if err := d.Refresh(ctx); err != nil {
		return info, errors.Join(markErr, err)
	}
	return info, markErr
}
