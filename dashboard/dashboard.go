// Package dashboard is the expense list view model: it fetches, filters and
// summarizes the user's expenses and runs every mutation followed by a refetch.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/eventlogger"
	"github.com/billbatista/brofinance/ledger"
	"github.com/billbatista/brofinance/settlement"
	"github.com/billbatista/brofinance/user"
)

var (
	ErrUnknownExpense  = errors.New("expense not found")
	ErrEditNotAllowed  = errors.New("only the creditor can edit, and not once payment started")
	ErrNothingToUpdate = errors.New("nothing to update")
	ErrInvalidTotal    = errors.New("total must be greater than zero")
	ErrNotLoggedIn     = errors.New("not logged in")
)

// DefaultParams is the first page, newest first.
var DefaultParams = api.ListParams{Page: 1, Limit: 100, Sort: ledger.SortCreatedAt, Order: ledger.OrderDesc}

// Service is the part of the API the dashboard uses.
type Service interface {
	ListCompras(ctx context.Context, p api.ListParams) (*api.Page, error)
	Tipos(ctx context.Context) ([]ledger.Category, error)
	Usuarios(ctx context.Context) ([]api.Roommate, error)
	CreateCompra(ctx context.Context, in ledger.CreateInput) (*ledger.Expense, error)
	CreateCompraBatch(ctx context.Context, in ledger.BatchInput) ([]ledger.Expense, error)
	UpdateCompra(ctx context.Context, id string, in ledger.UpdateInput) (*ledger.Expense, error)
	Transition(ctx context.Context, id string, action ledger.Action) (*ledger.Expense, error)
	settlement.Service
}

// Session is who the dashboard acts for.
type Session interface {
	UserID() string
	RefreshUser(ctx context.Context) (*user.User, error)
}

type Option func(*Dashboard)

func WithRecorder(r eventlogger.Recorder) Option {
	return func(d *Dashboard) {
		d.events = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) {
		d.logger = l
	}
}

type Dashboard struct {
	svc     Service
	session Session
	flow    *settlement.Flow
	events  eventlogger.Recorder
	logger  *slog.Logger

	mu         sync.RWMutex
	params     api.ListParams
	expenses   []ledger.Expense
	pagination api.Pagination
	categories []ledger.Category
	roommates  []api.Roommate
}

func New(svc Service, session Session, opts ...Option) *Dashboard {
	d := &Dashboard{
		svc:     svc,
		session: session,
		events:  eventlogger.Discard,
		logger:  slog.Default(),
		params:  DefaultParams,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.flow = settlement.NewFlow(svc, settlement.WithRecorder(d.events))
	return d
}

// Load fetches the expense page, the categories and the roommates
// concurrently. The first error wins and nothing is replaced.
func (d *Dashboard) Load(ctx context.Context, params api.ListParams) error {
	var (
		wg         sync.WaitGroup
		page       *api.Page
		categories []ledger.Category
		roommates  []api.Roommate
		errs       [3]error
	)
	wg.Go(func() { page, errs[0] = d.svc.ListCompras(ctx, params) })
	wg.Go(func() { categories, errs[1] = d.svc.Tipos(ctx) })
	wg.Go(func() { roommates, errs[2] = d.svc.Usuarios(ctx) })
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("loading dashboard: %w", err)
		}
	}

	d.mu.Lock()
	d.params = params
	d.expenses = page.Expenses
	d.pagination = page.Pagination
	d.categories = categories
	d.roommates = roommates
	d.mu.Unlock()
	return nil
}

// Refresh refetches the expense list with the last parameters.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.RLock()
	params := d.params
	d.mu.RUnlock()

	page, err := d.svc.ListCompras(ctx, params)
	if err != nil {
		return fmt.Errorf("refreshing expenses: %w", err)
	}
	d.mu.Lock()
	d.expenses = page.Expenses
	d.pagination = page.Pagination
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) Expenses() []ledger.Expense {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.expenses)
}

// Visible applies the client-side filter to the loaded page.
func (d *Dashboard) Visible(f ledger.Filter) []ledger.Expense {
	return f.Apply(d.Expenses())
}

func (d *Dashboard) Summary() ledger.Summary {
	return ledger.Summarize(d.Expenses(), d.session.UserID())
}

func (d *Dashboard) PendingAcceptance() []ledger.Expense {
	return ledger.PendingAcceptance(d.Expenses(), d.session.UserID())
}

func (d *Dashboard) PaymentConfirmations() []ledger.Expense {
	return ledger.PaymentConfirmations(d.Expenses(), d.session.UserID())
}

func (d *Dashboard) OwedByCreditor() []ledger.CreditorDebt {
	return ledger.OwedByCreditor(d.Expenses(), d.session.UserID())
}

func (d *Dashboard) Pagination() api.Pagination {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pagination
}

func (d *Dashboard) Categories() []ledger.Category {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.categories)
}

func (d *Dashboard) Roommates() []api.Roommate {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.roommates)
}

// Category looks a category up by id or by label.
func (d *Dashboard) Category(idOrName string) (ledger.Category, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.categories {
		if c.ID == idOrName || c.Description == idOrName {
			return c, true
		}
	}
	return ledger.Category{}, false
}

func (d *Dashboard) Find(id string) (ledger.Expense, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.expenses {
		if e.ID == id {
			return e, true
		}
	}
	return ledger.Expense{}, false
}

func (d *Dashboard) userID() (string, error) {
	id := d.session.UserID()
	if id == "" {
		return "", ErrNotLoggedIn
	}
	return id, nil
}
