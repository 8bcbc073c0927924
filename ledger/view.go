package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Tab splits the accepted list between shared and personal expenses.
type Tab string

const (
	TabAll      Tab = "all"
	TabShared   Tab = "shared"
	TabPersonal Tab = "personal"
)

func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TabAll, nil
	case TabAll, TabShared, TabPersonal:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Filter narrows a fetched page on the client.
type Filter struct {
	// Subcategory matches descripcion exactly. Empty matches everything.
	Subcategory string
	Tab         Tab
}

// Apply keeps the accepted expenses that match f, preserving order.
func (f Filter) Apply(expenses []Expense) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.IsAccepted() {
			continue
		}
		if f.Subcategory != "" && e.Description != f.Subcategory {
			continue
		}
		switch f.Tab {
		case TabShared:
			if e.IsPersonal() {
				continue
			}
		case TabPersonal:
			if e.IsShared() {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Summary holds the dashboard totals over accepted expenses.
type Summary struct {
	OwedToMe decimal.Decimal `json:"owedToMe"`
	IOwe     decimal.Decimal `json:"iOwe"`
	Personal decimal.Decimal `json:"personal"`
}

// Net is positive when the user is owed money overall.
func (s Summary) Net() decimal.Decimal {
	return s.OwedToMe.Sub(s.IOwe)
}

// Summarize computes the totals for userID. Personal expenses never count
// towards what is owed.
func Summarize(expenses []Expense, userID string) Summary {
	s := Summary{OwedToMe: decimal.Zero, IOwe: decimal.Zero, Personal: decimal.Zero}
	for _, e := range expenses {
		if !e.IsAccepted() {
			continue
		}
		if e.IsPersonal() {
			if e.Creditor.ID == userID {
				s.Personal = s.Personal.Add(e.Total)
			}
			continue
		}
		if e.Creditor.ID == userID {
			s.OwedToMe = s.OwedToMe.Add(e.CreditorShare)
		}
		if e.Debtor.ID == userID {
			s.IOwe = s.IOwe.Add(e.DebtorShare)
		}
	}
	return s
}

// CreditorDebt is what the user owes a single creditor.
type CreditorDebt struct {
	Creditor   Party
	Total      decimal.Decimal
	ExpenseIDs []string
}

// OwedByCreditor groups the accepted shared expenses where userID is the
// debtor by creditor, largest debt first.
func OwedByCreditor(expenses []Expense, userID string) []CreditorDebt {
	idx := make(map[string]int)
	var out []CreditorDebt
	for _, e := range expenses {
		if !e.IsAccepted() || e.IsPersonal() || e.Debtor.ID != userID {
			continue
		}
		i, ok := idx[e.Creditor.ID]
		if !ok {
			i = len(out)
			idx[e.Creditor.ID] = i
			out = append(out, CreditorDebt{Creditor: e.Creditor, Total: decimal.Zero})
		}
		d := &out[i]
		if d.Creditor.Username == "" {
			d.Creditor = e.Creditor
		}
		d.Total = d.Total.Add(e.DebtorShare)
		d.ExpenseIDs = append(d.ExpenseIDs, e.ID)
	}
	slices.SortStableFunc(out, func(a, b CreditorDebt) int {
		return b.Total.Cmp(a.Total)
	})
	return out
}

// DebtTo returns the debt grouped for creditorID, if any.
func DebtTo(expenses []Expense, userID, creditorID string) (CreditorDebt, bool) {
	for _, d := range OwedByCreditor(expenses, userID) {
		if d.Creditor.ID == creditorID {
			return d, true
		}
	}
	return CreditorDebt{}, false
}

// PendingAcceptance lists the expenses waiting for userID to accept or reject.
func PendingAcceptance(expenses []Expense, userID string) []Expense {
	return selectWhere(expenses, func(e Expense) bool {
		return e.State.Effective() == StatePending && e.Debtor.ID == userID
	})
}

// PaymentConfirmations lists payments userID has to confirm or reject.
func PaymentConfirmations(expenses []Expense, userID string) []Expense {
	return selectWhere(expenses, func(e Expense) bool {
		return e.State.Effective() == StatePaymentPending && e.Creditor.ID == userID
	})
}

func selectWhere(expenses []Expense, keep func(Expense) bool) []Expense {
	var out []Expense
	for _, e := range expenses {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

type SortKey string

const (
	SortCreatedAt   SortKey = "createdAt"
	SortTotal       SortKey = "montoTotal"
	SortDebtorShare SortKey = "montoDeudor"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func ParseSort(key, order string) (SortKey, Order, error) {
	k := SortKey(key)
	switch k {
	case "":
		k = SortCreatedAt
	case SortCreatedAt, SortTotal, SortDebtorShare:
	default:
		return "", "", fmt.Errorf("unknown sort key %q", key)
	}
	o := Order(order)
	switch o {
	case "":
		o = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return "", "", fmt.Errorf("unknown order %q", order)
	}
	return k, o, nil
}

// Sort orders expenses in place.
func Sort(expenses []Expense, key SortKey, order Order) {
	slices.SortStableFunc(expenses, func(a, b Expense) int {
		var c int
		switch key {
		case SortTotal:
			c = a.Total.Cmp(b.Total)
		case SortDebtorShare:
			c = a.DebtorShare.Cmp(b.DebtorShare)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order == OrderDesc {
			return -c
		}
		return c
	})
}
