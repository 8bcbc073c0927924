package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/charts"
	"github.com/billbatista/brofinance/dashboard"
	"github.com/billbatista/brofinance/eventlogger"
	"github.com/billbatista/brofinance/ledger"
	"github.com/billbatista/brofinance/settlement"
	"github.com/shopspring/decimal"
)

// reportLimit is the largest page the server hands out.
const reportLimit = 200

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", dashboard.DefaultParams.Limit, "page size")
	sortKey := fs.String("sort", string(ledger.SortCreatedAt), "createdAt, montoTotal or montoDeudor")
	order := fs.String("order", string(ledger.OrderDesc), "asc or desc")
	tipo := fs.String("tipo", "", "category id")
	usuario := fs.String("usuario", "", "only expenses shared with this user id")
	sub := fs.String("sub", "", "subcategory, matched exactly")
	tab := fs.String("tab", "all", "all, shared or personal")
	all := fs.Bool("all", false, "show every state, not just accepted expenses")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, ord, err := ledger.ParseSort(*sortKey, *order)
	if err != nil {
		return err
	}
	t, err := ledger.ParseTab(*tab)
	if err != nil {
		return err
	}
	d, err := a.dashboard(ctx, api.ListParams{Page: *page, Limit: *limit, Sort: key, Order: ord, Tipo: *tipo, Usuario: *usuario})
	if err != nil {
		return err
	}

	expenses := d.Visible(ledger.Filter{Subcategory: *sub, Tab: t})
	if *all {
		expenses = d.Expenses()
	}
	printExpenses(a.out, expenses, a.store.UserID())
	p := d.Pagination()
	fmt.Fprintf(a.out, "\npage %d of %d, %d expenses\n", p.Page, max(p.Pages, 1), p.Total)
	return nil
}

func printExpenses(w io.Writer, expenses []ledger.Expense, userID string) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, "No expenses.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tDESCRIPTION\tTOTAL\tCREDITOR\tDEBTOR\tSHARE\tSTATE")
	for _, e := range expenses {
		debtor := e.Debtor.Name()
		if e.IsPersonal() {
			debtor = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.CreatedAt.Local().Format("2006-01-02"),
			e.Category.Description,
			e.Description,
			e.Total.StringFixed(2),
			e.Creditor.Name(),
			debtor,
			myShare(e, userID).StringFixed(2),
			e.State.Effective(),
		)
	}
	tw.Flush()
}

// myShare is what the expense means for userID: positive when owed to them.
func myShare(e ledger.Expense, userID string) decimal.Decimal {
	switch {
	case e.IsPersonal():
		return e.Total.Neg()
	case e.Creditor.ID == userID:
		return e.DebtorShare
	case e.Debtor.ID == userID:
		return e.DebtorShare.Neg()
	}
	return decimal.Zero
}

func runSummary(ctx context.Context, a *app, _ []string) error {
	d, err := a.dashboard(ctx, dashboard.DefaultParams)
	if err != nil {
		return err
	}
	s := d.Summary()
	fmt.Fprintf(a.out, "Owed to me: %s\n", s.OwedToMe.StringFixed(2))
	fmt.Fprintf(a.out, "I owe:      %s\n", s.IOwe.StringFixed(2))
	fmt.Fprintf(a.out, "Net:        %s\n", s.Net().StringFixed(2))
	fmt.Fprintf(a.out, "Personal:   %s\n", s.Personal.StringFixed(2))

	if debts := d.OwedByCreditor(); len(debts) > 0 {
		fmt.Fprintln(a.out, "\nTo settle:")
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, debt := range debts {
			fmt.Fprintf(tw, "  %s\t%s\t%d expenses\t(brofinance settle -creditor %s)\n",
				debt.Creditor.Name(), debt.Total.StringFixed(2), len(debt.ExpenseIDs), debt.Creditor.ID)
		}
		tw.Flush()
	}

	if roommates := d.Roommates(); len(roommates) > 0 {
		fmt.Fprintln(a.out, "\nRoommates:")
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, r := range roommates {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Username, r.ID, r.Balance.StringFixed(2))
		}
		tw.Flush()
	}
	return nil
}

func runPending(ctx context.Context, a *app, _ []string) error {
	d, err := a.dashboard(ctx, dashboard.DefaultParams)
	if err != nil {
		return err
	}
	userID := a.store.UserID()

	fmt.Fprintln(a.out, "Waiting for your acceptance:")
	printExpenses(a.out, d.PendingAcceptance(), userID)
	fmt.Fprintln(a.out, "\nPayments to confirm:")
	printExpenses(a.out, d.PaymentConfirmations(), userID)
	return nil
}

func runCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create")
	desc := fs.String("desc", "", "description, for categories without subcategories")
	tipo := fs.String("tipo", "", "category id or name")
	sub := fs.String("sub", "", "subcategory")
	total := fs.String("total", "", "total amount")
	with := fs.String("with", "", "participants as who=amount,... (who is a username or id)")
	equal := fs.Bool("equal", false, "split the total equally with the participants")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amount, err := parseAmount(*total)
	if err != nil {
		return err
	}
	d, err := a.dashboard(ctx, dashboard.DefaultParams)
	if err != nil {
		return err
	}

	draft := ledger.Draft{
		Mode:        ledger.ModeSolo,
		CategoryID:  *tipo,
		Subcategory: *sub,
		Description: *desc,
		Total:       amount,
	}
	if c, ok := d.Category(*tipo); ok {
		draft.CategoryID, draft.CategoryName = c.ID, c.Description
	}
	if *with != "" {
		draft.Mode = ledger.ModeShared
		if err := fillShares(&draft, d.Roommates(), *with, *equal); err != nil {
			return err
		}
	}

	if err := d.Create(ctx, draft); err != nil {
		return err
	}
	if draft.Mode == ledger.ModeShared {
		fmt.Fprintf(a.out, "Created, %d participants have to accept it. Your part: %s\n",
			len(draft.Shares), draft.CreatorShare().StringFixed(2))
		return nil
	}
	fmt.Fprintln(a.out, "Created")
	return nil
}

// fillShares parses "who=amount,who" into the draft.
func fillShares(draft *ledger.Draft, roommates []api.Roommate, with string, equal bool) error {
	var ids []string
	for entry := range strings.SplitSeq(with, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		who, raw, hasAmount := strings.Cut(entry, "=")
		id, err := resolveRoommate(roommates, who)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		if equal {
			continue
		}
		if !hasAmount {
			return fmt.Errorf("missing amount for %s, use %s=<amount> or -equal", who, who)
		}
		share, err := parseAmount(raw)
		if err != nil {
			return err
		}
		draft.SetShare(id, share)
	}
	if equal {
		return draft.SplitEqually(ids)
	}
	return nil
}

func resolveRoommate(roommates []api.Roommate, who string) (string, error) {
	who = strings.TrimSpace(who)
	for _, r := range roommates {
		if r.ID == who || strings.EqualFold(r.Username, who) {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("unknown roommate %q", who)
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("amount is required")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// idArg accepts the id either before or after the flags.
func idArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func runEdit(ctx context.Context, a *app, args []string) error {
	id, rest := idArg(args)
	fs := newFlagSet("edit")
	desc := fs.String("desc", "", "new description")
	total := fs.String("total", "", "new total")
	tipo := fs.String("tipo", "", "new category id or name")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		return errors.New("expense id is required")
	}

	d, err := a.dashboard(ctx, dashboard.DefaultParams)
	if err != nil {
		return err
	}
	var in ledger.UpdateInput
	if *desc != "" {
		in.Descripcion = desc
	}
	if *total != "" {
		amount, err := parseAmount(*total)
		if err != nil {
			return err
		}
		in.MontoTotal = &amount
	}
	if *tipo != "" {
		c, ok := d.Category(*tipo)
		if !ok {
			return fmt.Errorf("unknown category %q", *tipo)
		}
		in.Tipo = &c.ID
	}

	res, err := d.Edit(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Updated")
	if res.NeedsReaccept {
		fmt.Fprintln(a.out, "The debtor has to accept it again.")
	}
	return nil
}

type transition struct {
	action ledger.Action
	done   string
}

var (
	actionAccept        = transition{ledger.ActionAccept, "Accepted"}
	actionReject        = transition{ledger.ActionReject, "Rejected"}
	actionPay           = transition{ledger.ActionRequestPayment, "Payment sent, waiting for the creditor to confirm"}
	actionConfirm       = transition{ledger.ActionConfirmPayment, "Payment confirmed"}
	actionRejectPayment = transition{ledger.ActionRejectPayment, "Payment rejected, the expense is open again"}
)

func transitionCommand(t transition) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		id, _ := idArg(args)
		if id == "" {
			return errors.New("expense id is required")
		}
		d, err := a.dashboard(ctx, dashboard.DefaultParams)
		if err != nil {
			return err
		}
		if err := d.Apply(ctx, id, t.action); err != nil {
			return err
		}
		fmt.Fprintln(a.out, t.done)
		return nil
	}
}

func runSettle(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("settle")
	creditor := fs.String("creditor", "", "creditor username or id")
	notify := fs.Bool("notify", false, "mark everything as paid after showing the transfer details")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *creditor == "" {
		return errors.New("-creditor is required")
	}

	d, err := a.dashboard(ctx, dashboard.DefaultParams)
	if err != nil {
		return err
	}
	creditorID := *creditor
	for _, debt := range d.OwedByCreditor() {
		if strings.EqualFold(debt.Creditor.Username, creditorID) {
			creditorID = debt.Creditor.ID
			break
		}
	}

	var info *settlement.TransferInfo
	if *notify {
		info, err = d.SettleAll(ctx, creditorID)
	} else {
		info, _, err = d.Transfer(ctx, creditorID)
	}
	if info != nil {
		printTransfer(a.out, info)
	}
	if err != nil {
		return settleError(err, *notify)
	}
	if *notify {
		fmt.Fprintln(a.out, "\nMarked as paid, waiting for the creditor to confirm.")
	}
	return nil
}

// settleError counts failed marks only when marks were attempted.
func settleError(err error, marked bool) error {
	if !marked {
		return err
	}
	if n := settlement.Failed(err); n > 0 {
		return fmt.Errorf("%d payments could not be marked: %w", n, err)
	}
	return err
}

// printTransfer leaves the CBU alone on its last line so it can be copied.
func printTransfer(w io.Writer, info *settlement.TransferInfo) {
	fmt.Fprintf(w, "Transfer %s to %s\n", info.Amount.StringFixed(2), info.CreditorUsername)
	fmt.Fprintf(w, "Reference: %s\n", info.Description)
	fmt.Fprintln(w, "CBU:")
	fmt.Fprintln(w, info.CBU)
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("report")
	period := fs.String("period", string(charts.DefaultPeriod), "7d, 30d or 90d")
	out := fs.String("out", "", "write a PDF report to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := charts.ParsePeriod(*period)
	if err != nil {
		return err
	}

	d, err := a.dashboard(ctx, api.ListParams{Page: 1, Limit: reportLimit, Sort: ledger.SortCreatedAt, Order: ledger.OrderDesc})
	if err != nil {
		return err
	}
	r := charts.Build(d.Expenses(), p, time.Now())

	fmt.Fprintf(a.out, "Last %d days: %d expenses, total %s, average %s\n",
		p.Days(), r.Count, r.Total.StringFixed(2), r.Average.StringFixed(2))
	if day, ok := r.Busiest(); ok {
		fmt.Fprintf(a.out, "Busiest day: %s (%s)\n", day.Day.Format("2006-01-02"), day.Total.StringFixed(2))
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	if len(r.ByCategory) > 0 {
		fmt.Fprintln(tw, "\nBY CATEGORY\t")
		for _, s := range r.ByCategory {
			fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Value.StringFixed(2))
		}
	}
	if len(r.ByCreditor) > 0 {
		fmt.Fprintln(tw, "\nBY CREDITOR\t")
		for _, s := range r.ByCreditor {
			fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Value.StringFixed(2))
		}
	}
	tw.Flush()

	if *out == "" {
		return nil
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := charts.WritePDF(f, r, a.store.Cached().Username); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\nReport written to %s\n", *out)
	return nil
}

func runActivity(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("activity")
	eventType := fs.String("type", "", "event type, like compra.accepted or session.logged_in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventType == "" {
		return errors.New("-type is required")
	}
	events, err := a.events.GetByType(ctx, *eventType)
	if errors.Is(err, eventlogger.ErrNotQueryable) {
		return fmt.Errorf("%w, set DATABASE_URL to keep activity in Postgres", err)
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Metadata["user_id"], e.ID)
	}
	return tw.Flush()
}
