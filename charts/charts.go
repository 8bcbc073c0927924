// Package charts aggregates accepted expenses over a recent period: totals,
// a daily series and breakdowns by category and by creditor.
package charts

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/billbatista/brofinance/ledger"
	"github.com/shopspring/decimal"
)

type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
)

// DefaultPeriod is what the report shows when none is picked.
const DefaultPeriod = Period30d

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.TrimSpace(s)); p {
	case "":
		return DefaultPeriod, nil
	case Period7d, Period30d, Period90d:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q, use 7d, 30d or 90d", s)
}

func (p Period) Days() int {
	switch p {
	case Period7d:
		return 7
	case Period90d:
		return 90
	}
	return 30
}

// Point is one day of the series.
type Point struct {
	Day        time.Time
	Total      decimal.Decimal
	Cumulative decimal.Decimal
}

// Slice is one named share of the total.
type Slice struct {
	Name  string
	Value decimal.Decimal
}

type Report struct {
	Period     Period
	From       time.Time
	To         time.Time
	Count      int
	Total      decimal.Decimal
	Average    decimal.Decimal
	Daily      []Point
	ByCategory []Slice
	ByCreditor []Slice
}

// Build aggregates the accepted expenses created in the last p.Days() days,
// today included. Days are UTC calendar days and every one of them shows up
// in Daily, spending or not.
func Build(expenses []ledger.Expense, p Period, now time.Time) Report {
	days := p.Days()
	today := now.UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(days - 1))

	r := Report{
		Period:  p,
		From:    from,
		To:      now.UTC(),
		Total:   decimal.Zero,
		Average: decimal.Zero,
		Daily:   make([]Point, days),
	}
	for i := range r.Daily {
		r.Daily[i] = Point{Day: from.AddDate(0, 0, i), Total: decimal.Zero}
	}

	byCategory := make(map[string]decimal.Decimal)
	byCreditor := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		if !e.IsAccepted() || e.CreatedAt.IsZero() {
			continue
		}
		created := e.CreatedAt.UTC()
		if created.Before(from) || created.After(r.To) {
			continue
		}

		r.Count++
		r.Total = r.Total.Add(e.Total)
		i := int(created.Sub(from) / (24 * time.Hour))
		r.Daily[i].Total = r.Daily[i].Total.Add(e.Total)

		key := categoryLabel(e)
		byCategory[key] = byCategory[key].Add(e.Total)
		name := e.Creditor.Name()
		byCreditor[name] = byCreditor[name].Add(e.Total)
	}

	if r.Count > 0 {
		r.Average = r.Total.Div(decimal.NewFromInt(int64(r.Count))).Round(2)
	}
	running := decimal.Zero
	for i := range r.Daily {
		running = running.Add(r.Daily[i].Total)
		r.Daily[i].Cumulative = running
	}
	r.ByCategory = slicesOf(byCategory)
	r.ByCreditor = slicesOf(byCreditor)
	return r
}

// categoryLabel is "<category> - <description>", or just the category when
// there is no description.
func categoryLabel(e ledger.Expense) string {
	tipo := e.Category.Description
	if tipo == "" {
		tipo = "Otro"
	}
	if sub := strings.TrimSpace(e.Description); sub != "" {
		return tipo + " - " + sub
	}
	return tipo
}

// slicesOf sorts largest first, by name on ties.
func slicesOf(m map[string]decimal.Decimal) []Slice {
	out := make([]Slice, 0, len(m))
	for name, v := range m {
		out = append(out, Slice{Name: name, Value: v})
	}
	slices.SortFunc(out, func(a, b Slice) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Busiest returns the day with the highest total, if anything was spent.
func (r Report) Busiest() (Point, bool) {
	var best Point
	found := false
	for _, p := range r.Daily {
		if p.Total.IsPositive() && (!found || p.Total.GreaterThan(best.Total)) {
			best, found = p, true
		}
	}
	return best, found
}
