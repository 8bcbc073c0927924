package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/billbatista/brofinance/internal/validation"
	"github.com/shopspring/decimal"
)

type Mode int

const (
	ModeSolo Mode = iota
	ModeShared
)

func (m Mode) String() string {
	if m == ModeShared {
		return "shared"
	}
	return "solo"
}

var (
	ErrNoParticipants      = errors.New("select at least one participant")
	ErrInvalidShare        = errors.New("every share must be greater than zero")
	ErrShareExceedsTotal   = errors.New("a share can't exceed the total")
	ErrSharesExceedTotal   = errors.New("shares add up to more than the total")
	ErrSubcategoryRequired = errors.New("pick a subcategory")
	ErrUnknownSubcategory  = errors.New("unknown subcategory")
	ErrDescriptionRequired = errors.New("description can't be empty")
)

// EqualShare is what each selected participant owes when total is split
// equally between them and the creator: total/(participants+1) to the cent.
// The rounding residue stays with the creator. If rounding up would make the
// participants owe more than the total, the share is truncated instead.
func EqualShare(total decimal.Decimal, participants int) (decimal.Decimal, error) {
	if participants < 1 {
		return decimal.Zero, ErrNoParticipants
	}

	n := decimal.NewFromInt(int64(participants))
	exact := total.Div(n.Add(decimal.NewFromInt(1)))
	share := exact.Round(2)
	if share.Mul(n).GreaterThan(total) {
		share = exact.RoundDown(2)
	}
	return share, nil
}

// Draft is the expense creation form.
type Draft struct {
	Mode         Mode            `json:"-"`
	CategoryID   string          `json:"tipo" validate:"required"`
	CategoryName string          `json:"-"`
	Subcategory  string          `json:"subcategoria"`
	Description  string          `json:"descripcion"`
	Total        decimal.Decimal `json:"montoTotal" validate:"gt=0"`
	// Shares maps each participant to what they owe. Shared mode only.
	Shares map[string]decimal.Decimal `json:"-"`
}

// SetShare records a manually entered share.
func (d *Draft) SetShare(participantID string, amount decimal.Decimal) {
	if d.Shares == nil {
		d.Shares = make(map[string]decimal.Decimal)
	}
	d.Shares[participantID] = amount
}

// SplitEqually assigns the equal share to every participant, replacing any
// manual amounts.
func (d *Draft) SplitEqually(participants []string) error {
	share, err := EqualShare(d.Total, len(participants))
	if err != nil {
		return err
	}
	d.Shares = make(map[string]decimal.Decimal, len(participants))
	for _, id := range participants {
		d.Shares[id] = share
	}
	return nil
}

// Descripcion is the description sent to the server: the subcategory for
// categories that have subfilters, the free text otherwise.
func (d Draft) Descripcion() string {
	if Subfilters(d.CategoryName) != nil {
		return d.Subcategory
	}
	return strings.TrimSpace(d.Description)
}

func (d Draft) Validate() error {
	if err := validation.Struct(d); err != nil {
		return err
	}

	if subs := Subfilters(d.CategoryName); subs != nil {
		if d.Subcategory == "" {
			return ErrSubcategoryRequired
		}
		if !slices.Contains(subs, d.Subcategory) {
			return fmt.Errorf("%w: %q", ErrUnknownSubcategory, d.Subcategory)
		}
	} else if strings.TrimSpace(d.Description) == "" {
		return ErrDescriptionRequired
	}

	if d.Mode == ModeSolo {
		return nil
	}

	if len(d.Shares) == 0 {
		return ErrNoParticipants
	}
	sum := decimal.Zero
	for _, id := range d.participants() {
		share := d.Shares[id]
		if !share.IsPositive() {
			return ErrInvalidShare
		}
		if share.GreaterThan(d.Total) {
			return ErrShareExceedsTotal
		}
		sum = sum.Add(share)
	}
	if sum.GreaterThan(d.Total) {
		return ErrSharesExceedTotal
	}
	return nil
}

func (d Draft) participants() []string {
	ids := make([]string, 0, len(d.Shares))
	for id := range d.Shares {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Solo builds the single-record payload: the creator owes the whole total.
func (d Draft) Solo() CreateInput {
	return CreateInput{
		Descripcion: d.Descripcion(),
		MontoTotal:  d.Total,
		MontoDeudor: d.Total,
		Tipo:        d.CategoryID,
	}
}

// Batch builds one debtor entry per participant, ordered by id.
func (d Draft) Batch() BatchInput {
	in := BatchInput{
		Descripcion: d.Descripcion(),
		MontoTotal:  d.Total,
		Tipo:        d.CategoryID,
	}
	for _, id := range d.participants() {
		in.Deudores = append(in.Deudores, BatchDebtor{
			DeudorID:    id,
			MontoDeudor: d.Shares[id].Round(2),
		})
	}
	return in
}

// CreatorShare is what's left for the creator once participants pay their part.
func (d Draft) CreatorShare() decimal.Decimal {
	rest := d.Total
	for _, s := range d.Shares {
		rest = rest.Sub(s)
	}
	return rest
}
