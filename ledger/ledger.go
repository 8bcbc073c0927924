package ledger

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// State is the lifecycle state of an expense as the server spells it.
type State string

const (
	StatePending        State = "pendiente"
	StateAccepted       State = "aceptado"
	StateRejected       State = "rechazado"
	StatePaymentPending State = "pago_pendiente"
	StatePaid           State = "pagado"
)

// Effective maps the legacy unset state to accepted.
func (s State) Effective() State {
	if s == "" {
		return StateAccepted
	}
	return s
}

func (s State) Valid() bool {
	switch s.Effective() {
	case StatePending, StateAccepted, StateRejected, StatePaymentPending, StatePaid:
		return true
	}
	return false
}

// Party is a creditor or debtor reference. The server sends either the bare
// id or the populated user.
type Party struct {
	ID        string `json:"_id"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (p *Party) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &p.ID)
	}
	type party Party
	var v party
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Party(v)
	return nil
}

// Name is the display name, falling back to "?" for unpopulated references.
func (p Party) Name() string {
	if p.Username == "" {
		return "?"
	}
	return p.Username
}

type Category struct {
	ID          string `json:"_id"`
	Description string `json:"descripcion,omitempty"`
}

func (c *Category) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &c.ID)
	}
	type category Category
	var v category
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Category(v)
	return nil
}

// Expense is one creditor/debtor record. An expense shared among N people is
// N records with the same description.
type Expense struct {
	ID            string          `json:"_id"`
	Description   string          `json:"descripcion"`
	Total         decimal.Decimal `json:"montoTotal"`
	CreditorShare decimal.Decimal `json:"montoAcreedor"`
	DebtorShare   decimal.Decimal `json:"montoDeudor"`
	Category      Category        `json:"tipo"`
	Creditor      Party           `json:"acreedorId"`
	Debtor        Party           `json:"deudorId"`
	State         State           `json:"estado,omitempty"`
	CreatedAt     time.Time       `json:"createdAt,omitzero"`
	UpdatedAt     time.Time       `json:"updatedAt,omitzero"`
}

// IsPersonal reports a self-paid expense.
func (e Expense) IsPersonal() bool {
	return e.Creditor.ID == e.Debtor.ID
}

func (e Expense) IsShared() bool {
	return !e.IsPersonal()
}

func (e Expense) IsAccepted() bool {
	return e.State.Effective() == StateAccepted
}

// CounterpartyOf returns the other side of the expense for userID.
func (e Expense) CounterpartyOf(userID string) Party {
	if e.Creditor.ID == userID {
		return e.Debtor
	}
	return e.Creditor
}

type CreateInput struct {
	Descripcion string          `json:"descripcion"`
	MontoTotal  decimal.Decimal `json:"montoTotal"`
	MontoDeudor decimal.Decimal `json:"montoDeudor"`
	Tipo        string          `json:"tipo"`
	DeudorID    string          `json:"deudorId,omitempty"` // empty for a personal expense
}

type BatchDebtor struct {
	DeudorID    string          `json:"deudorId"`
	MontoDeudor decimal.Decimal `json:"montoDeudor"`
}

type BatchInput struct {
	Descripcion string          `json:"descripcion"`
	MontoTotal  decimal.Decimal `json:"montoTotal"`
	Tipo        string          `json:"tipo"`
	Deudores    []BatchDebtor   `json:"deudores"`
}

type UpdateInput struct {
	Descripcion *string          `json:"descripcion,omitempty"`
	MontoTotal  *decimal.Decimal `json:"montoTotal,omitempty"`
	Tipo        *string          `json:"tipo,omitempty"`
}

func (u UpdateInput) Empty() bool {
	return u.Descripcion == nil && u.MontoTotal == nil && u.Tipo == nil
}
