package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types recorded in the activity log.
const (
	EventCreated         = "compra.created"
	EventUpdated         = "compra.updated"
	EventAccepted        = "compra.accepted"
	EventRejected        = "compra.rejected"
	EventPaymentRequest  = "compra.payment_requested"
	EventPaymentConfirm  = "compra.payment_confirmed"
	EventPaymentRejected = "compra.payment_rejected"
)

var actionEvents = map[Action]string{
	ActionAccept:         EventAccepted,
	ActionReject:         EventRejected,
	ActionRequestPayment: EventPaymentRequest,
	ActionConfirmPayment: EventPaymentConfirm,
	ActionRejectPayment:  EventPaymentRejected,
}

// EventType is the activity log type for a lifecycle action.
func (a Action) EventType() string {
	return actionEvents[a]
}

type CreatedEvent struct {
	Description  string          `json:"descripcion"`
	Total        decimal.Decimal `json:"montoTotal"`
	CategoryID   string          `json:"tipo"`
	Participants []string        `json:"participantes,omitempty"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type TransitionEvent struct {
	ExpenseID string `json:"compraId"`
	From      State  `json:"from"`
	To        State  `json:"to"`
	ActorID   string `json:"actorId"`
	Role      string `json:"role"`
}

type UpdatedEvent struct {
	ExpenseID   string `json:"compraId"`
	ActorID     string `json:"actorId"`
	NeedsAccept bool   `json:"needsAccept"`
}
