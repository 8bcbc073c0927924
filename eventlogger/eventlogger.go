package eventlogger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotQueryable = errors.New("event log can't be queried")

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// WithUser tags the event with the acting user.
func WithUser(userID string) EventOption {
	return func(e *Event) {
		if userID != "" {
			e.Metadata["user_id"] = userID
		}
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByType(ctx context.Context, eventType string) ([]Event, error)
}

// Recorder queues events without blocking the caller. *Worker implements it.
type Recorder interface {
	Log(e Event)
}

type discard struct{}

func (discard) Log(Event) {}

// Discard drops every event.
var Discard Recorder = discard{}
