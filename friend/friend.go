package friend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billbatista/brofinance/ledger"
)

// Status is the relationship between the current user and someone else.
type Status string

const (
	StatusNone            Status = "none"
	StatusPendingSent     Status = "pending_sent"
	StatusPendingReceived Status = "pending_received"
	StatusFriend          Status = "friend"
	StatusSelf            Status = "self"
)

// MinQueryLength is the shortest search the server accepts.
const MinQueryLength = 2

var ErrQueryTooShort = fmt.Errorf("search needs at least %d characters", MinQueryLength)

var ErrNoRequest = errors.New("no pending request from this user")

type Friend struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Request is a pending friend request. User is the other side: the sender
// for received requests, the recipient for sent ones.
type Request struct {
	ID        string       `json:"id"`
	User      ledger.Party `json:"user"`
	CreatedAt time.Time    `json:"createdAt,omitzero"`
}

type Requests struct {
	Received []Request `json:"received"`
	Sent     []Request `json:"sent"`
}

type SearchUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type StatusInfo struct {
	Status    Status `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

// Action is something the current user can do from a profile page.
type Action string

const (
	ActionAdd    Action = "add"
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionRemove Action = "remove"
)

// Actions lists what can be done given the relationship. Accept and reject
// need the pending request id.
func Actions(info StatusInfo) []Action {
	switch info.Status {
	case StatusNone:
		return []Action{ActionAdd}
	case StatusPendingReceived:
		if info.RequestID == "" {
			return nil
		}
		return []Action{ActionAccept, ActionReject}
	case StatusFriend:
		return []Action{ActionRemove}
	}
	return nil
}

// NormalizeQuery trims a search query and rejects ones that are too short.
func NormalizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < MinQueryLength {
		return "", ErrQueryTooShort
	}
	return q, nil
}
