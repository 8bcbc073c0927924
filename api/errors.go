package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/billbatista/brofinance/internal/validation"
)

var (
	ErrTransport    = errors.New("could not connect to the server")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a non-2xx response. Message is the server's error string.
type Error struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func newError(status int, msg string, fields []FieldError) *Error {
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{StatusCode: status, Message: msg, Fields: fields}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// FieldMessage joins the field errors the way the forms show them, falling
// back to Message.
func (e *Error) FieldMessage() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Message != "" {
			msgs = append(msgs, f.Message)
		}
	}
	if len(msgs) == 0 {
		return e.Message
	}
	return strings.Join(msgs, ". ")
}

// Message is the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.FieldMessage()
	}
	if errors.Is(err, ErrTransport) {
		return ErrTransport.Error()
	}
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}
	return err.Error()
}
