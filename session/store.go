package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/eventlogger"
	"github.com/billbatista/brofinance/user"
)

// Activity log event types.
const (
	EventLoggedIn    = "session.logged_in"
	EventRegistered  = "session.registered"
	EventLoggedOut   = "session.logged_out"
	EventExpired     = "session.expired"
	EventPasswordSet = "session.password_set"
)

// Authenticator is the part of the API the session store drives.
type Authenticator interface {
	SignIn(ctx context.Context, in api.Credentials) (*api.AuthResponse, error)
	SignUp(ctx context.Context, in api.Registration) (*api.AuthResponse, error)
	GoogleCallback(ctx context.Context, code string) (*api.AuthResponse, error)
	SetPassword(ctx context.Context, in user.PasswordSetup) (*user.User, error)
	Me(ctx context.Context) (*user.User, error)
	SignOut(ctx context.Context) error
}

// Listener is told about every state change.
type Listener func(State, *user.User)

type Option func(*Store)

func WithRecorder(r eventlogger.Recorder) Option {
	return func(s *Store) {
		s.events = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Store is the single owner of "who is logged in".
type Store struct {
	auth    Authenticator
	tokens  *Tokens
	storage Storage
	events  eventlogger.Recorder
	logger  *slog.Logger

	mu        sync.RWMutex
	state     State
	user      *user.User
	listeners map[int]Listener
	nextID    int
}

func NewStore(auth Authenticator, tokens *Tokens, opts ...Option) *Store {
	s := &Store{
		auth:      auth,
		tokens:    tokens,
		storage:   tokens.storage,
		events:    eventlogger.Discard,
		logger:    slog.Default(),
		state:     StateUnresolved,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	tokens.OnExpire(s.expired)
	return s
}

// Current returns the state and a copy of the user snapshot.
func (s *Store) Current() (State, *user.User) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, cloneUser(s.user)
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Cached is the last known user, possibly not yet verified.
func (s *Store) Cached() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

// UserID is empty unless a user is known.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) set(state State, u *user.User) {
	s.mu.Lock()
	changed := s.state != state || s.user != u
	s.state = state
	s.user = u
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(state, cloneUser(u))
	}
}

// Restore loads the cached snapshot for an instant first paint. The state
// stays unresolved while a token waits for verification.
func (s *Store) Restore(ctx context.Context) (*user.User, error) {
	has, err := s.tokens.HasAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if !has {
		s.set(StateAbsent, nil)
		return nil, nil
	}

	cached, err := s.loadUser(ctx)
	if err != nil {
		s.logger.Warn("discarding unreadable user snapshot", "error", err)
		cached = nil
	}
	s.set(StateUnresolved, cached)
	return cloneUser(cached), nil
}

// Bootstrap restores and then verifies the session against the server. A
// failed verification discards everything and resolves Absent.
func (s *Store) Bootstrap(ctx context.Context) (State, error) {
	if _, err := s.Restore(ctx); err != nil {
		return s.State(), err
	}
	if s.State() == StateAbsent {
		return StateAbsent, nil
	}

	u, err := s.auth.Me(ctx)
	if err != nil {
		s.logger.Info("session verification failed", "error", err)
		if err := s.tokens.Expire(ctx); err != nil {
			return StateAbsent, fmt.Errorf("clearing session: %w", err)
		}
		return StateAbsent, nil
	}
	if err := s.UpdateUser(ctx, u); err != nil {
		return s.State(), err
	}
	return StatePresent, nil
}

func (s *Store) Login(ctx context.Context, email, password string) (*user.User, error) {
	res, err := s.auth.SignIn(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, res, EventLoggedIn)
}

func (s *Store) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	res, err := s.auth.SignUp(ctx, api.Registration{Username: username, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, res, EventRegistered)
}

func (s *Store) LoginWithGoogle(ctx context.Context, code string) (*user.User, error) {
	res, err := s.auth.GoogleCallback(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, res, EventLoggedIn)
}

func (s *Store) begin(ctx context.Context, res *api.AuthResponse, eventType string) (*user.User, error) {
	if res == nil || res.Tokens.AccessToken == "" {
		return nil, ErrInvalidSession
	}
	if err := s.tokens.Store(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken); err != nil {
		return nil, err
	}
	u := res.User
	if err := s.UpdateUser(ctx, &u); err != nil {
		return nil, err
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithUser(u.ID),
		eventlogger.WithData(map[string]any{
			"username": u.Username,
			"provider": u.Provider,
		}),
	))
	return cloneUser(&u), nil
}

// SetPassword completes a provider account with a username and password.
func (s *Store) SetPassword(ctx context.Context, username, password, confirm string) (*user.User, error) {
	in := user.PasswordSetup{Username: username, Password: password, Confirm: confirm}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := s.auth.SetPassword(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	s.events.Log(eventlogger.NewEvent(eventlogger.WithType(EventPasswordSet), eventlogger.WithUser(u.ID)))
	return cloneUser(u), nil
}

// Logout tells the server and always clears the local session, even when
// the server can't be reached.
func (s *Store) Logout(ctx context.Context) error {
	userID := s.UserID()
	if err := s.auth.SignOut(ctx); err != nil {
		s.logger.Warn("sign-out failed, clearing local session anyway", "error", api.Message(err))
	}
	s.set(StateAbsent, nil)
	err := s.tokens.Expire(ctx)
	s.events.Log(eventlogger.NewEvent(eventlogger.WithType(EventLoggedOut), eventlogger.WithUser(userID)))
	return err
}

// RefreshUser re-reads the user, picking up a new balance.
func (s *Store) RefreshUser(ctx context.Context) (*user.User, error) {
	u, err := s.auth.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

// UpdateUser replaces the cached user. A nil user clears it and resolves Absent.
func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	if u == nil {
		if err := s.storage.Delete(ctx, KeyUser); err != nil {
			return fmt.Errorf("clearing user snapshot: %w", err)
		}
		s.set(StateAbsent, nil)
		return nil
	}

	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user snapshot: %w", err)
	}
	if err := s.storage.Set(ctx, KeyUser, string(b)); err != nil {
		return fmt.Errorf("storing user snapshot: %w", err)
	}
	s.set(StatePresent, cloneUser(u))
	return nil
}

func (s *Store) loadUser(ctx context.Context) (*user.User, error) {
	raw, err := s.storage.Get(ctx, KeyUser)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u user.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decoding user snapshot: %w", err)
	}
	return &u, nil
}

// expired runs when the tokens are dropped, including on any 401.
func (s *Store) expired() {
	userID := s.UserID()
	if s.State() == StateAbsent && userID == "" {
		return
	}
	s.set(StateAbsent, nil)
	s.events.Log(eventlogger.NewEvent(eventlogger.WithType(EventExpired), eventlogger.WithUser(userID)))
}

// PasswordResetter is the API call behind the reset-password form.
type PasswordResetter interface {
	ResetPassword(ctx context.Context, in user.PasswordReset) error
}

// ResetPassword checks the new password locally before sending it.
func ResetPassword(ctx context.Context, r PasswordResetter, userID, token, password, confirm string) error {
	in := user.PasswordReset{UserID: userID, Token: token, Password: password, Confirm: confirm}
	if userID == "" || token == "" {
		return fmt.Errorf("%w: reset link is missing the user or token", ErrInvalidSession)
	}
	if err := in.Validate(); err != nil {
		return err
	}
	return r.ResetPassword(ctx, in)
}

func cloneUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Provider != nil {
		c.Provider = append([]string(nil), u.Provider...)
	}
	if u.ShowCBU != nil {
		v := *u.ShowCBU
		c.ShowCBU = &v
	}
	return &c
}
