package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/billbatista/brofinance/user"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists    = errors.New("El email ya está registrado")
	ErrUsernameExists = errors.New("El nombre de usuario ya está en uso")
	ErrInvalidEmail   = errors.New("Email inválido")
	ErrBlankPassword  = errors.New("La contraseña no puede estar vacía")
)

type account struct {
	user.User
	PasswordHash string
	Avatar       []byte
	AvatarType   string
}

// users is the in-memory account table. Lookups return copies.
type users struct {
	mu    sync.RWMutex
	byID  map[string]*account
	order []string
	now   func() time.Time
}

func newUsers(now func() time.Time) *users {
	return &users{byID: make(map[string]*account), now: now}
}

func (r *users) Register(ctx context.Context, username, email, password string) (*account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrBlankPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return r.insert(username, email, string(hashedPassword), "local")
}

// RegisterProvider creates an account with no local password.
func (r *users) RegisterProvider(ctx context.Context, username, email, provider string) (*account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	acc, err := r.insert(username, email, "", provider)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.byID[acc.ID].NeedsPasswordSetup = true
	r.mu.Unlock()
	acc.NeedsPasswordSetup = true
	return acc, nil
}

func (r *users) insert(username, email, hash, provider string) (*account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.Email == email {
			return nil, ErrEmailExists
		}
		if strings.EqualFold(a.Username, username) {
			return nil, ErrUsernameExists
		}
	}

	now := r.now().UTC()
	acc := &account{
		User: user.User{
			ID:        uuid.NewString(),
			Username:  username,
			Email:     email,
			Provider:  []string{provider},
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}
	r.byID[acc.ID] = acc
	r.order = append(r.order, acc.ID)
	cp := *acc
	return &cp, nil
}

// GetByEmail returns nil when there is no such account.
func (r *users) GetByEmail(ctx context.Context, email string) (*account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *users) GetByID(ctx context.Context, id string) (*account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// All returns every account in registration order.
func (r *users) All() []account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

func (r *users) VerifyPassword(hashedPassword, password string) error {
	if hashedPassword == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (r *users) UpdateProfile(ctx context.Context, id string, p user.ProfileUpdate) (*account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	for _, other := range r.byID {
		if other.ID != id && strings.EqualFold(other.Username, p.Username) {
			return nil, ErrUsernameExists
		}
	}
	showCBU := p.ShowCBU
	a.Username = p.Username
	a.CBU = p.CBU
	a.ShowCBU = &showCBU
	a.ShowEmail = p.ShowEmail
	if p.AvatarURL != "" {
		a.AvatarURL = p.AvatarURL
	}
	a.UpdatedAt = r.now().UTC()
	cp := *a
	return &cp, nil
}

// SetPassword stores a new local password. A non-empty username replaces the
// current one, which is how provider accounts finish their setup.
func (r *users) SetPassword(ctx context.Context, id, username, password string) (*account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	if username != "" {
		for _, other := range r.byID {
			if other.ID != id && strings.EqualFold(other.Username, username) {
				return nil, ErrUsernameExists
			}
		}
		a.Username = username
	}
	a.PasswordHash = string(hashedPassword)
	a.NeedsPasswordSetup = false
	if !a.HasProvider("local") {
		a.Provider = append(a.Provider, "local")
	}
	a.UpdatedAt = r.now().UTC()
	cp := *a
	return &cp, nil
}

// UpdateAvatar keeps the image and points the avatar at the uploads route.
func (r *users) UpdateAvatar(ctx context.Context, img []byte, contentType, userID string) (*account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[userID]
	if !ok {
		return nil, nil
	}
	a.Avatar = img
	a.AvatarType = contentType
	a.AvatarURL = "avatars/" + userID
	a.UpdatedAt = r.now().UTC()
	cp := *a
	return &cp, nil
}

// Search matches username or email, case-insensitively.
func (r *users) Search(ctx context.Context, q, excludeID string) []account {
	q = strings.ToLower(q)
	var out []account
	for _, a := range r.All() {
		if a.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(a.Username), q) || strings.Contains(a.Email, q) {
			out = append(out, a)
		}
	}
	return out
}
