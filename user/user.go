package user

import (
	"errors"
	"strings"
	"time"

	"github.com/billbatista/brofinance/internal/validation"
	"github.com/shopspring/decimal"
)

var (
	ErrPasswordMismatch = errors.New("passwords don't match")
	ErrBlankEmail       = errors.New("email can't be blank")
)

type User struct {
	ID                 string          `json:"_id"`
	Username           string          `json:"username"`
	Email              string          `json:"email,omitempty"`
	AvatarURL          string          `json:"avatarUrl,omitempty"`
	Provider           []string        `json:"provider,omitempty"`
	Balance            decimal.Decimal `json:"balance"` // Positive = owed to the user
	CBU                string          `json:"cbu,omitempty"`
	ShowCBU            *bool           `json:"showCbu,omitempty"`
	ShowEmail          bool            `json:"showEmail,omitempty"`
	NeedsPasswordSetup bool            `json:"needsPasswordSetup,omitempty"`
	CreatedAt          time.Time       `json:"createdAt,omitzero"`
	UpdatedAt          time.Time       `json:"updatedAt,omitzero"`
}

// CBUVisible reports whether the bank id is shown on the public profile.
// Unset means visible.
func (u User) CBUVisible() bool {
	return u.ShowCBU == nil || *u.ShowCBU
}

func (u User) HasProvider(name string) bool {
	for _, p := range u.Provider {
		if p == name {
			return true
		}
	}
	return false
}

type ProfileUpdate struct {
	Username  string `json:"username" validate:"required,min=3,max=32"`
	CBU       string `json:"cbu,omitempty" validate:"omitempty,max=64"`
	AvatarURL string `json:"avatarUrl,omitempty" validate:"omitempty,max=512"`
	ShowCBU   bool   `json:"showCbu"`
	ShowEmail bool   `json:"showEmail"`
}

// Normalize trims every text field; blank optional fields are dropped from the payload.
func (p ProfileUpdate) Normalize() ProfileUpdate {
	p.Username = strings.TrimSpace(p.Username)
	p.CBU = strings.TrimSpace(p.CBU)
	p.AvatarURL = strings.TrimSpace(p.AvatarURL)
	return p
}

func (p ProfileUpdate) Validate() error {
	return validation.Struct(p.Normalize())
}

type PasswordChange struct {
	Current string `json:"currentPassword"`
	New     string `json:"newPassword" validate:"required,min=5"`
	Confirm string `json:"confirmPassword"`
}

func (p PasswordChange) Validate() error {
	if p.New != p.Confirm {
		return ErrPasswordMismatch
	}
	return validation.Struct(p)
}

// PasswordSetup completes a provider account with local credentials.
type PasswordSetup struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=5"`
	Confirm  string `json:"confirmPassword"`
}

func (p PasswordSetup) Validate() error {
	p.Username = strings.TrimSpace(p.Username)
	if err := validation.Struct(p); err != nil {
		return err
	}
	if p.Password != p.Confirm {
		return ErrPasswordMismatch
	}
	return nil
}

type PasswordReset struct {
	UserID   string `json:"userId" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"newPassword" validate:"required,min=6"`
	Confirm  string `json:"-"`
}

func (p PasswordReset) Validate() error {
	if err := validation.Struct(p); err != nil {
		return err
	}
	if p.Password != p.Confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// NormalizeEmail is applied before password recovery requests.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrBlankEmail
	}
	return email, nil
}
