package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens owns the stored token pair. It is what the auth middleware talks to.
type Tokens struct {
	storage Storage

	mu        sync.Mutex
	listeners []func()
}

func NewTokens(storage Storage) *Tokens {
	return &Tokens{storage: storage}
}

func (t *Tokens) Credentials(ctx context.Context) (string, string, error) {
	access, err := t.get(ctx, KeyAccessToken)
	if err != nil {
		return "", "", err
	}
	refresh, err := t.get(ctx, KeyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *Tokens) get(ctx context.Context, key string) (string, error) {
	v, err := t.storage.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

// HasAccessToken reports whether a session can be verified.
func (t *Tokens) HasAccessToken(ctx context.Context) (bool, error) {
	access, err := t.get(ctx, KeyAccessToken)
	return access != "", err
}

func (t *Tokens) Store(ctx context.Context, access, refresh string) error {
	if err := t.storage.Set(ctx, KeyAccessToken, access); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}
	if err := t.storage.Set(ctx, KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return nil
}

// Rotate replaces the access token and keeps the refresh token.
func (t *Tokens) Rotate(ctx context.Context, access string) error {
	return t.storage.Set(ctx, KeyAccessToken, access)
}

// Expire drops the tokens and the cached user, then tells the listeners.
func (t *Tokens) Expire(ctx context.Context) error {
	err := t.storage.Delete(ctx, allKeys...)

	t.mu.Lock()
	listeners := append([]func(){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return err
}

// OnExpire registers fn to run after every Expire.
func (t *Tokens) OnExpire(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// AccessTokenExpiry reads the exp claim without verifying the signature. The
// server stays the authority on validity.
func AccessTokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
