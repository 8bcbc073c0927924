package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const publicKey contextKey = "public"

const (
	HeaderAuthorization  = "Authorization"
	HeaderRefreshToken   = "x-refresh-token"
	HeaderNewAccessToken = "x-new-access-token"
)

// Tokens is the credential store the auth middleware reads and updates.
type Tokens interface {
	Credentials(ctx context.Context) (access, refresh string, err error)
	Rotate(ctx context.Context, access string) error
	Expire(ctx context.Context) error
}

// WithPublic marks the request as not needing credentials. Public requests
// never carry auth headers. A 401 on one (a wrong password on sign-in, a bad
// reset token) is an answer about that attempt, not about the stored
// session, so the session state is left unchanged.
func WithPublic(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicKey, true)
}

func IsPublic(ctx context.Context) bool {
	public, _ := ctx.Value(publicKey).(bool)
	return public
}

// Auth attaches the stored token pair and stores any access token the server
// rotated. A 401 expires the session, except on requests marked with
// WithPublic: a failed login attempt keeps whatever session was stored.
func Auth(tokens Tokens) Func {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()
			if IsPublic(ctx) {
				return next.RoundTrip(r)
			}

			access, refresh, err := tokens.Credentials(ctx)
			if err != nil {
				slog.Warn("failed to read credentials", "error", err)
			}

			r = r.Clone(ctx)
			if access != "" {
				r.Header.Set(HeaderAuthorization, "Bearer "+access)
			}
			if refresh != "" {
				r.Header.Set(HeaderRefreshToken, "Bearer "+refresh)
			}

			resp, err := next.RoundTrip(r)
			if err != nil {
				return nil, err
			}

			if rotated := strings.TrimSpace(resp.Header.Get(HeaderNewAccessToken)); rotated != "" {
				if err := tokens.Rotate(ctx, rotated); err != nil {
					slog.Error("failed to store rotated access token", "error", err)
				}
			}

			if resp.StatusCode == http.StatusUnauthorized {
				slog.Info("request unauthorized, clearing session", "path", r.URL.Path)
				if err := tokens.Expire(ctx); err != nil {
					slog.Error("failed to clear session", "error", err)
				}
			}

			return resp, nil
		})
	}
}
