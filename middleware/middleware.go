// Package middleware wraps the API client's transport the way chi wraps
// handlers: each Func takes the next http.RoundTripper and returns one.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

type Func func(http.RoundTripper) http.RoundTripper

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base so that the first middleware sees the request first.
func Chain(base http.RoundTripper, mws ...Func) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// Logger logs every request at debug level, failures at warn.
func Logger(logger *slog.Logger) Func {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("request failed", "method", r.Method, "path", r.URL.Path, "duration", elapsed, "error", err)
				return nil, err
			}
			level := slog.LevelDebug
			if resp.StatusCode >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request", "method", r.Method, "path", r.URL.Path, "status", resp.StatusCode, "duration", elapsed)
			return resp, nil
		})
	}
}
