// Package fakeapi is an in-memory BroFinance backend. It serves the same
// routes, envelopes and token rotation as the real API, which makes it good
// enough for demos and for end-to-end tests of the client.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/internal/validation"
	"github.com/billbatista/brofinance/ledger"
	"github.com/billbatista/brofinance/middleware"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultSecret     = "brofinance-dev-secret"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

type contextKey string

const userIDKey contextKey = "userID"

// Server holds the whole backend state behind one lock.
type Server struct {
	logger *slog.Logger
	now    func() time.Time
	tokens *issuer
	users  *users

	mu         sync.Mutex
	categories []ledger.Category
	compras    []*ledger.Expense
	friends    map[string]map[string]bool
	requests   []*friendRequest
	resets     map[string]string
	revoked    map[string]bool
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithSecret sets the HMAC key tokens are signed with.
func WithSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.tokens.secret = []byte(secret)
		}
	}
}

// WithClock replaces time.Now, for token expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func WithTokenTTL(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.tokens.accessTTL = access
		s.tokens.refreshTTL = refresh
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		logger:  slog.Default(),
		now:     time.Now,
		friends: make(map[string]map[string]bool),
		resets:  make(map[string]string),
		revoked: make(map[string]bool),
		tokens: &issuer{
			secret:     []byte(defaultSecret),
			accessTTL:  defaultAccessTTL,
			refreshTTL: defaultRefreshTTL,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	now := func() time.Time { return s.now() }
	s.tokens.now = now
	s.users = newUsers(now)
	for _, name := range []string{"Supermercado", "Transporte", "Restaurante", "Servicios", "Entretenimiento", "Salud", ledger.OtherCategory} {
		s.categories = append(s.categories, ledger.Category{ID: uuid.NewString(), Description: name})
	}
	return s
}

// Handler returns the router, mounted under /api/v1.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestLogger(&chimiddleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	router.Use(chimiddleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/uploads/avatars/{id}", s.avatar)

		r.Post("/auth/local/sign-up", s.signUp)
		r.Post("/auth/local/sign-in", s.signIn)
		r.Post("/auth/google/callback", s.googleCallback)
		r.Post("/auth/refresh", s.refresh)
		r.Post("/auth/forgot-password", s.forgotPassword)
		r.Post("/auth/reset-password", s.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.me)
			r.Post("/auth/sign-out", s.signOut)
			r.Patch("/auth/set-password", s.setPassword)
			r.Patch("/auth/profile", s.updateProfile)
			r.Post("/auth/avatar", s.uploadAvatar)
			r.Get("/auth/profile/{id}", s.publicProfile)

			r.Get("/compras", s.listCompras)
			r.Get("/compras/tipos", s.tipos)
			r.Get("/compras/usuarios", s.usuarios)
			r.Post("/compras", s.createCompra)
			r.Post("/compras/batch", s.createBatch)
			r.Patch("/compras/{id}", s.updateCompra)
			r.Patch("/compras/{id}/{action}", s.transition)

			r.Get("/friends", s.listFriends)
			r.Get("/friends/requests", s.friendRequests)
			r.Get("/friends/status/{id}", s.friendStatus)
			r.Get("/friends/search", s.searchUsers)
			r.Post("/friends/request", s.sendFriendRequest)
			r.Patch("/friends/requests/{id}/{decision}", s.answerFriendRequest)
			r.Delete("/friends/{id}", s.removeFriend)

			r.Post("/payments/transfer-info", s.transferInfo)
		})
	})
	return router
}

// requireAuth accepts a valid access token, or rotates it when the refresh
// token is still good and tells the client through x-new-access-token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := bearer(r.Header.Get(middleware.HeaderAuthorization))
		if c, err := s.tokens.Parse(access, tokenAccess); err == nil {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, c.Subject)))
			return
		}

		refresh, err := s.refreshClaims(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token inválido o expirado")
			return
		}
		rotated, err := s.tokens.Access(refresh.Subject)
		if err != nil {
			s.logger.Error("failed to rotate access token", "error", err)
			writeError(w, http.StatusInternalServerError, "Error interno del servidor")
			return
		}
		w.Header().Set(middleware.HeaderNewAccessToken, rotated)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, refresh.Subject)))
	})
}

func (s *Server) refreshClaims(r *http.Request) (*claims, error) {
	c, err := s.tokens.Parse(bearer(r.Header.Get(middleware.HeaderRefreshToken)), tokenRefresh)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	revoked := s.revoked[c.ID]
	s.mu.Unlock()
	if revoked {
		return nil, errors.New("refresh token revoked")
	}
	if acc, _ := s.users.GetByID(r.Context(), c.Subject); acc == nil {
		return nil, errors.New("unknown user")
	}
	return c, nil
}

func bearer(h string) string {
	token, ok := strings.CutPrefix(strings.TrimSpace(h), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentUser(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, api.HealthStatus{Message: "ok", Timestamp: s.now().UTC()})
}

func writeJSON(w http.ResponseWriter, status int, env api.Envelope[any]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, api.Envelope[any]{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, api.Envelope[any]{Success: true, Message: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.Envelope[any]{Error: msg})
}

// writeInvalid answers 400 with one entry per failed field.
func writeInvalid(w http.ResponseWriter, err error) {
	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	env := api.Envelope[any]{Error: "Datos inválidos"}
	for _, f := range verrs.Fields {
		env.Errors = append(env.Errors, api.FieldError{Path: f.Field, Message: f.Message})
	}
	writeJSON(w, http.StatusBadRequest, env)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return false
	}
	return true
}
