package fakeapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/internal/validation"
	"github.com/billbatista/brofinance/middleware"
	"github.com/billbatista/brofinance/user"
	"github.com/go-chi/chi/v5"
)

type signUpRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var in signUpRequest
	if !decode(w, r, &in) {
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		writeInvalid(w, err)
		return
	}

	acc, err := s.users.Register(r.Context(), in.Username, in.Email, in.Password)
	if err != nil {
		switch err {
		case ErrEmailExists, ErrUsernameExists:
			writeError(w, http.StatusConflict, err.Error())
		case ErrBlankPassword, ErrInvalidEmail:
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("failed to register user", "error", err)
			writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		}
		return
	}
	s.logger.Info("user registered", "user_id", acc.ID, "email", acc.Email)
	s.writeSession(w, http.StatusCreated, acc)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if !decode(w, r, &in) {
		return
	}
	if err := validation.Struct(in); err != nil {
		writeInvalid(w, err)
		return
	}

	acc, err := s.users.GetByEmail(r.Context(), in.Email)
	if err != nil {
		s.logger.Error("failed to fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	if acc == nil || s.users.VerifyPassword(acc.PasswordHash, in.Password) != nil {
		writeError(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}
	s.writeSession(w, http.StatusOK, acc)
}

// googleCallback treats the code as the Google account email. Unknown emails
// get a provider account that still has to set a password.
func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &in) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Code))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Código de autorización faltante")
		return
	}

	acc, err := s.users.GetByEmail(r.Context(), email)
	if err != nil {
		s.logger.Error("failed to fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	if acc == nil {
		local, _, _ := strings.Cut(email, "@")
		acc, err = s.users.RegisterProvider(r.Context(), local, email, "google")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.writeSession(w, http.StatusOK, acc)
}

func (s *Server) writeSession(w http.ResponseWriter, status int, acc *account) {
	access, err := s.tokens.Access(acc.ID)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	refresh, err := s.tokens.Refresh(acc.ID)
	if err != nil {
		s.logger.Error("failed to sign refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	writeData(w, status, api.AuthResponse{
		User:   s.view(acc),
		Tokens: api.Tokens{AccessToken: access, RefreshToken: refresh},
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	c, err := s.refreshClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Refresh token inválido")
		return
	}
	access, err := s.tokens.Access(c.Subject)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"accessToken": access})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r, currentUser(r.Context()))
	if !ok {
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": s.view(acc)})
}

// signOut revokes the refresh token the client sent.
func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if c, err := s.tokens.Parse(bearer(r.Header.Get(middleware.HeaderRefreshToken)), tokenRefresh); err == nil {
		s.mu.Lock()
		s.revoked[c.ID] = true
		s.mu.Unlock()
	}
	writeMessage(w, "Sesión cerrada")
}

func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	var in user.PasswordSetup
	if !decode(w, r, &in) {
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Confirm == "" {
		in.Confirm = in.Password
	}
	if err := in.Validate(); err != nil {
		writeInvalid(w, err)
		return
	}

	acc, err := s.users.SetPassword(r.Context(), currentUser(r.Context()), in.Username, in.Password)
	if errors.Is(err, ErrUsernameExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to set password", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": s.view(acc)})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in user.ProfileUpdate
	if !decode(w, r, &in) {
		return
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		writeInvalid(w, err)
		return
	}

	acc, err := s.users.UpdateProfile(r.Context(), currentUser(r.Context()), in)
	if errors.Is(err, ErrUsernameExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": s.view(acc)})
}

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Formulario inválido")
		return
	}
	file, handler, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No se envió ningún archivo")
		return
	}
	defer file.Close()

	img, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("reading file", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	contentType, err := user.CheckAvatar(img)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := s.users.UpdateAvatar(r.Context(), img, contentType, currentUser(r.Context()))
	if err != nil || acc == nil {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return
	}
	s.logger.Info("avatar updated", "user_id", acc.ID, "file", handler.Filename)
	writeData(w, http.StatusOK, map[string]any{"user": s.view(acc), "avatarUrl": acc.AvatarURL})
}

func (s *Server) avatar(w http.ResponseWriter, r *http.Request) {
	acc, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil || acc == nil || len(acc.Avatar) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", acc.AvatarType)
	w.Write(acc.Avatar)
}

// publicProfile hides the email and bank id unless the owner shows them.
func (s *Server) publicProfile(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.account(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	u := s.view(acc)
	if !u.ShowEmail {
		u.Email = ""
	}
	if !u.CBUVisible() {
		u.CBU = ""
	}
	u.Provider = nil
	u.NeedsPasswordSetup = false
	writeData(w, http.StatusOK, map[string]any{"user": u})
}

// forgotPassword answers the same way whether or not the email exists.
func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}
	acc, _ := s.users.GetByEmail(r.Context(), in.Email)
	if acc != nil {
		b := make([]byte, 16)
		rand.Read(b)
		token := hex.EncodeToString(b)
		s.mu.Lock()
		s.resets[acc.ID] = token
		s.mu.Unlock()
		s.logger.Info("password reset requested", "user_id", acc.ID, "token", token)
	}
	writeMessage(w, "Si el email existe, te enviamos un enlace para restablecer la contraseña")
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in user.PasswordReset
	if !decode(w, r, &in) {
		return
	}
	in.Confirm = in.Password
	if err := in.Validate(); err != nil {
		writeInvalid(w, err)
		return
	}

	s.mu.Lock()
	token, ok := s.resets[in.UserID]
	if ok && token == in.Token {
		delete(s.resets, in.UserID)
	}
	s.mu.Unlock()
	if !ok || token != in.Token {
		writeError(w, http.StatusBadRequest, "Token inválido o expirado")
		return
	}

	if _, err := s.users.SetPassword(r.Context(), in.UserID, "", in.Password); err != nil {
		s.logger.Error("failed to reset password", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}
	writeMessage(w, "Contraseña actualizada")
}

// ResetToken returns the pending password reset token for email, the one a
// real backend would have mailed.
func (s *Server) ResetToken(email string) (userID, token string, ok bool) {
	acc, _ := s.users.GetByEmail(context.Background(), email)
	if acc == nil {
		return "", "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok = s.resets[acc.ID]
	return acc.ID, token, ok
}

func (s *Server) account(w http.ResponseWriter, r *http.Request, id string) (*account, bool) {
	acc, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to fetch user", "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return nil, false
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "Usuario no encontrado")
		return nil, false
	}
	return acc, true
}

// view is the account as the API shows it, with the balance worked out from
// the outstanding expenses.
func (s *Server) view(acc *account) user.User {
	u := acc.User
	u.Balance = s.balance(acc.ID)
	return u
}
