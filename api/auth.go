package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/billbatista/brofinance/user"
)

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User   user.User `json:"user"`
	Tokens Tokens    `json:"tokens"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userData struct {
	User user.User `json:"user"`
}

type avatarData struct {
	User      user.User `json:"user"`
	AvatarURL string    `json:"avatarUrl"`
}

func (c *Client) SignIn(ctx context.Context, in Credentials) (*AuthResponse, error) {
	env, err := do[AuthResponse](public(ctx), c, http.MethodPost, "/auth/local/sign-in", in)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) SignUp(ctx context.Context, in Registration) (*AuthResponse, error) {
	env, err := do[AuthResponse](public(ctx), c, http.MethodPost, "/auth/local/sign-up", in)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// GoogleCallback exchanges a Google authorization code for a session.
func (c *Client) GoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	in := map[string]string{"code": code}
	env, err := do[AuthResponse](public(ctx), c, http.MethodPost, "/auth/google/callback", in)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) Me(ctx context.Context) (*user.User, error) {
	env, err := do[userData](ctx, c, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	return &env.Data.User, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	_, err := do[any](ctx, c, http.MethodPost, "/auth/sign-out", struct{}{})
	return err
}

// Refresh asks for a new access token using the stored refresh token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	env, err := do[struct {
		AccessToken string `json:"accessToken"`
	}](ctx, c, http.MethodPost, "/auth/refresh", struct{}{})
	if err != nil {
		return "", err
	}
	return env.Data.AccessToken, nil
}

func (c *Client) SetPassword(ctx context.Context, in user.PasswordSetup) (*user.User, error) {
	env, err := do[userData](ctx, c, http.MethodPatch, "/auth/set-password", in)
	if err != nil {
		return nil, err
	}
	return &env.Data.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in user.ProfileUpdate) (*user.User, error) {
	env, err := do[userData](ctx, c, http.MethodPatch, "/auth/profile", in.Normalize())
	if err != nil {
		return nil, err
	}
	return &env.Data.User, nil
}

// UploadAvatar sends img as the multipart field "avatar".
func (c *Client) UploadAvatar(ctx context.Context, filename string, img []byte) (*user.User, error) {
	contentType, err := user.CheckAvatar(img)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("building avatar form: %w", err)
	}
	if _, err := part.Write(img); err != nil {
		return nil, fmt.Errorf("building avatar form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building avatar form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/avatar", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	env, err := send[avatarData](c, req)
	if err != nil {
		return nil, err
	}
	u := env.Data.User
	if u.AvatarURL == "" {
		u.AvatarURL = env.Data.AvatarURL
	}
	return &u, nil
}

func (c *Client) PublicProfile(ctx context.Context, userID string) (*user.User, error) {
	env, err := do[userData](ctx, c, http.MethodGet, "/auth/profile/"+pathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	return &env.Data.User, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	email, err := user.NormalizeEmail(email)
	if err != nil {
		return err
	}
	_, err = do[any](public(ctx), c, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email})
	return err
}

func (c *Client) ResetPassword(ctx context.Context, in user.PasswordReset) error {
	if err := in.Validate(); err != nil {
		return err
	}
	_, err := do[any](public(ctx), c, http.MethodPost, "/auth/reset-password", in)
	return err
}

type HealthStatus struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	env, err := do[HealthStatus](public(ctx), c, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}
