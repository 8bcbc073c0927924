package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/billbatista/brofinance/ledger"
	"github.com/billbatista/brofinance/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api/v1")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestSignIn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/local/sign-in", r.URL.Path)
		var in Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "bro@example.com", in.Email)

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"user":   map[string]any{"_id": "u1", "username": "bro", "balance": -12.5},
				"tokens": map[string]any{"accessToken": "a", "refreshToken": "r"},
			},
		})
	})

	res, err := c.SignIn(context.Background(), Credentials{Email: "bro@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "-12.5", res.User.Balance.String())
	assert.Equal(t, Tokens{AccessToken: "a", RefreshToken: "r"}, res.Tokens)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantFields string
		unauth     bool
	}{
		{name: "server message", status: http.StatusBadRequest, body: `{"success":false,"error":"Credenciales inválidas"}`, wantMsg: "Credenciales inválidas", wantFields: "Credenciales inválidas"},
		{name: "field errors", status: http.StatusUnprocessableEntity, body: `{"success":false,"error":"Validation failed","errors":[{"path":"username","message":"too short"},{"path":"cbu","message":"invalid"}]}`, wantMsg: "Validation failed", wantFields: "too short. invalid"},
		{name: "no body", status: http.StatusBadGateway, body: ``, wantMsg: "HTTP 502", wantFields: "HTTP 502"},
		{name: "html body", status: http.StatusInternalServerError, body: `<html>oops</html>`, wantMsg: "HTTP 500", wantFields: "HTTP 500"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"success":false,"error":"Token expirado"}`, wantMsg: "Token expirado", wantFields: "Token expirado", unauth: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Me(context.Background())
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Error())
			assert.Equal(t, tt.wantFields, Message(err))
			assert.Equal(t, tt.unauth, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestSuccessFalseIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Login failed"})
	})
	_, err := c.SignIn(context.Background(), Credentials{})
	assert.EqualError(t, err, "Login failed")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL).Me(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "could not connect to the server", Message(err))
}

func TestListCompras(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/compras", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "montoTotal", r.URL.Query().Get("sort"))
		assert.Equal(t, "asc", r.URL.Query().Get("order"))
		assert.Equal(t, "u2", r.URL.Query().Get("usuario"))
		assert.False(t, r.URL.Query().Has("tipo"))

		io.WriteString(w, `{
			"success": true,
			"data": [{"_id": "c1", "montoTotal": 10, "tipo": "t1", "acreedorId": "u1", "deudorId": "u2"}],
			"pagination": {"page": 2, "limit": 10, "total": 11, "pages": 2}
		}`)
	})

	page, err := c.ListCompras(context.Background(), ListParams{Page: 2, Limit: 10, Sort: ledger.SortTotal, Order: ledger.OrderAsc, Usuario: "u2"})
	require.NoError(t, err)
	require.Len(t, page.Expenses, 1)
	assert.Equal(t, "u2", page.Expenses[0].Debtor.ID)
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 11, Pages: 2}, page.Pagination)
}

func TestCreateCompraBatch_SendsNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"montoTotal":3000`)
		assert.Contains(t, string(body), `"montoDeudor":1000`)
		io.WriteString(w, `{"success": true, "data": []}`)
	})

	_, err := c.CreateCompraBatch(context.Background(), ledger.BatchInput{
		Descripcion: "Uber",
		MontoTotal:  decimal.NewFromInt(3000),
		Tipo:        "t1",
		Deudores:    []ledger.BatchDebtor{{DeudorID: "u2", MontoDeudor: decimal.NewFromInt(1000)}},
	})
	require.NoError(t, err)
}

func TestTransition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/compras/c1/request-payment", r.URL.Path)
		io.WriteString(w, `{"success": true, "data": {"_id": "c1", "estado": "pago_pendiente"}}`)
	})

	e, err := c.RequestPayment(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatePaymentPending, e.State)
}

func TestUploadAvatar(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		f, hdr, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "me.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		io.WriteString(w, `{"success": true, "data": {"user": {"_id": "u1", "username": "bro"}, "avatarUrl": "avatars/u1.png"}}`)
	})

	u, err := c.UploadAvatar(context.Background(), "me.png", png)
	require.NoError(t, err)
	assert.Equal(t, "avatars/u1.png", u.AvatarURL)

	_, err = c.UploadAvatar(context.Background(), "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, user.ErrAvatarNotImage)
}

func TestForgotPassword_NormalizesEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "bro@example.com", in["email"])
		io.WriteString(w, `{"success": true, "message": "sent"}`)
	})
	require.NoError(t, c.ForgotPassword(context.Background(), " Bro@Example.com "))
}

func TestResetPassword_ValidatesLocally(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		io.WriteString(w, `{"success": true}`)
	})

	err := c.ResetPassword(context.Background(), user.PasswordReset{UserID: "u1", Token: "t", Password: "secret", Confirm: "other1"})
	assert.ErrorIs(t, err, user.ErrPasswordMismatch)
	assert.False(t, called)
}

func TestTransferInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in TransferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, TransferRequest{CreditorID: "u1", ExpenseIDs: []string{"c1", "c2"}}, in)
		io.WriteString(w, `{"success": true, "data": {"cbu": "0000003100010000000001", "monto": 85.5, "descripcion": "Uber, Luz", "acreedorUsername": "alice"}}`)
	})

	info, err := c.TransferInfo(context.Background(), TransferRequest{CreditorID: "u1", ExpenseIDs: []string{"c1", "c2"}})
	require.NoError(t, err)
	assert.Equal(t, "85.5", info.Amount.String())
	assert.Equal(t, "alice", info.CreditorUsername)
}
