package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/billbatista/brofinance/ledger"
	"github.com/shopspring/decimal"
)

// ListParams are the server-side filters of GET /compras. Zero values are
// left out of the query.
type ListParams struct {
	Page    int
	Limit   int
	Sort    ledger.SortKey
	Order   ledger.Order
	Tipo    string
	Usuario string
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if p.Order != "" {
		q.Set("order", string(p.Order))
	}
	if p.Tipo != "" {
		q.Set("tipo", p.Tipo)
	}
	if p.Usuario != "" {
		q.Set("usuario", p.Usuario)
	}
	return q
}

// Page is one page of expenses.
type Page struct {
	Expenses   []ledger.Expense
	Pagination Pagination
}

func (c *Client) ListCompras(ctx context.Context, p ListParams) (*Page, error) {
	path := "/compras"
	if q := p.query().Encode(); q != "" {
		path += "?" + q
	}
	env, err := do[[]ledger.Expense](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	page := &Page{Expenses: env.Data}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	}
	return page, nil
}

// ComprasWith lists the expenses shared with another user.
func (c *Client) ComprasWith(ctx context.Context, userID string) ([]ledger.Expense, error) {
	page, err := c.ListCompras(ctx, ListParams{Page: 1, Limit: 200, Usuario: userID})
	if err != nil {
		return nil, err
	}
	return page.Expenses, nil
}

func (c *Client) Tipos(ctx context.Context) ([]ledger.Category, error) {
	env, err := do[[]ledger.Category](ctx, c, http.MethodGet, "/compras/tipos", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Roommate is a user the current user can split expenses with.
type Roommate struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	AvatarURL string          `json:"avatarUrl,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

func (c *Client) Usuarios(ctx context.Context) ([]Roommate, error) {
	env, err := do[[]Roommate](ctx, c, http.MethodGet, "/compras/usuarios", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) CreateCompra(ctx context.Context, in ledger.CreateInput) (*ledger.Expense, error) {
	env, err := do[ledger.Expense](ctx, c, http.MethodPost, "/compras", in)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// CreateCompraBatch creates one record per debtor.
func (c *Client) CreateCompraBatch(ctx context.Context, in ledger.BatchInput) ([]ledger.Expense, error) {
	env, err := do[[]ledger.Expense](ctx, c, http.MethodPost, "/compras/batch", in)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) UpdateCompra(ctx context.Context, id string, in ledger.UpdateInput) (*ledger.Expense, error) {
	env, err := do[ledger.Expense](ctx, c, http.MethodPatch, "/compras/"+pathEscape(id), in)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Transition applies a lifecycle action on the server.
func (c *Client) Transition(ctx context.Context, id string, action ledger.Action) (*ledger.Expense, error) {
	env, err := do[ledger.Expense](ctx, c, http.MethodPatch, "/compras/"+pathEscape(id)+"/"+string(action), struct{}{})
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) Accept(ctx context.Context, id string) (*ledger.Expense, error) {
	return c.Transition(ctx, id, ledger.ActionAccept)
}

func (c *Client) Reject(ctx context.Context, id string) (*ledger.Expense, error) {
	return c.Transition(ctx, id, ledger.ActionReject)
}

func (c *Client) RequestPayment(ctx context.Context, id string) (*ledger.Expense, error) {
	return c.Transition(ctx, id, ledger.ActionRequestPayment)
}

func (c *Client) ConfirmPayment(ctx context.Context, id string) (*ledger.Expense, error) {
	return c.Transition(ctx, id, ledger.ActionConfirmPayment)
}

func (c *Client) RejectPayment(ctx context.Context, id string) (*ledger.Expense, error) {
	return c.Transition(ctx, id, ledger.ActionRejectPayment)
}

func pathEscape(s string) string {
	return url.PathEscape(s)
}
