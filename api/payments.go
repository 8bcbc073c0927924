package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// TransferInfo is what the debtor needs to pay a creditor by bank transfer.
type TransferInfo struct {
	CBU              string          `json:"cbu"`
	Amount           decimal.Decimal `json:"monto"`
	Description      string          `json:"descripcion"`
	CreditorUsername string          `json:"acreedorUsername"`
}

type TransferRequest struct {
	CreditorID string   `json:"acreedorId"`
	ExpenseIDs []string `json:"compraIds"`
}

func (c *Client) TransferInfo(ctx context.Context, in TransferRequest) (*TransferInfo, error) {
	env, err := do[TransferInfo](ctx, c, http.MethodPost, "/payments/transfer-info", in)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}
