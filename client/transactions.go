package client

import (
	"context"
	"net/http"

	"github.com/mybank/corebusiness/api"
	"github.com/mybank/corebusiness/banking"
)

// TransactionClient posts and reads transactions.
type TransactionClient struct {
	c *Client
}

func NewTransactionClient(c *Client) *TransactionClient {
	return &TransactionClient{c: c}
}

// CreateTransaction posts tx and returns the stored reference.
func (t *TransactionClient) CreateTransaction(ctx context.Context, tx banking.Transaction) (string, error) {
	var resp api.CreateTransactionResponse
	if err := t.c.do(ctx, http.MethodPost, "/1.0/transactions/transaction", tx, &resp); err != nil {
		return "", err
	}
	return resp.Reference, nil
}

// QueryTransactions returns one page of an account's history.
func (t *TransactionClient) QueryTransactions(ctx context.Context, q banking.TransactionQuery) ([]api.TransactionDTO, error) {
	var txs []api.TransactionDTO
	if err := t.c.do(ctx, http.MethodPost, "/1.0/transactions/query", q, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetStatus asks for the status of reference as seen by channel.
func (t *TransactionClient) GetStatus(ctx context.Context, reference string, channel banking.Channel) (api.StatusDTO, error) {
	var dto api.StatusDTO
	req := banking.StatusRequest{Reference: reference, Channel: string(channel)}
	err := t.c.do(ctx, http.MethodPost, "/1.0/transactions/status", req, &dto)
	return dto, err
}
