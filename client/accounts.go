package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mybank/corebusiness/api"
)

// AccountClient manages accounts and balances.
type AccountClient struct {
	c *Client
}

func NewAccountClient(c *Client) *AccountClient {
	return &AccountClient{c: c}
}

// CreateAccount registers iban with balance 0.
func (a *AccountClient) CreateAccount(ctx context.Context, iban string) error {
	return a.c.do(ctx, http.MethodPost, "/1.0/accounts/account", api.CreateAccountRequest{Iban: iban}, nil)
}

// CheckAccount reports whether iban exists.
func (a *AccountClient) CheckAccount(ctx context.Context, iban string) (bool, error) {
	var ok bool
	err := a.c.do(ctx, http.MethodGet, "/1.0/accounts/account/"+url.PathEscape(iban), nil, &ok)
	return ok, err
}

// GetBalance returns the balance in minor units.
func (a *AccountClient) GetBalance(ctx context.Context, iban string) (int64, error) {
	var balance int64
	if err := a.c.do(ctx, http.MethodGet, "/1.0/accounts/account/"+url.PathEscape(iban)+"/balance", nil, &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// SetBalance overwrites the balance.
func (a *AccountClient) SetBalance(ctx context.Context, iban string, balance int64) error {
	return a.c.do(ctx, http.MethodPut, "/1.0/accounts/account/"+url.PathEscape(iban)+"/balance", balance, nil)
}

// SetBalanceDecimal overwrites the balance from a major-unit decimal ("100.50").
func (a *AccountClient) SetBalanceDecimal(ctx context.Context, iban, amount string) error {
	return a.c.do(ctx, http.MethodPut, "/1.0/accounts/account/"+url.PathEscape(iban)+"/balance", amount, nil)
}
