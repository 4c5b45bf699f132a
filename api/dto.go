/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow
  the wire contract existing clients use (camelCase: accountIban,
  dateEpoch, pageSize...). Money stays in integer minor units; the
  *Display fields are a convenience rendering ("100.50").

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Accounts:
    CreateAccountRequest (balances travel as bare integers)

  Transactions:
    banking.Transaction (request body), CreateTransactionResponse,
    banking.TransactionQuery (request body), TransactionDTO

  Status:
    banking.StatusRequest (request body), StatusDTO

VALIDATION:
  Validation is done by the banking services, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/mybank/corebusiness/banking"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CreateAccountRequest is the object form of the create-account body.
// A bare JSON string or plain text IBAN is accepted as well.
type CreateAccountRequest struct {
	Iban string `json:"iban"`
}

// CreateTransactionResponse returns the reference of a posted transaction.
type CreateTransactionResponse struct {
	Reference string `json:"reference"`
}

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	Reference     string  `json:"reference"`
	AccountIban   string  `json:"accountIban"`
	Amount        int64   `json:"amount"`
	Fee           *int64  `json:"fee,omitempty"`
	DateEpoch     int64   `json:"dateEpoch"`
	Description   string  `json:"description,omitempty"`
	AmountDisplay string  `json:"amountDisplay"`
	FeeDisplay    *string `json:"feeDisplay,omitempty"`
	Date          string  `json:"date"`
}

// StatusDTO is the channel-filtered status of a transaction.
type StatusDTO struct {
	Reference     string         `json:"reference"`
	Status        banking.Status `json:"status"`
	Amount        *int64         `json:"amount,omitempty"`
	Fee           *int64         `json:"fee,omitempty"`
	AmountDisplay *string        `json:"amountDisplay,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTransactionDTO(tx banking.Transaction) TransactionDTO {
	dto := TransactionDTO{
		Reference:     tx.Reference,
		AccountIban:   tx.AccountIban,
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		DateEpoch:     tx.DateEpochOrZero(),
		Description:   tx.Description,
		AmountDisplay: banking.FormatMinorUnits(tx.Amount),
		Date:          time.UnixMilli(tx.DateEpochOrZero()).UTC().Format(time.RFC3339),
	}
	if tx.Fee != nil {
		s := banking.FormatMinorUnits(*tx.Fee)
		dto.FeeDisplay = &s
	}
	return dto
}

func toTransactionDTOs(txs []banking.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toStatusDTO(resp banking.StatusResponse) StatusDTO {
	dto := StatusDTO{
		Reference: resp.Reference,
		Status:    resp.Status,
		Amount:    resp.Amount,
		Fee:       resp.Fee,
	}
	if resp.Amount != nil {
		s := banking.FormatMinorUnits(*resp.Amount)
		dto.AmountDisplay = &s
	}
	return dto
}
