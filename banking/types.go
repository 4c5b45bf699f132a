/*
Package banking provides the core business logic of the MyBank service.

PURPOSE:
  Bank accounts hold a single non-negative balance. Transactions move money
  in or out of one account, optionally charging a fee. This package owns the
  rules that keep balances consistent, the fee arithmetic, reference
  generation and the channel-dependent status of a posted transaction.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: A posted movement on one account
  - TransactionQuery: Filter/sort/page request over an account's history
  - Channel / Status: Closed sets used by the status resolver

MONEY:
  All monetary values are int64 minor units (cents). 10050 means 100.50.
  A positive amount is a credit, a negative amount a debit. The fee is
  always non-negative and always moves the net result toward zero.

USAGE:
  engine := banking.NewTransactionEngine(store, banking.SystemClock{})
  ref, err := engine.CreateTransaction(ctx, banking.Transaction{
      AccountIban: "ES123456789",
      Amount:      10050,
      Fee:         banking.Int64(100),
  })

SEE ALSO:
  - engine.go: Transaction posting
  - status.go: Status classification and channel redaction
  - query.go: History queries
  - store.go: Repository interfaces
*/
package banking

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION - One posted movement on an account
// =============================================================================

// Transaction is immutable once persisted.
type Transaction struct {
	Reference   string `json:"reference,omitempty"`
	AccountIban string `json:"accountIban"`
	Amount      int64  `json:"amount"`
	Fee         *int64 `json:"fee,omitempty"`
	DateEpoch   *int64 `json:"dateEpoch,omitempty"` // milliseconds since Unix epoch
	Description string `json:"description,omitempty"`
}

// FeeOrZero returns the fee, treating an absent fee as 0.
func (t Transaction) FeeOrZero() int64 {
	if t.Fee == nil {
		return 0
	}
	return *t.Fee
}

// DateEpochOrZero returns the transaction date, or 0 if it was never set.
func (t Transaction) DateEpochOrZero() int64 {
	if t.DateEpoch == nil {
		return 0
	}
	return *t.DateEpoch
}

// Net is the amount actually applied to the account balance.
func (t Transaction) Net() int64 {
	return NetAmount(t.Amount, t.Fee)
}

// NetAmount applies a fee to an amount. The fee reduces a credit and
// reduces the magnitude of a debit.
func NetAmount(amount int64, fee *int64) int64 {
	var f int64
	if fee != nil {
		f = *fee
	}
	if amount < 0 {
		return amount + f
	}
	return amount - f
}

// =============================================================================
// ACCOUNT
// =============================================================================

// NormalizeIban trims surrounding whitespace. IBANs are compared verbatim otherwise.
func NormalizeIban(iban string) string {
	return strings.TrimSpace(iban)
}

// =============================================================================
// QUERY - History request over one account
// =============================================================================

// TransactionQuery selects a page of an account's transactions.
// Since and Until are epoch milliseconds; 0 means unbounded on that side.
type TransactionQuery struct {
	AccountIban    string `json:"accountIban"`
	SortByAmount   bool   `json:"sortByAmount"`
	SortDescending bool   `json:"sortDescending"`
	Since          int64  `json:"since"`
	Until          int64  `json:"until"`
	PageNumber     int    `json:"pageNumber"`
	PageSize       int    `json:"pageSize"`
}

// =============================================================================
// CHANNEL - Origin of a status request
// =============================================================================

type Channel string

const (
	ChannelClient   Channel = "CLIENT"
	ChannelATM      Channel = "ATM"
	ChannelInternal Channel = "INTERNAL"
)

// Channels lists every recognized channel.
var Channels = []Channel{ChannelClient, ChannelATM, ChannelInternal}

// ParseChannel validates a channel code.
func ParseChannel(s string) (Channel, error) {
	if s == "" {
		return "", ErrChannelRequired
	}
	for _, c := range Channels {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrUnknownChannel
}

// Trusted reports whether the channel may see raw amount and fee.
func (c Channel) Trusted() bool { return c == ChannelInternal }

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSettled Status = "SETTLED"
	StatusFuture  Status = "FUTURE"
	StatusInvalid Status = "INVALID"
)

type StatusRequest struct {
	Reference string `json:"reference"`
	Channel   string `json:"channel"`
}

// StatusResponse carries channel-filtered amounts. Amount and Fee are nil
// for unknown references; Fee is always nil outside the internal channel.
type StatusResponse struct {
	Reference string `json:"reference"`
	Status    Status `json:"status"`
	Amount    *int64 `json:"amount,omitempty"`
	Fee       *int64 `json:"fee,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

// Int64 returns a pointer to v. Handy for optional Fee/DateEpoch fields.
func Int64(v int64) *int64 { return &v }

// FormatMinorUnits renders cents as a fixed two-decimal string ("100.50").
func FormatMinorUnits(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// ParseMajorUnits converts a decimal string ("100.50") to minor units.
// Fractions below one cent and values outside int64 cents are rejected.
func ParseMajorUnits(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, ErrSubCentAmount
	}
	if cents.GreaterThan(maxMinorUnits) || cents.LessThan(minMinorUnits) {
		return 0, ErrAmountOutOfRange
	}
	return cents.IntPart(), nil
}
