/*
store.go - Persistence interfaces for accounts and transactions

PURPOSE:
  Defines the boundary between the business logic and the database.
  One typed repository per entity kind, with typed filter and sort
  parameters. Stores never build SQL from caller-supplied text: the sort
  column comes from a closed SortField set and every value is bound as a
  query parameter.

KEY INTERFACES:
  AccountRepository:     Balance store (exists, read, overwrite)
  TransactionRepository: Ledger of posted transactions (count, load, range, save)
  Store:                 Both repositories over the same backend
  TxStore:               Store + all-or-nothing unit of work

ATOMIC UNIT:
  TransactionEngine writes the new balance and the transaction record
  inside one WithTx call. Either both are committed or neither is, so a
  crash can never leave a balance change without its ledger entry.

IMPLEMENTATIONS:
  - banking/store/memory.go: In-memory for tests and development
  - store/sqlite/sqlite.go: SQLite (default)
  - store/postgres/postgres.go: PostgreSQL

SEE ALSO:
  - engine.go: Uses WithTx for the apply step
*/
package banking

import (
	"context"
	"math"
)

// =============================================================================
// ACCOUNT REPOSITORY - Balance store
// =============================================================================

type AccountRepository interface {
	// CreateAccount registers iban with balance 0.
	// Returns ErrDuplicateAccount if it already exists.
	CreateAccount(ctx context.Context, iban string) error

	// AccountExists reports whether iban is registered.
	AccountExists(ctx context.Context, iban string) (bool, error)

	// GetBalance returns the current balance. ok is false for unknown accounts.
	GetBalance(ctx context.Context, iban string) (balance int64, ok bool, err error)

	// SetBalance overwrites the balance unconditionally.
	// Returns ErrAccountNotFound if iban is not registered.
	SetBalance(ctx context.Context, iban string, balance int64) error
}

// =============================================================================
// TRANSACTION REPOSITORY - Ledger
// =============================================================================

type SortField int

const (
	SortByDate SortField = iota
	SortByAmount
)

func (f SortField) String() string {
	if f == SortByAmount {
		return "amount"
	}
	return "dateEpoch"
}

// RangeQuery selects a closed index range [First, Last] of an account's
// transactions after filtering and sorting.
type RangeQuery struct {
	AccountIban string
	Since       int64 // 0 = unbounded
	Until       int64 // 0 = unbounded
	OrderBy     SortField
	Descending  bool
	First       int
	Last        int
}

// Matches reports whether tx passes the account and date filters.
func (q RangeQuery) Matches(tx Transaction) bool {
	if tx.AccountIban != q.AccountIban {
		return false
	}
	var at int64
	if tx.DateEpoch != nil {
		at = *tx.DateEpoch
	}
	if q.Since > 0 && at < q.Since {
		return false
	}
	if q.Until > 0 && at > q.Until {
		return false
	}
	return true
}

// Limit is the number of rows in [First, Last]. A negative First selects nothing.
func (q RangeQuery) Limit() int {
	if q.First < 0 || q.Last < q.First {
		return 0
	}
	n := q.Last - q.First
	if n == math.MaxInt {
		return math.MaxInt
	}
	return n + 1
}

type TransactionRepository interface {
	// CountByReference returns how many transactions use ref (0 or 1).
	CountByReference(ctx context.Context, ref string) (int, error)

	// LoadByReference returns the transaction or nil if unknown.
	LoadByReference(ctx context.Context, ref string) (*Transaction, error)

	// LoadRange returns the filtered, sorted, paginated slice.
	LoadRange(ctx context.Context, q RangeQuery) ([]Transaction, error)

	// Save persists tx keyed by its reference.
	// Returns ErrDuplicateReference if the key is taken.
	Save(ctx context.Context, tx Transaction) error
}

// =============================================================================
// STORE / TXSTORE
// =============================================================================

type Store interface {
	AccountRepository
	TransactionRepository
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, everything fn wrote is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
