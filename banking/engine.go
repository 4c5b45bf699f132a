/*
engine.go - Transaction posting

PURPOSE:
  Validates an incoming transaction, computes its net effect, enforces
  the non-negative balance invariant and persists the record.

VALIDATION ORDER (each fails fast, nothing is mutated):
  1. accountIban present and non-empty (after trimming)
  2. fee, when present, is >= 0
  3. fee, when present, is <= |amount|
  4. the account exists
  5. a client-supplied reference is not already used

APPLY STEP:
  net    = amount - fee   (credit)
         = amount + fee   (debit)
  after  = before + net
  after < 0  → InsufficientBalanceError, balance untouched

CONCURRENCY:
  Two requests on the same account must not both read the same "before"
  balance. The engine holds a per-account lock across read-check-write,
  and runs the balance write and the ledger save in one TxStore.WithTx
  unit. Checks 4 and 5 are repeated inside the unit so a concurrent
  duplicate reference or a racing account change is caught there.

  Stores backed by a shared database (postgres) also lock the account row
  inside WithTx, which serializes writers running in other processes.

SEE ALSO:
  - reference.go: Reference generation
  - store.go: TxStore contract
*/
package banking

import (
	"context"
	"log/slog"
	"math"
)

// TransactionEngine posts transactions against a TxStore.
type TransactionEngine struct {
	Store  TxStore
	Clock  Clock
	Logger *slog.Logger

	// DrawReference produces reference candidates. Defaults to NewReferenceCandidate.
	DrawReference func() string

	locks *KeyedMutex
}

func NewTransactionEngine(store TxStore, clock Clock) *TransactionEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TransactionEngine{
		Store:         store,
		Clock:         clock,
		Logger:        slog.Default(),
		DrawReference: NewReferenceCandidate,
		locks:         NewKeyedMutex(),
	}
}

// CreateTransaction validates and applies tx, returning its reference.
func (e *TransactionEngine) CreateTransaction(ctx context.Context, tx Transaction) (string, error) {
	tx.AccountIban = NormalizeIban(tx.AccountIban)
	if err := validateTransaction(tx); err != nil {
		return "", err
	}

	exists, err := e.Store.AccountExists(ctx, tx.AccountIban)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrAccountNotFound
	}

	if tx.Reference != "" {
		if err := checkReferenceFree(ctx, e.Store, tx.Reference); err != nil {
			return "", err
		}
	}

	unlock := e.locks.Lock(tx.AccountIban)
	defer unlock()

	var record Transaction
	err = e.Store.WithTx(ctx, func(s Store) error {
		var err error
		record, err = e.apply(ctx, s, tx)
		return err
	})
	if err != nil {
		return "", err
	}

	e.logger().Info("transaction created",
		slog.String("reference", record.Reference),
		slog.String("account", record.AccountIban),
		slog.Int64("net", record.Net()))
	return record.Reference, nil
}

// apply runs inside the unit of work.
func (e *TransactionEngine) apply(ctx context.Context, s Store, tx Transaction) (Transaction, error) {
	if tx.Reference != "" {
		if err := checkReferenceFree(ctx, s, tx.Reference); err != nil {
			return Transaction{}, err
		}
	}

	before, ok, err := s.GetBalance(ctx, tx.AccountIban)
	if err != nil {
		return Transaction{}, err
	}
	if !ok {
		return Transaction{}, ErrAccountNotFound
	}

	net := tx.Net()
	if net > 0 && before > math.MaxInt64-net {
		return Transaction{}, ErrBalanceOverflow
	}
	after := before + net
	if after < 0 {
		return Transaction{}, &InsufficientBalanceError{
			AccountIban: tx.AccountIban,
			Balance:     before,
			Net:         net,
		}
	}

	if err := s.SetBalance(ctx, tx.AccountIban, after); err != nil {
		return Transaction{}, err
	}

	if tx.Reference == "" {
		tx.Reference, err = GenerateReference(ctx, s, e.DrawReference)
		if err != nil {
			return Transaction{}, err
		}
	}
	if tx.DateEpoch == nil {
		tx.DateEpoch = Int64(EpochMillis(e.Clock.Now()))
	}

	if err := s.Save(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (e *TransactionEngine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// validateTransaction runs the input checks that need no store access.
func validateTransaction(tx Transaction) error {
	if tx.AccountIban == "" {
		return ErrIbanRequired
	}
	if tx.Fee == nil {
		return nil
	}
	fee := *tx.Fee
	if fee < 0 {
		return ErrNegativeFee
	}
	// fee > |amount| without negating amount (MinInt64 has no positive twin)
	if tx.Amount < 0 {
		if tx.Amount+fee > 0 {
			return ErrFeeExceedsAmount
		}
	} else if fee > tx.Amount {
		return ErrFeeExceedsAmount
	}
	return nil
}

func checkReferenceFree(ctx context.Context, txs TransactionRepository, ref string) error {
	n, err := txs.CountByReference(ctx, ref)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateReference
	}
	return nil
}
