package banking

import (
	"context"
	"log/slog"
)

// =============================================================================
// ACCOUNT SERVICE - Account registration and balance access
// =============================================================================

// AccountService manages bank accounts. Balances change through
// TransactionEngine; SetBalance is the administrative overwrite.
type AccountService struct {
	Accounts AccountRepository
	Logger   *slog.Logger

	// Locks, when shared with a TransactionEngine, keeps SetBalance from
	// interleaving with a transaction on the same account.
	Locks *KeyedMutex
}

func NewAccountService(accounts AccountRepository) *AccountService {
	return &AccountService{Accounts: accounts, Logger: slog.Default()}
}

// CreateAccount registers iban with an initial balance of 0.
func (s *AccountService) CreateAccount(ctx context.Context, iban string) error {
	iban = NormalizeIban(iban)
	if iban == "" {
		return ErrIbanRequired
	}
	exists, err := s.Accounts.AccountExists(ctx, iban)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateAccount
	}
	if err := s.Accounts.CreateAccount(ctx, iban); err != nil {
		return err
	}
	s.logger().Info("bank account created", slog.String("account", iban))
	return nil
}

// CheckAccount reports whether iban is registered.
func (s *AccountService) CheckAccount(ctx context.Context, iban string) (bool, error) {
	iban = NormalizeIban(iban)
	if iban == "" {
		return false, nil
	}
	return s.Accounts.AccountExists(ctx, iban)
}

// GetBalance returns the balance of iban or ErrAccountNotFound.
func (s *AccountService) GetBalance(ctx context.Context, iban string) (int64, error) {
	balance, ok, err := s.Accounts.GetBalance(ctx, NormalizeIban(iban))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

// SetBalance overwrites the balance of an existing account. Negative values are rejected.
func (s *AccountService) SetBalance(ctx context.Context, iban string, balance int64) error {
	iban = NormalizeIban(iban)
	if s.Locks != nil {
		defer s.Locks.Lock(iban)()
	}
	prev, ok, err := s.Accounts.GetBalance(ctx, iban)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	if balance < 0 {
		return ErrNegativeBalance
	}
	if err := s.Accounts.SetBalance(ctx, iban, balance); err != nil {
		return err
	}
	s.logger().Info("balance changed",
		slog.String("account", iban),
		slog.Int64("from", prev),
		slog.Int64("to", balance))
	return nil
}

func (s *AccountService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
