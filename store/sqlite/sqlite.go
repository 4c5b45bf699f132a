/*
Package sqlite provides a SQLite-backed implementation of banking.TxStore.

PURPOSE:
  Persists accounts (the balance store) and transactions (the ledger)
  in one SQLite database, so a balance change and its ledger record can
  be committed in the same SQL transaction.

INTERFACES IMPLEMENTED:
  banking.AccountRepository:     accounts table
  banking.TransactionRepository: transactions table
  banking.TxStore:               WithTx over sql.Tx

KEY TABLES:
  accounts:      iban → balance (CHECK balance >= 0)
  transactions:  reference → posted transaction (never updated or deleted)

INDEXES:
  - idx_transactions_account_date:   history sorted by date (hot path)
  - idx_transactions_account_amount: history sorted by amount

QUERY SAFETY:
  Every value is a bound parameter. ORDER BY columns come from a fixed
  map keyed by banking.SortField; caller text never reaches the SQL.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole unit, so read-check-write sequences inside it are serialized.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/mybank.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := banking.NewService(store, banking.SystemClock{})

SEE ALSO:
  - banking/store.go: Interface definitions
  - banking/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/mybank/corebusiness/banking"
)

// Store implements banking.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (balance store)
	CREATE TABLE IF NOT EXISTS accounts (
		iban TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Transactions (ledger, never updated)
	CREATE TABLE IF NOT EXISTS transactions (
		reference TEXT PRIMARY KEY,
		account_iban TEXT NOT NULL,
		amount INTEGER NOT NULL,
		fee INTEGER,
		date_epoch INTEGER NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_date
		ON transactions(account_iban, date_epoch);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_amount
		ON transactions(account_iban, amount);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNT STORE (banking.AccountRepository)
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, iban string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createAccount(ctx, s.db, iban)
}

func (s *Store) AccountExists(ctx context.Context, iban string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return accountExists(ctx, s.db, iban)
}

func (s *Store) GetBalance(ctx context.Context, iban string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, iban)
}

func (s *Store) SetBalance(ctx context.Context, iban string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setBalance(ctx, s.db, iban, balance)
}

func createAccount(ctx context.Context, db querier, iban string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx,
		"INSERT INTO accounts (iban, balance, created_at, updated_at) VALUES (?, 0, ?, ?)",
		iban, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return banking.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func accountExists(ctx context.Context, db querier, iban string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE iban = ?",
		iban,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return count > 0, nil
}

func getBalance(ctx context.Context, db querier, iban string) (int64, bool, error) {
	var balance int64
	err := db.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE iban = ?",
		iban,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, true, nil
}

func setBalance(ctx context.Context, db querier, iban string, balance int64) error {
	res, err := db.ExecContext(ctx,
		"UPDATE accounts SET balance = ?, updated_at = ? WHERE iban = ?",
		balance, time.Now().UTC().Format(time.RFC3339), iban,
	)
	if err != nil {
		if isCheckConstraintError(err) {
			return banking.ErrNegativeBalance
		}
		return fmt.Errorf("failed to update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n == 0 {
		return banking.ErrAccountNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTION STORE (banking.TransactionRepository)
// =============================================================================

const transactionColumns = `reference, account_iban, amount, fee, date_epoch, description`

// orderColumns whitelists the sortable columns.
var orderColumns = map[banking.SortField]string{
	banking.SortByDate:   "date_epoch",
	banking.SortByAmount: "amount",
}

func (s *Store) CountByReference(ctx context.Context, ref string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countByReference(ctx, s.db, ref)
}

func (s *Store) LoadByReference(ctx context.Context, ref string) (*banking.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadByReference(ctx, s.db, ref)
}

func (s *Store) LoadRange(ctx context.Context, q banking.RangeQuery) ([]banking.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadRange(ctx, s.db, q)
}

func (s *Store) Save(ctx context.Context, tx banking.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(ctx, s.db, tx)
}

func countByReference(ctx context.Context, db querier, ref string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE reference = ?",
		ref,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func loadByReference(ctx context.Context, db querier, ref string) (*banking.Transaction, error) {
	txs, err := queryTransactions(ctx, db,
		"SELECT "+transactionColumns+" FROM transactions WHERE reference = ?", ref)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func loadRange(ctx context.Context, db querier, q banking.RangeQuery) ([]banking.Transaction, error) {
	if q.Limit() == 0 {
		return []banking.Transaction{}, nil
	}

	var sb strings.Builder
	args := []any{q.AccountIban}
	sb.WriteString("SELECT " + transactionColumns + " FROM transactions WHERE account_iban = ?")
	if q.Since > 0 {
		sb.WriteString(" AND date_epoch >= ?")
		args = append(args, q.Since)
	}
	if q.Until > 0 {
		sb.WriteString(" AND date_epoch <= ?")
		args = append(args, q.Until)
	}

	column, ok := orderColumns[q.OrderBy]
	if !ok {
		column = orderColumns[banking.SortByDate]
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	// rowid keeps ties in insertion order
	sb.WriteString(" ORDER BY " + column + " " + direction + ", rowid ASC LIMIT ? OFFSET ?")
	args = append(args, q.Limit(), q.First)

	txs, err := queryTransactions(ctx, db, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []banking.Transaction{}
	}
	return txs, nil
}

func save(ctx context.Context, db querier, tx banking.Transaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions
		(reference, account_iban, amount, fee, date_epoch, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		tx.Reference,
		tx.AccountIban,
		tx.Amount,
		nullInt64(tx.Fee),
		tx.DateEpochOrZero(),
		tx.Description,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return banking.ErrDuplicateReference
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func queryTransactions(ctx context.Context, db querier, query string, args ...any) ([]banking.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []banking.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (banking.Transaction, error) {
	var (
		tx          banking.Transaction
		fee         sql.NullInt64
		dateEpoch   int64
		description sql.NullString
	)

	err := rows.Scan(&tx.Reference, &tx.AccountIban, &tx.Amount, &fee, &dateEpoch, &description)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if fee.Valid {
		tx.Fee = banking.Int64(fee.Int64)
	}
	tx.DateEpoch = banking.Int64(dateEpoch)
	tx.Description = description.String
	return tx, nil
}

// =============================================================================
// TRANSACTIONAL STORE (banking.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store banking.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every call on the open sql.Tx; the parent lock is already held.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateAccount(ctx context.Context, iban string) error {
	return createAccount(ctx, ts.tx, iban)
}

func (ts *txStore) AccountExists(ctx context.Context, iban string) (bool, error) {
	return accountExists(ctx, ts.tx, iban)
}

func (ts *txStore) GetBalance(ctx context.Context, iban string) (int64, bool, error) {
	return getBalance(ctx, ts.tx, iban)
}

func (ts *txStore) SetBalance(ctx context.Context, iban string, balance int64) error {
	return setBalance(ctx, ts.tx, iban, balance)
}

func (ts *txStore) CountByReference(ctx context.Context, ref string) (int, error) {
	return countByReference(ctx, ts.tx, ref)
}

func (ts *txStore) LoadByReference(ctx context.Context, ref string) (*banking.Transaction, error) {
	return loadByReference(ctx, ts.tx, ref)
}

func (ts *txStore) LoadRange(ctx context.Context, q banking.RangeQuery) ([]banking.Transaction, error) {
	return loadRange(ctx, ts.tx, q)
}

func (ts *txStore) Save(ctx context.Context, tx banking.Transaction) error {
	return save(ctx, ts.tx, tx)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "accounts"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func isCheckConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintCheck
	}
	return false
}
