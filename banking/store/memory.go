// Package store provides an in-memory banking.TxStore.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mybank/corebusiness/banking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	accounts     map[string]int64
	transactions map[string]banking.Transaction
	order        []string // references in insertion order, keeps sort ties stable
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[string]int64),
		transactions: make(map[string]banking.Transaction),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, iban string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(iban)
}

func (m *Memory) AccountExists(_ context.Context, iban string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[iban]
	return ok, nil
}

func (m *Memory) GetBalance(_ context.Context, iban string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.accounts[iban]
	return b, ok, nil
}

func (m *Memory) SetBalance(_ context.Context, iban string, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setBalanceLocked(iban, balance)
}

func (m *Memory) createAccountLocked(iban string) error {
	if _, ok := m.accounts[iban]; ok {
		return banking.ErrDuplicateAccount
	}
	m.accounts[iban] = 0
	return nil
}

func (m *Memory) setBalanceLocked(iban string, balance int64) error {
	if _, ok := m.accounts[iban]; !ok {
		return banking.ErrAccountNotFound
	}
	m.accounts[iban] = balance
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) CountByReference(_ context.Context, ref string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.transactions[ref]; ok {
		return 1, nil
	}
	return 0, nil
}

func (m *Memory) LoadByReference(_ context.Context, ref string) (*banking.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(ref), nil
}

func (m *Memory) LoadRange(_ context.Context, q banking.RangeQuery) ([]banking.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rangeLocked(q), nil
}

func (m *Memory) Save(_ context.Context, tx banking.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(tx)
}

func (m *Memory) loadLocked(ref string) *banking.Transaction {
	tx, ok := m.transactions[ref]
	if !ok {
		return nil
	}
	c := clone(tx)
	return &c
}

func (m *Memory) rangeLocked(q banking.RangeQuery) []banking.Transaction {
	var matched []banking.Transaction
	for _, ref := range m.order {
		tx := m.transactions[ref]
		if q.Matches(tx) {
			matched = append(matched, clone(tx))
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := sortKey(matched[i], q.OrderBy), sortKey(matched[j], q.OrderBy)
		if q.Descending {
			return a > b
		}
		return a < b
	})

	limit := q.Limit()
	if limit == 0 || q.First >= len(matched) {
		return []banking.Transaction{}
	}
	end := len(matched)
	if limit < end-q.First {
		end = q.First + limit
	}
	return matched[q.First:end]
}

func (m *Memory) saveLocked(tx banking.Transaction) error {
	if _, ok := m.transactions[tx.Reference]; ok {
		return banking.ErrDuplicateReference
	}
	m.transactions[tx.Reference] = clone(tx)
	m.order = append(m.order, tx.Reference)
	return nil
}

func sortKey(tx banking.Transaction, f banking.SortField) int64 {
	if f == banking.SortByAmount {
		return tx.Amount
	}
	return tx.DateEpochOrZero()
}

// clone detaches the optional fields so callers cannot mutate stored records.
func clone(tx banking.Transaction) banking.Transaction {
	if tx.Fee != nil {
		tx.Fee = banking.Int64(*tx.Fee)
	}
	if tx.DateEpoch != nil {
		tx.DateEpoch = banking.Int64(*tx.DateEpoch)
	}
	return tx
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error or panic.
// The write lock is held for the whole call, so units never interleave.
func (m *Memory) WithTx(ctx context.Context, fn func(banking.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	committed := false
	defer func() {
		if !committed {
			m.restore(snap)
		}
	}()

	if err := fn(&txMemoryView{parent: m}); err != nil {
		return err
	}
	committed = true
	return nil
}

type memorySnapshot struct {
	accounts     map[string]int64
	transactions map[string]banking.Transaction
	order        []string
}

func (m *Memory) snapshot() memorySnapshot {
	accounts := make(map[string]int64, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	txs := make(map[string]banking.Transaction, len(m.transactions))
	for k, v := range m.transactions {
		txs[k] = v
	}
	return memorySnapshot{
		accounts:     accounts,
		transactions: txs,
		order:        append([]string(nil), m.order...),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.transactions = s.transactions
	m.order = s.order
}

// txMemoryView runs with the parent's write lock already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) CreateAccount(_ context.Context, iban string) error {
	return tv.parent.createAccountLocked(iban)
}

func (tv *txMemoryView) AccountExists(_ context.Context, iban string) (bool, error) {
	_, ok := tv.parent.accounts[iban]
	return ok, nil
}

func (tv *txMemoryView) GetBalance(_ context.Context, iban string) (int64, bool, error) {
	b, ok := tv.parent.accounts[iban]
	return b, ok, nil
}

func (tv *txMemoryView) SetBalance(_ context.Context, iban string, balance int64) error {
	return tv.parent.setBalanceLocked(iban, balance)
}

func (tv *txMemoryView) CountByReference(_ context.Context, ref string) (int, error) {
	if _, ok := tv.parent.transactions[ref]; ok {
		return 1, nil
	}
	return 0, nil
}

func (tv *txMemoryView) LoadByReference(_ context.Context, ref string) (*banking.Transaction, error) {
	return tv.parent.loadLocked(ref), nil
}

func (tv *txMemoryView) LoadRange(_ context.Context, q banking.RangeQuery) ([]banking.Transaction, error) {
	return tv.parent.rangeLocked(q), nil
}

func (tv *txMemoryView) Save(_ context.Context, tx banking.Transaction) error {
	return tv.parent.saveLocked(tx)
}
