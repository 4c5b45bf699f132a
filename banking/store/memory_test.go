package store_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mybank/corebusiness/banking"
	"github.com/mybank/corebusiness/banking/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Accounts(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.CreateAccount(ctx, "A"))
	assert.ErrorIs(t, m.CreateAccount(ctx, "A"), banking.ErrDuplicateAccount)

	ok, err := m.AccountExists(ctx, "A")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.SetBalance(ctx, "A", 42))
	b, found, err := m.GetBalance(ctx, "A")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), b)

	_, found, err = m.GetBalance(ctx, "B")
	require.NoError(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, m.SetBalance(ctx, "B", 1), banking.ErrAccountNotFound)
}

func TestMemory_LoadReturnsCopies(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, banking.Transaction{Reference: "R1", AccountIban: "A", Amount: 5, Fee: banking.Int64(1)}))

	tx, err := m.LoadByReference(ctx, "R1")
	require.NoError(t, err)
	require.NotNil(t, tx)
	*tx.Fee = 99

	again, err := m.LoadByReference(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), *again.Fee)

	missing, err := m.LoadByReference(ctx, "R2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, m.Save(ctx, banking.Transaction{Reference: "R1", AccountIban: "A"}), banking.ErrDuplicateReference)
}

func TestMemory_LoadRangeTiesKeepInsertionOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	for _, ref := range []string{"X", "Y", "Z"} {
		require.NoError(t, m.Save(ctx, banking.Transaction{Reference: ref, AccountIban: "A", Amount: 10, DateEpoch: banking.Int64(7)}))
	}

	txs, err := m.LoadRange(ctx, banking.RangeQuery{AccountIban: "A", OrderBy: banking.SortByAmount, Descending: true, First: 0, Last: 9})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "X", txs[0].Reference)
	assert.Equal(t, "Y", txs[1].Reference)
	assert.Equal(t, "Z", txs[2].Reference)
}

func TestMemory_LoadRangeOutOfBounds(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Save(ctx, banking.Transaction{Reference: "R1", AccountIban: "A", Amount: 1}))

	for _, q := range []banking.RangeQuery{
		{AccountIban: "A", First: -4, Last: 3},
		{AccountIban: "A", First: math.MaxInt - 1, Last: math.MaxInt},
		{AccountIban: "A", First: 5, Last: 2},
	} {
		var txs []banking.Transaction
		var err error
		require.NotPanics(t, func() { txs, err = m.LoadRange(ctx, q) })
		require.NoError(t, err)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)
	}

	txs, err := m.LoadRange(ctx, banking.RangeQuery{AccountIban: "A", First: 0, Last: math.MaxInt})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestMemory_WithTxRollsBackOnError(t *testing.T) {
	// GIVEN: An account with balance 100
	// WHEN: A unit writes the balance and a transaction, then fails
	// THEN: Neither write is visible afterwards

	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateAccount(ctx, "A"))
	require.NoError(t, m.SetBalance(ctx, "A", 100))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s banking.Store) error {
		require.NoError(t, s.SetBalance(ctx, "A", 50))
		require.NoError(t, s.Save(ctx, banking.Transaction{Reference: "R1", AccountIban: "A", Amount: -50}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, _, err := m.GetBalance(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b)

	n, err := m.CountByReference(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemory_WithTxRollsBackOnPanic(t *testing.T) {
	// GIVEN: A unit that writes the balance and then panics
	// WHEN: The panic is recovered by the caller
	// THEN: The balance write is undone and the store is still usable

	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateAccount(ctx, "A"))
	require.NoError(t, m.SetBalance(ctx, "A", 100))

	assert.Panics(t, func() {
		_ = m.WithTx(ctx, func(s banking.Store) error {
			_ = s.SetBalance(ctx, "A", 1)
			panic("handler bug")
		})
	})

	b, _, err := m.GetBalance(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b)
	require.NoError(t, m.SetBalance(ctx, "A", 5))
}

func TestMemory_WithTxCommits(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateAccount(ctx, "A"))

	err := m.WithTx(ctx, func(s banking.Store) error {
		if err := s.SetBalance(ctx, "A", 7); err != nil {
			return err
		}
		return s.Save(ctx, banking.Transaction{Reference: "R1", AccountIban: "A", Amount: 7})
	})
	require.NoError(t, err)

	b, _, _ := m.GetBalance(ctx, "A")
	assert.Equal(t, int64(7), b)
	n, _ := m.CountByReference(ctx, "R1")
	assert.Equal(t, 1, n)
}
