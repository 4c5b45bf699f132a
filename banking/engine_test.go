package banking_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/mybank/corebusiness/banking"
	"github.com/mybank/corebusiness/banking/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testIban = "ES9121000418450200051332"

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*banking.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := banking.NewService(mem, banking.FixedClock{At: testNow})
	return svc, mem
}

func newFundedAccount(t *testing.T, svc *banking.Service, iban string, balance int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.Accounts.CreateAccount(ctx, iban))
	if balance > 0 {
		require.NoError(t, svc.Accounts.SetBalance(ctx, iban, balance))
	}
}

func balanceOf(t *testing.T, svc *banking.Service, iban string) int64 {
	t.Helper()
	b, err := svc.Accounts.GetBalance(context.Background(), iban)
	require.NoError(t, err)
	return b
}

// =============================================================================
// NET AMOUNT
// =============================================================================

func TestNetAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		fee    *int64
		want   int64
	}{
		{"credit with fee", 10050, banking.Int64(100), 9950},
		{"debit without fee", -1, nil, -1},
		{"credit with almost whole fee", 100, banking.Int64(99), 1},
		{"debit with fee moves toward zero", -500, banking.Int64(20), -480},
		{"zero fee", 700, banking.Int64(0), 700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, banking.NetAmount(tt.amount, tt.fee))
		})
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCreateTransaction_Validation(t *testing.T) {
	// GIVEN: An account with plenty of funds
	// WHEN: Posting malformed transactions
	// THEN: Each is rejected with its own error and the balance is untouched

	svc, _ := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 100000)

	tests := []struct {
		name string
		tx   banking.Transaction
		want error
	}{
		{"missing iban", banking.Transaction{Amount: 10}, banking.ErrIbanRequired},
		{"blank iban", banking.Transaction{AccountIban: "   ", Amount: 10}, banking.ErrIbanRequired},
		{"negative fee", banking.Transaction{AccountIban: testIban, Amount: 10, Fee: banking.Int64(-1)}, banking.ErrNegativeFee},
		{"fee above credit", banking.Transaction{AccountIban: testIban, Amount: 100, Fee: banking.Int64(101)}, banking.ErrFeeExceedsAmount},
		{"fee above debit", banking.Transaction{AccountIban: testIban, Amount: -10, Fee: banking.Int64(11)}, banking.ErrFeeExceedsAmount},
		{"fee above small credit with funds", banking.Transaction{AccountIban: testIban, Amount: 10, Fee: banking.Int64(11)}, banking.ErrFeeExceedsAmount},
		{"unknown account", banking.Transaction{AccountIban: "XX00", Amount: 10}, banking.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transactions.CreateTransaction(ctx, tt.tx)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, int64(100000), balanceOf(t, svc, testIban))
}

func TestCreateTransaction_NegativeFeeCheckedBeforeFeeSize(t *testing.T) {
	svc, _ := newTestService(t)
	newFundedAccount(t, svc, testIban, 0)

	_, err := svc.Transactions.CreateTransaction(context.Background(), banking.Transaction{
		AccountIban: testIban, Amount: 0, Fee: banking.Int64(-5),
	})
	assert.ErrorIs(t, err, banking.ErrNegativeFee)
}

func TestCreateTransaction_FeeEqualToAmountAccepted(t *testing.T) {
	svc, _ := newTestService(t)
	newFundedAccount(t, svc, testIban, 0)

	_, err := svc.Transactions.CreateTransaction(context.Background(), banking.Transaction{
		AccountIban: testIban, Amount: 100, Fee: banking.Int64(100),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), balanceOf(t, svc, testIban))
}

// =============================================================================
// REFERENCES
// =============================================================================

func TestCreateTransaction_DuplicateReferenceRejected(t *testing.T) {
	// GIVEN: A transaction posted with reference "R1"
	// WHEN: Another transaction reuses "R1"
	// THEN: It is rejected and the balance reflects only the first one

	svc, _ := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 0)

	ref, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{
		Reference: "R1", AccountIban: testIban, Amount: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "R1", ref)

	_, err = svc.Transactions.CreateTransaction(ctx, banking.Transaction{
		Reference: "R1", AccountIban: testIban, Amount: 700,
	})
	assert.ErrorIs(t, err, banking.ErrDuplicateReference)
	assert.True(t, banking.IsConflict(err))
	assert.Equal(t, int64(500), balanceOf(t, svc, testIban))
}

func TestCreateTransaction_GeneratedReferencesAreUnique(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 0)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: testIban, Amount: 1})
		require.NoError(t, err)
		assert.Len(t, ref, banking.ReferenceLength)
		assert.Regexp(t, "^[0-9A-F]{8}$", ref)
		assert.False(t, seen[ref], "reference %s issued twice", ref)
		seen[ref] = true
	}
}

func TestCreateTransaction_GeneratedReferenceSkipsTakenCandidate(t *testing.T) {
	// GIVEN: A reference source whose first candidate is already in the ledger
	// WHEN: Posting without a reference
	// THEN: The engine draws again and uses the next free candidate

	svc, _ := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 0)

	_, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{
		Reference: "AAAAAAAA", AccountIban: testIban, Amount: 1,
	})
	require.NoError(t, err)

	candidates := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	svc.Transactions.DrawReference = func() string {
		next := candidates[0]
		candidates = candidates[1:]
		return next
	}

	ref, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: testIban, Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", ref)
}

func TestCreateTransaction_DefaultsDateToNow(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 0)

	ref, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: testIban, Amount: 10})
	require.NoError(t, err)

	tx, err := mem.LoadByReference(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.NotNil(t, tx.DateEpoch)
	assert.Equal(t, testNow.UnixMilli(), *tx.DateEpoch)
}

// =============================================================================
// BALANCE INVARIANT
// =============================================================================

func TestCreateTransaction_EndToEnd(t *testing.T) {
	// GIVEN: A new account with balance 0
	// WHEN: Posting +100.50 (fee 1.00), -0.01, -99.49 and -0.01
	// THEN: Balances go 99.50, 99.49, 0 and the last debit is rejected

	svc, _ := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, "A", 0)

	ref, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{
		Reference: "R1", AccountIban: "A", Amount: 10050, Fee: banking.Int64(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "R1", ref)
	assert.Equal(t, int64(9950), balanceOf(t, svc, "A"))

	_, err = svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: "A", Amount: -1})
	require.NoError(t, err)
	assert.Equal(t, int64(9949), balanceOf(t, svc, "A"))

	_, err = svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: "A", Amount: -9949})
	require.NoError(t, err)
	assert.Equal(t, int64(0), balanceOf(t, svc, "A"))

	_, err = svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: "A", Amount: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, banking.ErrInsufficientBalance)
	var insufficient *banking.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), insufficient.Balance)
	assert.Equal(t, int64(-1), insufficient.Net)
	assert.Equal(t, int64(0), balanceOf(t, svc, "A"))
}

func TestCreateTransaction_BalanceOverflowRejected(t *testing.T) {
	// GIVEN: An account a few cents below the largest representable balance
	// WHEN: Posting credits that would or would not overflow it
	// THEN: Only the overflowing credit is rejected and the balance is untouched by it

	tests := []struct {
		name    string
		amount  int64
		fee     *int64
		wantErr error
	}{
		{"credit overflows", 10, nil, banking.ErrBalanceOverflow},
		{"credit overflows by one", 6, nil, banking.ErrBalanceOverflow},
		{"fee keeps it in range", 10, banking.Int64(5), nil},
		{"credit reaches the maximum", 5, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			newFundedAccount(t, svc, testIban, math.MaxInt64-5)

			_, err := svc.Transactions.CreateTransaction(context.Background(), banking.Transaction{
				AccountIban: testIban, Amount: tt.amount, Fee: tt.fee,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, banking.IsRejected(err))
				assert.Equal(t, int64(math.MaxInt64-5), balanceOf(t, svc, testIban))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(math.MaxInt64), balanceOf(t, svc, testIban))
		})
	}
}

func TestCreateTransaction_RejectedTransactionNotRecorded(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 10)

	_, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{
		Reference: "NOPE", AccountIban: testIban, Amount: -11,
	})
	require.Error(t, err)

	tx, err := mem.LoadByReference(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

// failingSaveStore fails every Save after the balance has been written.
type failingSaveStore struct {
	*store.Memory
}

type failingSaveView struct {
	banking.Store
}

var errDiskFull = errors.New("disk full")

func (f failingSaveView) Save(context.Context, banking.Transaction) error { return errDiskFull }

func (f failingSaveStore) WithTx(ctx context.Context, fn func(banking.Store) error) error {
	return f.Memory.WithTx(ctx, func(s banking.Store) error {
		return fn(failingSaveView{Store: s})
	})
}

func TestCreateTransaction_BalanceAndLedgerAreAtomic(t *testing.T) {
	// GIVEN: A store that fails to persist the ledger record
	// WHEN: Posting a transaction
	// THEN: The balance write is rolled back with it

	mem := store.NewMemory()
	svc := banking.NewService(failingSaveStore{Memory: mem}, banking.FixedClock{At: testNow})
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 1000)

	_, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: testIban, Amount: 500})
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, int64(1000), balanceOf(t, svc, testIban))
}

func TestCreateTransaction_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	// GIVEN: An account holding 100
	// WHEN: 50 goroutines each try to debit 10 at the same time
	// THEN: Exactly 10 succeed and the balance ends at 0

	svc, _ := newTestService(t)
	ctx := context.Background()
	newFundedAccount(t, svc, testIban, 100)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transactions.CreateTransaction(ctx, banking.Transaction{AccountIban: testIban, Amount: -10})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, banking.ErrInsufficientBalance)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.Equal(t, int64(0), balanceOf(t, svc, testIban))
}
