package banking

import (
	"context"
	"math"
)

// =============================================================================
// QUERY ENGINE - Paginated history of one account
// =============================================================================

// QueryEngine translates a TransactionQuery into a validated RangeQuery.
// Account existence is not cross-checked: an unknown IBAN yields an empty page.
type QueryEngine struct {
	Transactions TransactionRepository
}

func NewQueryEngine(txs TransactionRepository) *QueryEngine {
	return &QueryEngine{Transactions: txs}
}

// QueryTransactions returns the requested page, never nil.
func (q *QueryEngine) QueryTransactions(ctx context.Context, query TransactionQuery) ([]Transaction, error) {
	rq, err := ToRangeQuery(query)
	if err != nil {
		return nil, err
	}
	txs, err := q.Transactions.LoadRange(ctx, rq)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

// ToRangeQuery validates query and computes the inclusive index range
// first = page*size, last = first+size-1.
func ToRangeQuery(query TransactionQuery) (RangeQuery, error) {
	iban := NormalizeIban(query.AccountIban)
	if iban == "" {
		return RangeQuery{}, ErrIbanRequired
	}
	if query.Since > 0 && query.Until > 0 && query.Since > query.Until {
		return RangeQuery{}, ErrInvalidTimeRange
	}
	if query.PageNumber < 0 {
		return RangeQuery{}, ErrNegativePage
	}
	if query.PageSize <= 0 {
		return RangeQuery{}, ErrInvalidPageSize
	}

	orderBy := SortByDate
	if query.SortByAmount {
		orderBy = SortByAmount
	}
	// A page starting past math.MaxInt cannot hold any row; answer it
	// with an empty range instead of letting first/last wrap around.
	if query.PageNumber > (math.MaxInt-query.PageSize+1)/query.PageSize {
		return RangeQuery{
			AccountIban: iban,
			Since:       query.Since,
			Until:       query.Until,
			OrderBy:     orderBy,
			Descending:  query.SortDescending,
			First:       math.MaxInt,
			Last:        math.MaxInt - 1,
		}, nil
	}
	first := query.PageNumber * query.PageSize
	return RangeQuery{
		AccountIban: iban,
		Since:       query.Since,
		Until:       query.Until,
		OrderBy:     orderBy,
		Descending:  query.SortDescending,
		First:       first,
		Last:        first + query.PageSize - 1,
	}, nil
}
