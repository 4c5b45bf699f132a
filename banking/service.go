package banking

// Service bundles the business services built over one TxStore.
// The process entry point owns its lifetime; nothing is global.
type Service struct {
	Accounts     *AccountService
	Transactions *TransactionEngine
	Status       *StatusResolver
	Query        *QueryEngine
}

func NewService(store TxStore, clock Clock) *Service {
	engine := NewTransactionEngine(store, clock)
	accounts := NewAccountService(store)
	accounts.Locks = engine.locks
	return &Service{
		Accounts:     accounts,
		Transactions: engine,
		Status:       NewStatusResolver(store, clock),
		Query:        NewQueryEngine(store),
	}
}
