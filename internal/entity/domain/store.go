package domain

// Reader is the read side of the entity stores. Every method returns copies.
type Reader interface {
	Sales() []Sale
	ServiceJobs() []ServiceJob
	StockItems() []StockItem
	Expenses() []Expense
	Sale(id string) (Sale, bool)
	ServiceJob(id string) (ServiceJob, bool)
	// Records returns the full record list stored under a collection key.
	Records(key string) (any, bool)
}

// SaleSettlement is the subset of a Sale the reconciliation engine may change.
type SaleSettlement struct {
	Status            SaleStatus
	CollectedAmount   Number
	CreditCollectedOn string
}

// ServiceSettlement is the subset of a ServiceJob the reconciliation engine may change.
type ServiceSettlement struct {
	Status                ServiceStatus
	CreditStatus          CreditStatus
	CreditCollectedAmount Number
	CreditCollectedOn     string
	Paid                  Number
	Remaining             Number
}

// Settler is handed to the reconciliation engine. Apart from reads it can only
// write settlement fields.
type Settler interface {
	Reader
	SettleSale(id string, s SaleSettlement) (Sale, error)
	SettleServiceJob(id string, s ServiceSettlement) (ServiceJob, error)
	// Exclusive runs fn while holding the single-writer lock shared by every
	// mutating operation.
	Exclusive(fn func() error) error
}

// Loader replaces whole collections after a storage pull. Each method
// returns how many duplicate ids it had to reassign.
type Loader interface {
	LoadSales(items []Sale) int
	LoadServiceJobs(items []ServiceJob) int
	LoadStockItems(items []StockItem) int
	LoadExpenses(items []Expense) int
}
