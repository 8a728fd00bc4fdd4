package domain

import (
	"context"

	ledger "github.com/smallbiznis/shopbooks/internal/ledger/domain"
)

// Engine is the reconciliation engine. Every mutation persists the touched
// collections and refreshes all derived figures before it returns.
type Engine interface {
	AddCollectionEntry(ctx context.Context, c ledger.Candidate) (ledger.CollectionEntry, error)
	CollectCreditSale(ctx context.Context, saleID string, req CollectRequest) (SaleCollection, error)
	CollectCreditService(ctx context.Context, jobID string, req CollectRequest) (ServiceCollection, error)
	CollectPool(ctx context.Context, req PoolRequest) (ledger.CollectionEntry, error)
	RemoveCollectionEntry(ctx context.Context, ref RemoveRef) (ledger.CollectionEntry, error)

	GetDailySummary(ctx context.Context, day string) (DailySummary, error)
	GetDashboardTotals(ctx context.Context) DashboardTotals
	GetCreditCollectedViews(ctx context.Context) CreditViews
	History(ctx context.Context, limit int) []ledger.CollectionEntry

	// Load replaces every in-memory collection with what storage holds.
	Load(ctx context.Context) error
}
