package domain

import (
	"github.com/smallbiznis/shopbooks/internal/aggregate"
	"github.com/smallbiznis/shopbooks/internal/creditview"
	entity "github.com/smallbiznis/shopbooks/internal/entity/domain"
	ledger "github.com/smallbiznis/shopbooks/internal/ledger/domain"
)

// CollectRequest settles a credit sale or job. A nil amount collects the
// full outstanding balance.
type CollectRequest struct {
	Amount  *float64 `json:"amount"`
	Date    string   `json:"date"`
	Details string   `json:"details"`
}

type PoolRequest struct {
	Kind    ledger.Kind `json:"kind"`
	Amount  float64     `json:"amount"`
	Date    string      `json:"date"`
	Details string      `json:"details"`
}

// RemoveRef names the entry to delete. ID wins; otherwise the date, amount
// and domain of a derived row are matched against the ledger.
type RemoveRef struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Domain string  `json:"domain"`
}

type SaleCollection struct {
	Entry ledger.CollectionEntry `json:"entry"`
	Sale  entity.Sale            `json:"sale"`
}

type ServiceCollection struct {
	Entry ledger.CollectionEntry `json:"entry"`
	Job   entity.ServiceJob      `json:"job"`
}

type (
	DailySummary    = aggregate.DailySummary
	DashboardTotals = aggregate.DashboardTotals
	CreditViews     = creditview.Views
)
