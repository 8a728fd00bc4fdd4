// Package aggregate computes the daily summary and lifetime dashboard totals.
// Every function is a pure scan over a Snapshot of the stores and ledger.
package aggregate

import (
	"github.com/shopspring/decimal"
	entity "github.com/smallbiznis/shopbooks/internal/entity/domain"
	ledger "github.com/smallbiznis/shopbooks/internal/ledger/domain"
)

// Snapshot is the state the aggregates are computed from.
type Snapshot struct {
	Sales    []entity.Sale
	Services []entity.ServiceJob
	Stock    []entity.StockItem
	Expenses []entity.Expense
	Ledger   []ledger.CollectionEntry
}

// Bucket is the side of the conservation rule a sale or job is counted on.
type Bucket int

const (
	// BucketNone holds jobs that are neither on credit nor terminal yet.
	BucketNone Bucket = iota
	BucketPending
	BucketProfit
)

func SaleBucket(s entity.Sale) Bucket {
	if s.Status.IsCredit() {
		return BucketPending
	}
	return BucketProfit
}

func ServiceBucket(j entity.ServiceJob) Bucket {
	switch {
	case j.OnCredit():
		return BucketPending
	case j.Status.Done():
		return BucketProfit
	default:
		return BucketNone
	}
}

type DailySummary struct {
	Date          string `json:"date"`
	TodaySales    int64  `json:"todaySales"`
	CreditSales   int64  `json:"creditSales"`
	TodayExpenses int64  `json:"todayExpenses"`
	GrossProfit   int64  `json:"grossProfit"`
	NetProfit     int64  `json:"netProfit"`
}

// Daily sums the day's figures and rounds each total once, after summation.
func Daily(s Snapshot, day string) DailySummary {
	var sales, credit, expenses, gross decimal.Decimal

	for _, sale := range s.Sales {
		if sale.Date.String() != day {
			continue
		}
		if sale.Status.IsCredit() {
			credit = credit.Add(sale.Amount().Decimal())
			continue
		}
		sales = sales.Add(sale.Amount().Decimal())
		gross = gross.Add(sale.Profit.Decimal())
	}
	for _, job := range s.Services {
		if job.DateOut.String() == day {
			gross = gross.Add(job.Profit.Decimal())
		}
	}
	for _, e := range s.Expenses {
		if e.Date.String() == day {
			expenses = expenses.Add(e.Amount.Decimal())
		}
	}

	return DailySummary{
		Date:          day,
		TodaySales:    Round(sales),
		CreditSales:   Round(credit),
		TodayExpenses: Round(expenses),
		GrossProfit:   Round(gross),
		NetProfit:     Round(gross.Sub(expenses)),
	}
}

// Round rounds to the nearest currency unit with halves going up.
func Round(d decimal.Decimal) int64 {
	return d.Add(decimal.NewFromFloat(0.5)).Floor().IntPart()
}

// InvestmentSource supplies investment figures owned by other modules.
type InvestmentSource interface {
	Name() string
	Investment(s Snapshot) float64
}

type DashboardTotals struct {
	TotalProfit     float64 `json:"totalProfit"`
	TotalExpenses   float64 `json:"totalExpenses"`
	CreditTotal     float64 `json:"creditTotal"`
	TotalInvestment float64 `json:"totalInvestment"`
	PendingCredit   float64 `json:"pendingCredit"`
	Pools           Pools   `json:"pools"`
}

// Pools are the pending balances settled by pool collections.
type Pools struct {
	NetProfitPending         float64 `json:"netProfitPending"`
	StockInvestmentPending   float64 `json:"stockInvestmentPending"`
	ServiceInvestmentPending float64 `json:"serviceInvestmentPending"`
	NetProfitCollected       float64 `json:"netProfitCollected"`
	StockInvestmentCollected float64 `json:"stockInvestmentCollected"`
	ServiceInvestCollected   float64 `json:"serviceInvestmentCollected"`
}

func Dashboard(s Snapshot, sources ...InvestmentSource) DashboardTotals {
	var profit, expenses, creditTotal, pending, stockInvest, serviceInvest decimal.Decimal

	for _, sale := range s.Sales {
		switch SaleBucket(sale) {
		case BucketPending:
			creditTotal = creditTotal.Add(sale.Amount().Decimal())
			pending = pending.Add(sale.Amount().Decimal())
		case BucketProfit:
			profit = profit.Add(sale.Profit.Decimal())
		}
	}
	for _, job := range s.Services {
		switch ServiceBucket(job) {
		case BucketPending:
			pending = pending.Add(job.Remaining.Decimal())
		case BucketProfit:
			profit = profit.Add(job.Profit.Decimal())
			serviceInvest = serviceInvest.Add(job.Invest.Decimal())
		}
	}
	for _, e := range s.Expenses {
		expenses = expenses.Add(e.Amount.Decimal())
	}
	for _, item := range s.Stock {
		stockInvest = stockInvest.Add(item.Investment().Decimal())
	}

	investment := stockInvest
	for _, src := range sources {
		if src == nil {
			continue
		}
		investment = investment.Add(decimal.NewFromFloat(src.Investment(s)))
	}

	collected := CollectedByKind(s.Ledger)
	netPool := collected[ledger.KindNetProfitPool]
	stockPool := collected[ledger.KindStockInvestmentPool]
	servicePool := collected[ledger.KindServiceInvestmentPool]

	return DashboardTotals{
		TotalProfit:     profit.InexactFloat64(),
		TotalExpenses:   expenses.InexactFloat64(),
		CreditTotal:     creditTotal.InexactFloat64(),
		TotalInvestment: investment.InexactFloat64(),
		PendingCredit:   pending.InexactFloat64(),
		Pools: Pools{
			NetProfitPending:         profit.Sub(expenses).Sub(netPool).InexactFloat64(),
			StockInvestmentPending:   stockInvest.Sub(stockPool).InexactFloat64(),
			ServiceInvestmentPending: serviceInvest.Sub(servicePool).InexactFloat64(),
			NetProfitCollected:       netPool.InexactFloat64(),
			StockInvestmentCollected: stockPool.InexactFloat64(),
			ServiceInvestCollected:   servicePool.InexactFloat64(),
		},
	}
}

// CollectedByKind sums ledger amounts per kind.
func CollectedByKind(entries []ledger.CollectionEntry) map[ledger.Kind]decimal.Decimal {
	out := map[ledger.Kind]decimal.Decimal{}
	for _, e := range entries {
		out[e.Kind] = out[e.Kind].Add(e.Amount.Decimal())
	}
	return out
}
