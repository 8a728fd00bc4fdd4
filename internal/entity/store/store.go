// Package store holds the four entity collections. The stores are owned by the
// entity feature module and injected into the reconciliation engine, which only
// sees the domain.Settler view.
package store

import (
	"fmt"
	"sync"

	"github.com/smallbiznis/shopbooks/internal/entity/domain"
)

type Stores struct {
	writer sync.Mutex
	mu     sync.RWMutex

	sales    *collection[domain.Sale]
	services *collection[domain.ServiceJob]
	stock    *collection[domain.StockItem]
	expenses *collection[domain.Expense]
}

var (
	_ domain.Settler = (*Stores)(nil)
	_ domain.Loader  = (*Stores)(nil)
)

func New() *Stores {
	return &Stores{
		sales:    newCollection(func(s domain.Sale) string { return s.ID }),
		services: newCollection(func(j domain.ServiceJob) string { return j.ID }),
		stock:    newCollection(func(s domain.StockItem) string { return s.ID }),
		expenses: newCollection(func(e domain.Expense) string { return e.ID }),
	}
}

func (s *Stores) Exclusive(fn func() error) error {
	s.writer.Lock()
	defer s.writer.Unlock()
	return fn()
}

func (s *Stores) Sales() []domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sales.list()
}

func (s *Stores) ServiceJobs() []domain.ServiceJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services.list()
}

func (s *Stores) StockItems() []domain.StockItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stock.list()
}

func (s *Stores) Expenses() []domain.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expenses.list()
}

func (s *Stores) Sale(id string) (domain.Sale, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sales.get(id)
}

func (s *Stores) ServiceJob(id string) (domain.ServiceJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services.get(id)
}

func (s *Stores) StockItem(id string) (domain.StockItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stock.get(id)
}

func (s *Stores) SettleSale(id string, st domain.SaleSettlement) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales.get(id)
	if !ok {
		return domain.Sale{}, domain.ErrNotFound
	}
	amount := st.CollectedAmount
	sale.Status = st.Status
	sale.CollectedAmount = &amount
	sale.CreditCollectedOn = domain.Text(st.CreditCollectedOn)
	s.sales.put(sale)
	return sale, nil
}

func (s *Stores) SettleServiceJob(id string, st domain.ServiceSettlement) (domain.ServiceJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.services.get(id)
	if !ok {
		return domain.ServiceJob{}, domain.ErrNotFound
	}
	amount := st.CreditCollectedAmount
	job.Status = st.Status
	job.CreditStatus = st.CreditStatus
	job.CreditCollectedAmount = &amount
	job.CreditCollectedOn = domain.Text(st.CreditCollectedOn)
	job.Paid = st.Paid
	job.Remaining = st.Remaining
	s.services.put(job)
	return job, nil
}

func (s *Stores) PutSale(v domain.Sale) {
	s.mu.Lock()
	s.sales.put(v)
	s.mu.Unlock()
}

func (s *Stores) PutServiceJob(v domain.ServiceJob) {
	s.mu.Lock()
	s.services.put(v)
	s.mu.Unlock()
}

func (s *Stores) PutStockItem(v domain.StockItem) {
	s.mu.Lock()
	s.stock.put(v)
	s.mu.Unlock()
}

func (s *Stores) PutExpense(v domain.Expense) {
	s.mu.Lock()
	s.expenses.put(v)
	s.mu.Unlock()
}

// NextJobNum returns one past the highest job number in the store.
func (s *Stores) NextJobNum() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, j := range s.services.items {
		if j.JobNum > max {
			max = j.JobNum
		}
	}
	return max + 1
}

func (s *Stores) LoadSales(items []domain.Sale) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sales.reset(items, func(i int, v domain.Sale) domain.Sale {
		v.ID = legacyID(domain.CollectionSales, i)
		return v
	})
}

func (s *Stores) LoadServiceJobs(items []domain.ServiceJob) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.services.reset(items, func(i int, v domain.ServiceJob) domain.ServiceJob {
		v.ID = legacyID(domain.CollectionServices, i)
		return v
	})
}

func (s *Stores) LoadStockItems(items []domain.StockItem) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock.reset(items, func(i int, v domain.StockItem) domain.StockItem {
		v.ID = legacyID(domain.CollectionStock, i)
		return v
	})
}

func (s *Stores) LoadExpenses(items []domain.Expense) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.reset(items, func(i int, v domain.Expense) domain.Expense {
		v.ID = legacyID(domain.CollectionExpenses, i)
		return v
	})
}

// Records returns the persisted payload for a collection key.
func (s *Stores) Records(key string) (any, bool) {
	switch key {
	case domain.CollectionSales:
		return s.Sales(), true
	case domain.CollectionServices:
		return s.ServiceJobs(), true
	case domain.CollectionStock:
		return s.StockItems(), true
	case domain.CollectionExpenses:
		return s.Expenses(), true
	default:
		return nil, false
	}
}

func legacyID(key string, i int) string {
	return fmt.Sprintf("%s-legacy-%d", key, i+1)
}
