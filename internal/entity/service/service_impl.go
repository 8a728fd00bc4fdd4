package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/entity/domain"
	"github.com/smallbiznis/shopbooks/internal/entity/store"
	"github.com/smallbiznis/shopbooks/internal/observability/metrics"
	persistence "github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/smallbiznis/shopbooks/internal/refresh"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Stores  *store.Stores
	Persist persistence.Persister
	Refresh *refresh.Trigger
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	stores  *store.Stores
	persist persistence.Persister
	refresh *refresh.Trigger
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("entity.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		stores:  p.Stores,
		persist: p.Persist,
		refresh: p.Refresh,
		metrics: p.Metrics,
	}
}

func (s *Service) RecordSale(ctx context.Context, req domain.RecordSaleRequest) (domain.Sale, error) {
	date, err := s.day(req.Date)
	if err != nil {
		return domain.Sale{}, err
	}
	if req.Qty <= 0 || !finite(req.Qty) {
		return domain.Sale{}, domain.ErrInvalidQty
	}
	if req.Price < 0 || req.Total < 0 || !finite(req.Price) || !finite(req.Total) {
		return domain.Sale{}, domain.ErrInvalidAmount
	}

	status := domain.SaleStatusPaid
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.ParseSaleStatus(raw)
	}
	if status != domain.SaleStatusPaid && status != domain.SaleStatusCredit {
		return domain.Sale{}, domain.ErrInvalidStatus
	}
	customer := strings.TrimSpace(req.Customer)
	if status.IsCredit() && customer == "" {
		return domain.Sale{}, domain.ErrInvalidCustomer
	}

	total := req.Total
	if total == 0 {
		total = req.Qty * req.Price
	}
	if total <= 0 {
		return domain.Sale{}, domain.ErrInvalidAmount
	}
	price := req.Price
	if price == 0 {
		price = total / req.Qty
	}

	sale := domain.Sale{
		ID:       s.genID.Generate().String(),
		Date:     domain.Text(date),
		Customer: domain.Text(customer),
		Product:  domain.Text(strings.TrimSpace(req.Product)),
		Qty:      domain.Number(req.Qty),
		Price:    domain.Number(price),
		Total:    domain.Number(total),
		Status:   status,
	}
	if req.Profit != nil {
		sale.Profit = domain.Number(*req.Profit)
	}
	if sale.Product == "" && strings.TrimSpace(req.StockItemID) == "" {
		return domain.Sale{}, domain.ErrInvalidName
	}

	err = s.stores.Exclusive(func() error {
		touched := []string{domain.CollectionSales}

		if id := strings.TrimSpace(req.StockItemID); id != "" {
			item, err := s.sell(id, req.Qty)
			if err != nil {
				return err
			}
			sale.StockItemID = item.ID
			if sale.Product == "" {
				sale.Product = item.Name
			}
			if req.Profit == nil {
				sale.Profit = sale.Total - sale.Qty*item.Cost
			}
			touched = append(touched, domain.CollectionStock)
		}

		s.stores.PutSale(sale)
		s.commit(ctx, "record_sale", touched...)
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.log.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("status", string(sale.Status)),
		zap.Float64("total", sale.Total.Float()),
	)
	return sale, nil
}

func (s *Service) RecordServiceJob(ctx context.Context, req domain.RecordServiceJobRequest) (domain.ServiceJob, error) {
	dateIn, err := s.day(req.DateIn)
	if err != nil {
		return domain.ServiceJob{}, err
	}
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		return domain.ServiceJob{}, domain.ErrInvalidCustomer
	}
	item := strings.TrimSpace(req.Item)
	if item == "" {
		return domain.ServiceJob{}, domain.ErrInvalidName
	}
	if req.Advance < 0 || !finite(req.Advance) {
		return domain.ServiceJob{}, domain.ErrInvalidAmount
	}

	var job domain.ServiceJob
	err = s.stores.Exclusive(func() error {
		num := s.stores.NextJobNum()
		job = domain.ServiceJob{
			ID:       s.genID.Generate().String(),
			JobNum:   num,
			JobID:    domain.FormatJobID(num),
			DateIn:   domain.Text(dateIn),
			Customer: domain.Text(customer),
			Phone:    domain.Text(strings.TrimSpace(req.Phone)),
			Item:     domain.Text(item),
			Model:    domain.Text(strings.TrimSpace(req.Model)),
			Problem:  domain.Text(strings.TrimSpace(req.Problem)),
			Advance:  domain.Number(req.Advance),
			Paid:     domain.Number(req.Advance),
			Status:   domain.ServiceStatusPending,
		}
		s.stores.PutServiceJob(job)
		s.commit(ctx, "record_service_job", domain.CollectionServices)
		return nil
	})
	if err != nil {
		return domain.ServiceJob{}, err
	}

	s.log.Info("service job recorded", zap.String("job_id", job.JobID), zap.String("service_id", job.ID))
	return job, nil
}

// CompleteServiceJob closes a pending job. Anything not paid at pickup
// stays on credit until it is collected through the ledger.
func (s *Service) CompleteServiceJob(ctx context.Context, id string, req domain.CompleteServiceJobRequest) (domain.ServiceJob, error) {
	dateOut, err := s.day(req.DateOut)
	if err != nil {
		return domain.ServiceJob{}, err
	}
	for _, v := range []float64{req.Charge, req.Invest, req.Paid} {
		if v < 0 || !finite(v) {
			return domain.ServiceJob{}, domain.ErrInvalidAmount
		}
	}

	var job domain.ServiceJob
	err = s.stores.Exclusive(func() error {
		current, ok := s.stores.ServiceJob(strings.TrimSpace(id))
		if !ok {
			return domain.ErrNotFound
		}
		if current.Status != domain.ServiceStatusPending && current.Status != "" {
			return domain.ErrJobClosed
		}

		job = current
		job.DateOut = domain.Text(dateOut)
		if req.Returned {
			job.Status = domain.ServiceStatusReturned
			job.ReturnedAdvance = current.Advance
			job.Paid = 0
			job.Remaining = 0
			job.Profit = 0
			job.Invest = domain.Number(req.Invest)
			job.CreditStatus = domain.CreditStatusNone
		} else {
			paid := current.Advance + domain.Number(req.Paid)
			remaining := domain.Number(req.Charge) - paid
			if remaining < 0 {
				remaining = 0
			}
			job.Status = domain.ServiceStatusCompleted
			job.Invest = domain.Number(req.Invest)
			job.Paid = paid
			job.Remaining = remaining
			job.Profit = domain.Number(req.Charge - req.Invest)
			job.CreditStatus = domain.CreditStatusNone
			if remaining > 0 {
				job.CreditStatus = domain.CreditStatusCredit
			}
		}

		s.stores.PutServiceJob(job)
		s.commit(ctx, "complete_service_job", domain.CollectionServices)
		return nil
	})
	if err != nil {
		return domain.ServiceJob{}, err
	}

	s.log.Info("service job closed",
		zap.String("job_id", job.JobID),
		zap.String("status", string(job.Status)),
		zap.Float64("remaining", job.Remaining.Float()),
	)
	return job, nil
}

func (s *Service) AddStock(ctx context.Context, req domain.AddStockRequest) (domain.StockItem, error) {
	date, err := s.day(req.Date)
	if err != nil {
		return domain.StockItem{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.StockItem{}, domain.ErrInvalidName
	}
	if req.Qty <= 0 || !finite(req.Qty) {
		return domain.StockItem{}, domain.ErrInvalidQty
	}
	if req.Cost < 0 || req.Limit < 0 || !finite(req.Cost) || !finite(req.Limit) {
		return domain.StockItem{}, domain.ErrInvalidAmount
	}

	item := domain.StockItem{
		ID:     s.genID.Generate().String(),
		Date:   domain.Text(date),
		Type:   domain.Text(strings.TrimSpace(req.Type)),
		Name:   domain.Text(name),
		Qty:    domain.Number(req.Qty),
		Remain: domain.Number(req.Qty),
		Cost:   domain.Number(req.Cost),
		Limit:  domain.Number(req.Limit),
	}
	err = s.stores.Exclusive(func() error {
		s.stores.PutStockItem(item)
		s.commit(ctx, "add_stock", domain.CollectionStock)
		return nil
	})
	if err != nil {
		return domain.StockItem{}, err
	}
	return item, nil
}

// SellStock moves qty from remain to sold without recording a sale.
func (s *Service) SellStock(ctx context.Context, id string, qty float64) (domain.StockItem, error) {
	var item domain.StockItem
	err := s.stores.Exclusive(func() error {
		var err error
		item, err = s.sell(strings.TrimSpace(id), qty)
		if err != nil {
			return err
		}
		s.commit(ctx, "sell_stock", domain.CollectionStock)
		return nil
	})
	if err != nil {
		return domain.StockItem{}, err
	}
	if item.LowStock() {
		s.log.Warn("stock running low",
			zap.String("stock_id", item.ID),
			zap.String("name", item.Name.String()),
			zap.Float64("remain", item.Remain.Float()),
		)
	}
	return item, nil
}

func (s *Service) RecordExpense(ctx context.Context, req domain.RecordExpenseRequest) (domain.Expense, error) {
	date, err := s.day(req.Date)
	if err != nil {
		return domain.Expense{}, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return domain.Expense{}, domain.ErrInvalidCategory
	}
	if req.Amount <= 0 || !finite(req.Amount) {
		return domain.Expense{}, domain.ErrInvalidAmount
	}

	expense := domain.Expense{
		ID:       s.genID.Generate().String(),
		Date:     domain.Text(date),
		Category: domain.Text(category),
		Amount:   domain.Number(req.Amount),
		Note:     domain.Text(strings.TrimSpace(req.Note)),
	}
	err = s.stores.Exclusive(func() error {
		s.stores.PutExpense(expense)
		s.commit(ctx, "record_expense", domain.CollectionExpenses)
		return nil
	})
	if err != nil {
		return domain.Expense{}, err
	}
	return expense, nil
}

func (s *Service) ListSales(ctx context.Context) []domain.Sale { return s.stores.Sales() }

func (s *Service) ListServiceJobs(ctx context.Context) []domain.ServiceJob {
	return s.stores.ServiceJobs()
}

func (s *Service) ListStockItems(ctx context.Context) []domain.StockItem {
	return s.stores.StockItems()
}

func (s *Service) ListExpenses(ctx context.Context) []domain.Expense { return s.stores.Expenses() }

// sell must run inside Exclusive.
func (s *Service) sell(id string, qty float64) (domain.StockItem, error) {
	if qty <= 0 || !finite(qty) {
		return domain.StockItem{}, domain.ErrInvalidQty
	}
	item, ok := s.stores.StockItem(id)
	if !ok {
		return domain.StockItem{}, domain.ErrNotFound
	}
	n := domain.Number(qty)
	if n > item.Remain {
		return domain.StockItem{}, domain.ErrInsufficientStock
	}
	item.Remain -= n
	item.Sold += n
	s.stores.PutStockItem(item)
	return item, nil
}

// commit persists the touched collections and refreshes every derived figure.
func (s *Service) commit(ctx context.Context, op string, collections ...string) {
	for _, key := range collections {
		records, ok := s.stores.Records(key)
		if !ok {
			continue
		}
		res := s.persist.Persist(key, records)
		if res.Status == persistence.StatusFailed {
			s.log.Error("persist failed", zap.String("collection", key), zap.String("reason", res.Reason))
		}
		s.metrics.RecordEntityMutation(ctx, key, op)
	}
	s.refresh.RefreshAll(ctx, refresh.ReasonEntity)
}

func (s *Service) day(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return clock.Today(s.clock), nil
	}
	if _, err := time.Parse(clock.DayLayout, raw); err != nil {
		return "", domain.ErrInvalidDate
	}
	return raw, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
