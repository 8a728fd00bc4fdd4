package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shopbooks/internal/aggregate"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/creditview"
	entity "github.com/smallbiznis/shopbooks/internal/entity/domain"
	ledger "github.com/smallbiznis/shopbooks/internal/ledger/domain"
	"github.com/smallbiznis/shopbooks/internal/observability/metrics"
	persistence "github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/smallbiznis/shopbooks/internal/reconcile/domain"
	"github.com/smallbiznis/shopbooks/internal/refresh"
	"github.com/smallbiznis/shopbooks/pkg/coerce"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Config  *config.BooksConfigHolder
	Stores  entity.Settler
	Loader  entity.Loader
	Ledger  ledger.Ledger
	Persist persistence.Persister
	Refresh *refresh.Trigger
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	config  *config.BooksConfigHolder
	stores  entity.Settler
	loader  entity.Loader
	ledger  ledger.Ledger
	persist persistence.Persister
	refresh *refresh.Trigger
	metrics *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		log:     p.Log.Named("reconcile.service"),
		clock:   p.Clock,
		config:  p.Config,
		stores:  p.Stores,
		loader:  p.Loader,
		ledger:  p.Ledger,
		persist: p.Persist,
		refresh: p.Refresh,
		metrics: p.Metrics,
	}
}

var _ domain.Engine = (*Service)(nil)

func (s *Service) AddCollectionEntry(ctx context.Context, c ledger.Candidate) (ledger.CollectionEntry, error) {
	var entry ledger.CollectionEntry
	err := s.stores.Exclusive(func() error {
		var err error
		entry, err = s.ledger.Add(c)
		if err != nil {
			return err
		}
		s.commit(ctx, refresh.ReasonCollection, ledger.CollectionKey)
		return nil
	})
	if err != nil {
		s.rejected(ctx, c.Kind, err)
		return ledger.CollectionEntry{}, err
	}

	s.metrics.RecordCollection(ctx, string(entry.Kind))
	s.log.Info("collection added",
		zap.String("collection_id", entry.ID),
		zap.String("kind", string(entry.Kind)),
		zap.Float64("amount", entry.Amount.Float()),
	)
	return entry, nil
}

// CollectCreditSale settles a credit sale through the ledger. The sale flips
// to Paid whatever amount is collected.
func (s *Service) CollectCreditSale(ctx context.Context, saleID string, req domain.CollectRequest) (domain.SaleCollection, error) {
	var out domain.SaleCollection
	err := s.stores.Exclusive(func() error {
		sale, ok := s.stores.Sale(strings.TrimSpace(saleID))
		if !ok {
			return entity.ErrNotFound
		}
		if !sale.Status.IsCredit() {
			return domain.ErrNotCredit
		}
		amount, err := collectAmount(req.Amount, sale.Amount().Float())
		if err != nil {
			return err
		}
		date, err := s.day(req.Date)
		if err != nil {
			return err
		}

		details := strings.TrimSpace(req.Details)
		if details == "" {
			details = saleDetails(sale)
		}
		candidate := ledger.Candidate{
			Date:     date,
			Source:   s.label(ledger.KindSalesCredit),
			Kind:     ledger.KindSalesCredit,
			Details:  details,
			Amount:   coerce.Number(amount),
			Customer: sale.Customer.String(),
			Product:  sale.Product.String(),
			Qty:      sale.Qty,
			Price:    sale.Price,
			RefID:    sale.ID,
		}
		if _, err := s.ledger.Normalize(candidate); err != nil {
			return err
		}

		out.Sale, err = s.stores.SettleSale(sale.ID, entity.SaleSettlement{
			Status:            entity.SaleStatusPaid,
			CollectedAmount:   entity.Number(amount),
			CreditCollectedOn: date,
		})
		if err != nil {
			return err
		}
		out.Entry, err = s.ledger.Add(candidate)
		if err != nil {
			return err
		}

		s.commit(ctx, refresh.ReasonCollection, entity.CollectionSales, ledger.CollectionKey)
		return nil
	})
	if err != nil {
		s.rejected(ctx, ledger.KindSalesCredit, err)
		return domain.SaleCollection{}, err
	}

	s.metrics.RecordCollection(ctx, string(ledger.KindSalesCredit))
	s.log.Info("credit sale collected",
		zap.String("sale_id", out.Sale.ID),
		zap.String("collection_id", out.Entry.ID),
		zap.Float64("amount", out.Entry.Amount.Float()),
	)
	return out, nil
}

// CollectCreditService applies a payment to a job's outstanding balance. The
// credit flag clears only once nothing remains.
func (s *Service) CollectCreditService(ctx context.Context, jobID string, req domain.CollectRequest) (domain.ServiceCollection, error) {
	var out domain.ServiceCollection
	err := s.stores.Exclusive(func() error {
		job, ok := s.stores.ServiceJob(strings.TrimSpace(jobID))
		if !ok {
			return entity.ErrNotFound
		}
		if !job.OnCredit() {
			return domain.ErrNotCredit
		}
		amount, err := collectAmount(req.Amount, job.Remaining.Float())
		if err != nil {
			return err
		}
		date, err := s.day(req.Date)
		if err != nil {
			return err
		}

		details := strings.TrimSpace(req.Details)
		if details == "" {
			details = job.Customer.String()
			if job.JobID != "" {
				details = fmt.Sprintf("%s (#%s)", details, job.JobID)
			}
		}
		candidate := ledger.Candidate{
			Date:     date,
			Source:   s.label(ledger.KindServiceCredit),
			Kind:     ledger.KindServiceCredit,
			Details:  details,
			Amount:   coerce.Number(amount),
			Customer: job.Customer.String(),
			Item:     job.Item.String(),
			Model:    job.Model.String(),
			RefID:    job.ID,
		}
		if _, err := s.ledger.Normalize(candidate); err != nil {
			return err
		}

		paid := decimal.NewFromFloat(amount)
		collected := paid
		if job.CreditCollectedAmount != nil {
			collected = collected.Add(job.CreditCollectedAmount.Decimal())
		}
		remaining := job.Remaining.Decimal().Sub(paid)
		if remaining.LessThan(settlementDust) {
			remaining = decimal.Zero
		}
		settlement := entity.ServiceSettlement{
			Status:                job.Status,
			CreditStatus:          entity.CreditStatusCredit,
			CreditCollectedAmount: money(collected),
			CreditCollectedOn:     date,
			Paid:                  money(job.Paid.Decimal().Add(paid)),
			Remaining:             money(remaining),
		}
		if remaining.IsZero() {
			settlement.CreditStatus = entity.CreditStatusPaid
			if job.Status == entity.ServiceStatusCredit {
				settlement.Status = entity.ServiceStatusCollected
			}
		}

		out.Job, err = s.stores.SettleServiceJob(job.ID, settlement)
		if err != nil {
			return err
		}
		out.Entry, err = s.ledger.Add(candidate)
		if err != nil {
			return err
		}

		s.commit(ctx, refresh.ReasonCollection, entity.CollectionServices, ledger.CollectionKey)
		return nil
	})
	if err != nil {
		s.rejected(ctx, ledger.KindServiceCredit, err)
		return domain.ServiceCollection{}, err
	}

	s.metrics.RecordCollection(ctx, string(ledger.KindServiceCredit))
	s.log.Info("credit service collected",
		zap.String("service_id", out.Job.ID),
		zap.String("collection_id", out.Entry.ID),
		zap.Float64("amount", out.Entry.Amount.Float()),
		zap.Float64("remaining", out.Job.Remaining.Float()),
	)
	return out, nil
}

// CollectPool records cash taken out of a pending profit or investment pool.
func (s *Service) CollectPool(ctx context.Context, req domain.PoolRequest) (ledger.CollectionEntry, error) {
	kind, ok := ledger.ParseKind(string(req.Kind))
	if !ok {
		s.rejected(ctx, req.Kind, ledger.ErrInvalidKind)
		return ledger.CollectionEntry{}, ledger.ErrInvalidKind
	}
	if !kind.IsPool() {
		s.rejected(ctx, kind, domain.ErrNotPool)
		return ledger.CollectionEntry{}, domain.ErrNotPool
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		s.rejected(ctx, kind, domain.ErrInvalidAmount)
		return ledger.CollectionEntry{}, domain.ErrInvalidAmount
	}
	date, err := s.day(req.Date)
	if err != nil {
		return ledger.CollectionEntry{}, err
	}

	return s.AddCollectionEntry(ctx, ledger.Candidate{
		Date:    date,
		Source:  s.label(kind),
		Kind:    kind,
		Details: strings.TrimSpace(req.Details),
		Amount:  coerce.Number(req.Amount),
	})
}

// RemoveCollectionEntry deletes one entry. Settlement fields on the sale or
// job it paid are left as they are.
func (s *Service) RemoveCollectionEntry(ctx context.Context, ref domain.RemoveRef) (ledger.CollectionEntry, error) {
	var removed ledger.CollectionEntry
	err := s.stores.Exclusive(func() error {
		var err error
		id := strings.TrimSpace(ref.ID)
		date := strings.TrimSpace(ref.Date)
		switch {
		case id != "":
			removed, err = s.ledger.Remove(id)
			if errors.Is(err, ledger.ErrNotFound) && date != "" {
				s.log.Warn("collection id not found, matching by date and amount",
					zap.String("collection_id", id),
					zap.String("date", date),
				)
				removed, err = s.removeBestMatch(date, ref)
			}
		case date != "":
			removed, err = s.removeBestMatch(date, ref)
		default:
			return domain.ErrInvalidRef
		}
		if err != nil {
			return err
		}
		s.commit(ctx, refresh.ReasonCollection, ledger.CollectionKey)
		return nil
	})
	if err != nil {
		return ledger.CollectionEntry{}, err
	}

	s.log.Info("collection removed",
		zap.String("collection_id", removed.ID),
		zap.String("kind", string(removed.Kind)),
		zap.String("ref_id", removed.RefID),
	)
	return removed, nil
}

// removeBestMatch must run inside Exclusive.
func (s *Service) removeBestMatch(date string, ref domain.RemoveRef) (ledger.CollectionEntry, error) {
	d, ok := ledger.ParseDomain(ref.Domain)
	if !ok {
		return ledger.CollectionEntry{}, ledger.ErrInvalidDomain
	}
	return s.ledger.RemoveBestMatch(ledger.MatchQuery{
		Date:   date,
		Amount: ref.Amount,
		Domain: d,
	})
}

func (s *Service) GetDailySummary(ctx context.Context, day string) (domain.DailySummary, error) {
	d, err := s.day(day)
	if err != nil {
		return domain.DailySummary{}, err
	}
	return aggregate.Daily(s.refresh.State(), d), nil
}

func (s *Service) GetDashboardTotals(ctx context.Context) domain.DashboardTotals {
	return aggregate.Dashboard(s.refresh.State(), s.refresh.Sources()...)
}

func (s *Service) GetCreditCollectedViews(ctx context.Context) domain.CreditViews {
	return creditview.Build(s.ledger.Entries())
}

// History lists ledger entries most recent first. A limit <= 0 returns all.
func (s *Service) History(ctx context.Context, limit int) []ledger.CollectionEntry {
	entries := s.ledger.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (s *Service) Load(ctx context.Context) error {
	start := time.Now()
	return s.stores.Exclusive(func() error {
		counts := map[string]int{}

		load := func(key string, apply func(raw []byte) int) error {
			raw, ok, err := s.persist.Load(ctx, key)
			if err != nil {
				return fmt.Errorf("load %s: %w", key, err)
			}
			if !ok {
				return nil
			}
			counts[key] = apply(raw)
			return nil
		}

		steps := []struct {
			key   string
			apply func(raw []byte) int
		}{
			{entity.CollectionSales, func(raw []byte) int {
				items := decodeLogged[entity.Sale](s.log, entity.CollectionSales, raw)
				s.reassigned(entity.CollectionSales, s.loader.LoadSales(items))
				return len(items)
			}},
			{entity.CollectionServices, func(raw []byte) int {
				items := decodeLogged[entity.ServiceJob](s.log, entity.CollectionServices, raw)
				s.reassigned(entity.CollectionServices, s.loader.LoadServiceJobs(items))
				return len(items)
			}},
			{entity.CollectionStock, func(raw []byte) int {
				items := decodeLogged[entity.StockItem](s.log, entity.CollectionStock, raw)
				s.reassigned(entity.CollectionStock, s.loader.LoadStockItems(items))
				return len(items)
			}},
			{entity.CollectionExpenses, func(raw []byte) int {
				items := decodeLogged[entity.Expense](s.log, entity.CollectionExpenses, raw)
				s.reassigned(entity.CollectionExpenses, s.loader.LoadExpenses(items))
				return len(items)
			}},
			{ledger.CollectionKey, func(raw []byte) int {
				items := decodeLogged[ledger.CollectionEntry](s.log, ledger.CollectionKey, raw)
				s.ledger.Load(items)
				return len(items)
			}},
		}
		for _, step := range steps {
			if err := load(step.key, step.apply); err != nil {
				return err
			}
		}

		s.log.Info("books loaded",
			zap.Int("sales", counts[entity.CollectionSales]),
			zap.Int("services", counts[entity.CollectionServices]),
			zap.Int("stock", counts[entity.CollectionStock]),
			zap.Int("expenses", counts[entity.CollectionExpenses]),
			zap.Int("collections", counts[ledger.CollectionKey]),
			zap.Duration("took", time.Since(start)),
		)
		return nil
	})
}

// decodeLogged decodes a stored collection and warns about whatever it had
// to drop. A payload that is not a list loads as empty.
func decodeLogged[T any](log *zap.Logger, key string, raw []byte) []T {
	decoded := coerce.DecodeCollection[T](raw)
	switch {
	case decoded.NotList:
		log.Warn("stored collection is not a list, loading it empty",
			zap.String("collection", key),
			zap.Int("bytes", len(raw)),
		)
	case decoded.Skipped > 0:
		log.Warn("stored records skipped",
			zap.String("collection", key),
			zap.Int("skipped", decoded.Skipped),
			zap.Int("kept", len(decoded.Items)),
		)
	}
	return decoded.Items
}

func (s *Service) reassigned(key string, n int) {
	if n == 0 {
		return
	}
	s.log.Warn("duplicate record ids reassigned",
		zap.String("collection", key),
		zap.Int("reassigned", n),
	)
}

// commit must run inside Exclusive.
func (s *Service) commit(ctx context.Context, reason string, collections ...string) {
	for _, key := range collections {
		records, ok := s.records(key)
		if !ok {
			continue
		}
		if res := s.persist.Persist(key, records); res.Status == persistence.StatusFailed {
			s.log.Error("persist failed", zap.String("collection", key), zap.String("reason", res.Reason))
		}
	}
	s.refresh.RefreshAll(ctx, reason)
}

func (s *Service) records(key string) (any, bool) {
	if key == ledger.CollectionKey {
		return s.ledger.Entries(), true
	}
	return s.stores.Records(key)
}

func (s *Service) rejected(ctx context.Context, kind ledger.Kind, err error) {
	reason := err.Error()
	if errors.Is(err, ledger.ErrDuplicateEntry) {
		s.log.Debug("collection rejected", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		s.log.Warn("collection rejected", zap.String("kind", string(kind)), zap.Error(err))
	}
	s.metrics.RecordCollectionRejected(ctx, string(kind), reason)
}

func (s *Service) label(kind ledger.Kind) string {
	labels := config.DefaultBooksConfig().Sources
	if s.config != nil {
		labels = s.config.Get().Sources
	}
	switch kind {
	case ledger.KindSalesCredit:
		return labels.SalesCredit
	case ledger.KindServiceCredit:
		return labels.ServiceCredit
	case ledger.KindNetProfitPool:
		return labels.NetProfit
	case ledger.KindStockInvestmentPool:
		return labels.StockInvestment
	case ledger.KindServiceInvestmentPool:
		return labels.ServiceInvestment
	default:
		return ledger.DefaultSource
	}
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

// settlementDust is the largest balance treated as settled.
var settlementDust = decimal.New(1, -6)

func money(d decimal.Decimal) entity.Number {
	return entity.Number(d.InexactFloat64())
}

// saleDetails keeps two same-day collections of equal amount for one
// customer on distinct dedup keys.
func saleDetails(sale entity.Sale) string {
	details := sale.Customer.String()
	if product := sale.Product.String(); product != "" {
		details = fmt.Sprintf("%s - %s", details, product)
	}
	return fmt.Sprintf("%s (#%s)", details, sale.ID)
}

func collectAmount(requested *float64, outstanding float64) (float64, error) {
	amount := outstanding
	if requested != nil {
		amount = *requested
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, domain.ErrInvalidAmount
	}
	return amount, nil
}
