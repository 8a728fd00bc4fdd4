package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/entity/domain"
	"github.com/smallbiznis/shopbooks/internal/entity/store"
	ledgersvc "github.com/smallbiznis/shopbooks/internal/ledger/service"
	persistence "github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/smallbiznis/shopbooks/internal/refresh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePersister struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakePersister) Persist(collection string, _ any) persistence.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[collection]++
	return persistence.Result{Collection: collection, Status: persistence.StatusQueued}
}

func (f *fakePersister) Load(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (f *fakePersister) Health() persistence.HealthReport {
	return persistence.HealthReport{Healthy: true}
}

func (f *fakePersister) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[collection]
}

type fixture struct {
	svc     domain.Service
	stores  *store.Stores
	persist *fakePersister
	hub     *refresh.Hub
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	c := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	stores := store.New()
	hub := refresh.NewHub()
	l := ledgersvc.New(ledgersvc.Params{
		Log:    zap.NewNop(),
		Clock:  c,
		GenID:  node,
		Config: config.NewStaticBooksConfigHolder(config.DefaultBooksConfig()),
	})
	trigger := refresh.New(refresh.Params{Log: zap.NewNop(), Clock: c, Stores: stores, Ledger: l, Hub: hub})
	persist := &fakePersister{}

	svc := New(Params{
		Log:     zap.NewNop(),
		Clock:   c,
		GenID:   node,
		Stores:  stores,
		Persist: persist,
		Refresh: trigger,
	})
	return fixture{svc: svc, stores: stores, persist: persist, hub: hub}
}

func TestRecordSaleDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.svc.RecordSale(ctx, domain.RecordSaleRequest{Product: "Charger", Qty: 2, Price: 150})
	require.NoError(t, err)

	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, domain.Text("2024-05-01"), sale.Date)
	assert.Equal(t, domain.SaleStatusPaid, sale.Status)
	assert.Equal(t, domain.Number(300), sale.Total)
	assert.Equal(t, 1, f.persist.count(domain.CollectionSales))

	latest, ok := f.hub.Latest()
	require.True(t, ok)
	assert.EqualValues(t, 300, latest.Daily.TodaySales)
}

func TestRecordSaleValidation(t *testing.T) {
	tests := []struct {
		name string
		req  domain.RecordSaleRequest
		want error
	}{
		{name: "bad date", req: domain.RecordSaleRequest{Date: "01/05/2024", Product: "x", Qty: 1, Price: 1}, want: domain.ErrInvalidDate},
		{name: "zero qty", req: domain.RecordSaleRequest{Product: "x", Price: 1}, want: domain.ErrInvalidQty},
		{name: "zero total", req: domain.RecordSaleRequest{Product: "x", Qty: 1}, want: domain.ErrInvalidAmount},
		{name: "unknown status", req: domain.RecordSaleRequest{Product: "x", Qty: 1, Price: 1, Status: "Barter"}, want: domain.ErrInvalidStatus},
		{name: "credit without customer", req: domain.RecordSaleRequest{Product: "x", Qty: 1, Price: 1, Status: "Credit"}, want: domain.ErrInvalidCustomer},
		{name: "no product", req: domain.RecordSaleRequest{Qty: 1, Price: 1}, want: domain.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.RecordSale(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.stores.Sales())
		})
	}
}

func TestRecordSaleFromStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddStock(ctx, domain.AddStockRequest{Name: "Screen guard", Qty: 10, Cost: 20, Limit: 2})
	require.NoError(t, err)

	sale, err := f.svc.RecordSale(ctx, domain.RecordSaleRequest{Qty: 3, Price: 50, StockItemID: item.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.Text("Screen guard"), sale.Product)
	assert.Equal(t, domain.Number(90), sale.Profit)

	got, ok := f.stores.StockItem(item.ID)
	require.True(t, ok)
	assert.Equal(t, domain.Number(7), got.Remain)
	assert.Equal(t, domain.Number(3), got.Sold)
	assert.Equal(t, got.Qty, got.Remain+got.Sold)
	assert.Equal(t, 2, f.persist.count(domain.CollectionStock))

	_, err = f.svc.RecordSale(ctx, domain.RecordSaleRequest{Qty: 8, Price: 50, StockItemID: item.ID})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Len(t, f.stores.Sales(), 1)
}

func TestSellStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddStock(ctx, domain.AddStockRequest{Name: "Cable", Qty: 10, Cost: 15})
	require.NoError(t, err)

	item, err = f.svc.SellStock(ctx, item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.Number(7), item.Remain)
	assert.Equal(t, domain.Number(3), item.Sold)
	assert.Equal(t, domain.Number(45), item.Investment())

	_, err = f.svc.SellStock(ctx, item.ID, 8)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = f.svc.SellStock(ctx, item.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQty)
	_, err = f.svc.SellStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	latest, ok := f.hub.Latest()
	require.True(t, ok)
	assert.Equal(t, 45.0, latest.Totals.TotalInvestment)
}

func TestServiceJobLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RecordServiceJob(ctx, domain.RecordServiceJobRequest{Customer: "Bilal", Item: "Phone", Advance: 200})
	require.NoError(t, err)
	second, err := f.svc.RecordServiceJob(ctx, domain.RecordServiceJobRequest{Customer: "Sara", Item: "Tablet"})
	require.NoError(t, err)
	assert.Equal(t, "0001", first.JobID)
	assert.Equal(t, "0002", second.JobID)
	assert.Equal(t, domain.ServiceStatusPending, first.Status)

	done, err := f.svc.CompleteServiceJob(ctx, first.ID, domain.CompleteServiceJobRequest{Charge: 1000, Invest: 300, Paid: 500})
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceStatusCompleted, done.Status)
	assert.Equal(t, domain.Number(700), done.Paid)
	assert.Equal(t, domain.Number(300), done.Remaining)
	assert.Equal(t, domain.Number(700), done.Profit)
	assert.Equal(t, domain.CreditStatusCredit, done.CreditStatus)
	assert.Equal(t, domain.Text("2024-05-01"), done.DateOut)

	_, err = f.svc.CompleteServiceJob(ctx, first.ID, domain.CompleteServiceJobRequest{Charge: 1})
	assert.ErrorIs(t, err, domain.ErrJobClosed)

	latest, ok := f.hub.Latest()
	require.True(t, ok)
	assert.Equal(t, 300.0, latest.Totals.PendingCredit)
	assert.Equal(t, 0.0, latest.Totals.TotalProfit)
}

func TestReturnedJobRefundsAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.RecordServiceJob(ctx, domain.RecordServiceJobRequest{Customer: "Bilal", Item: "Laptop", Advance: 150})
	require.NoError(t, err)

	job, err = f.svc.CompleteServiceJob(ctx, job.ID, domain.CompleteServiceJobRequest{Returned: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceStatusReturned, job.Status)
	assert.Equal(t, domain.Number(150), job.ReturnedAdvance)
	assert.Equal(t, domain.Number(0), job.Remaining)
	assert.False(t, job.OnCredit())
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordExpense(ctx, domain.RecordExpenseRequest{Category: "Rent", Amount: 10.4})
	require.NoError(t, err)
	_, err = f.svc.RecordExpense(ctx, domain.RecordExpenseRequest{Category: "Tea", Amount: 10.4})
	require.NoError(t, err)

	_, err = f.svc.RecordExpense(ctx, domain.RecordExpenseRequest{Amount: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
	_, err = f.svc.RecordExpense(ctx, domain.RecordExpenseRequest{Category: "Rent"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Len(t, f.svc.ListExpenses(ctx), 2)
	latest, ok := f.hub.Latest()
	require.True(t, ok)
	assert.EqualValues(t, 21, latest.Daily.TodayExpenses)
}
