package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopbooks/internal/aggregate"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/config"
	entity "github.com/smallbiznis/shopbooks/internal/entity/domain"
	"github.com/smallbiznis/shopbooks/internal/entity/store"
	ledger "github.com/smallbiznis/shopbooks/internal/ledger/domain"
	ledgersvc "github.com/smallbiznis/shopbooks/internal/ledger/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureNotifier struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (c *captureNotifier) Notify(_ context.Context, s Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
}

type fixedInvestment float64

func (fixedInvestment) Name() string { return "fixed" }

func (f fixedInvestment) Investment(aggregate.Snapshot) float64 { return float64(f) }

type fixture struct {
	trigger  *Trigger
	stores   *store.Stores
	ledger   *ledgersvc.Service
	hub      *Hub
	notifier *captureNotifier
}

func newFixture(t *testing.T, sources ...aggregate.InvestmentSource) fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	c := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	stores := store.New()
	l := ledgersvc.New(ledgersvc.Params{
		Log:    zap.NewNop(),
		Clock:  c,
		GenID:  node,
		Config: config.NewStaticBooksConfigHolder(config.DefaultBooksConfig()),
	})
	hub := NewHub()
	notifier := &captureNotifier{}

	tr := New(Params{
		Log:       zap.NewNop(),
		Clock:     c,
		Stores:    stores,
		Ledger:    l,
		Hub:       hub,
		Notifiers: []Notifier{notifier},
		Sources:   sources,
	})
	return fixture{trigger: tr, stores: stores, ledger: l, hub: hub, notifier: notifier}
}

func TestRefreshAllComputesEverything(t *testing.T) {
	f := newFixture(t, fixedInvestment(40))
	f.stores.PutSale(entity.Sale{ID: "s1", Date: "2024-05-01", Total: 300, Profit: 80, Status: entity.SaleStatusPaid})
	f.stores.PutSale(entity.Sale{ID: "s2", Date: "2024-05-01", Total: 500, Profit: 120, Status: entity.SaleStatusCredit})
	f.stores.PutStockItem(entity.StockItem{ID: "st1", Qty: 10, Remain: 7, Sold: 3, Cost: 20})
	_, err := f.ledger.Add(ledger.Candidate{Date: "2024-05-01", Source: "Sales (Credit Collected)", Details: "Ana", Amount: 200})
	require.NoError(t, err)

	snap := f.trigger.RefreshAll(context.Background(), ReasonStartup)

	assert.NotEmpty(t, snap.Revision)
	assert.Equal(t, ReasonStartup, snap.Reason)
	assert.Equal(t, "2024-05-01", snap.Daily.Date)
	assert.EqualValues(t, 300, snap.Daily.TodaySales)
	assert.EqualValues(t, 500, snap.Daily.CreditSales)
	assert.Equal(t, 80.0, snap.Totals.TotalProfit)
	assert.Equal(t, 500.0, snap.Totals.PendingCredit)
	assert.Equal(t, 100.0, snap.Totals.TotalInvestment)
	require.Len(t, snap.Views.CreditSalesCollected, 1)
	assert.Empty(t, snap.Views.CreditServiceCollected)

	latest, ok := f.hub.Latest()
	require.True(t, ok)
	assert.Equal(t, snap.Revision, latest.Revision)
	require.Len(t, f.notifier.snaps, 1)
	assert.Equal(t, snap.Revision, f.notifier.snaps[0].Revision)
}

func TestRefreshAllIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.stores.PutExpense(entity.Expense{ID: "e1", Date: "2024-05-01", Amount: 10.4})
	f.stores.PutExpense(entity.Expense{ID: "e2", Date: "2024-05-01", Amount: 10.4})

	first := f.trigger.RefreshAll(context.Background(), ReasonEntity)
	second := f.trigger.RefreshAll(context.Background(), ReasonEntity)

	assert.NotEqual(t, first.Revision, second.Revision)
	assert.Equal(t, first.Totals, second.Totals)
	assert.Equal(t, first.Daily, second.Daily)
	assert.EqualValues(t, 21, second.Daily.TodayExpenses)
	assert.Len(t, f.notifier.snaps, 2)
}

func TestHubDeliversToSubscribers(t *testing.T) {
	f := newFixture(t)
	sub, backlog, err := f.hub.Subscribe()
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)
	assert.Equal(t, 1, f.hub.Subscribers())

	snap := f.trigger.RefreshAll(context.Background(), ReasonCollection)

	select {
	case got := <-sub.Snapshots():
		assert.Equal(t, snap.Revision, got.Revision)
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, f.hub.Subscribers())
}

func TestHubBacklogIsBounded(t *testing.T) {
	hub := NewHub()
	for i := 0; i < DefaultBufferSize+3; i++ {
		hub.Publish(Snapshot{Reason: "r"})
	}
	sub, backlog, err := hub.Subscribe()
	require.NoError(t, err)
	defer sub.Close()
	assert.Len(t, backlog, DefaultBufferSize)
}

func TestNilHub(t *testing.T) {
	var hub *Hub
	hub.Publish(Snapshot{})
	_, _, err := hub.Subscribe()
	assert.ErrorIs(t, err, ErrHubUnavailable)
	_, ok := hub.Latest()
	assert.False(t, ok)
}
