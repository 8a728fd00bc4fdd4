// Package refresh recomputes every derived figure after a change and pushes
// the result to whoever is listening.
package refresh

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/shopbooks/internal/aggregate"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/creditview"
	entity "github.com/smallbiznis/shopbooks/internal/entity/domain"
	ledger "github.com/smallbiznis/shopbooks/internal/ledger/domain"
	"github.com/smallbiznis/shopbooks/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ReasonStartup    = "startup"
	ReasonCollection = "collection"
	ReasonEntity     = "entity"
	ReasonReload     = "reload"
)

// Snapshot is everything a screen needs after a refresh.
type Snapshot struct {
	Revision string                    `json:"revision"`
	At       time.Time                 `json:"at"`
	Reason   string                    `json:"reason"`
	Totals   aggregate.DashboardTotals `json:"totals"`
	Daily    aggregate.DailySummary    `json:"daily"`
	Views    creditview.Views          `json:"views"`
}

// Notifier is told about every refresh.
type Notifier interface {
	Notify(ctx context.Context, s Snapshot)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Stores    entity.Reader
	Ledger    ledger.Ledger
	Hub       *Hub
	Metrics   *metrics.Metrics             `optional:"true"`
	Notifiers []Notifier                   `group:"refresh_notifiers"`
	Sources   []aggregate.InvestmentSource `group:"investment_sources"`
}

type Trigger struct {
	log       *zap.Logger
	clock     clock.Clock
	stores    entity.Reader
	ledger    ledger.Ledger
	hub       *Hub
	metrics   *metrics.Metrics
	notifiers []Notifier
	sources   []aggregate.InvestmentSource
}

func New(p Params) *Trigger {
	return &Trigger{
		log:       p.Log.Named("refresh.trigger"),
		clock:     p.Clock,
		stores:    p.Stores,
		ledger:    p.Ledger,
		hub:       p.Hub,
		metrics:   p.Metrics,
		notifiers: p.Notifiers,
		sources:   p.Sources,
	}
}

// State captures the current stores and ledger.
func (t *Trigger) State() aggregate.Snapshot {
	return aggregate.Snapshot{
		Sales:    t.stores.Sales(),
		Services: t.stores.ServiceJobs(),
		Stock:    t.stores.StockItems(),
		Expenses: t.stores.Expenses(),
		Ledger:   t.ledger.Entries(),
	}
}

func (t *Trigger) Sources() []aggregate.InvestmentSource {
	return t.sources
}

// RefreshAll recomputes dashboard totals, then today's summary, then the
// credit views, and publishes the result. It holds no state of its own and
// may be called any number of times.
func (t *Trigger) RefreshAll(ctx context.Context, reason string) Snapshot {
	start := time.Now()
	state := t.State()
	now := t.clock.Now()

	snap := Snapshot{
		Revision: ulid.Make().String(),
		At:       now.UTC(),
		Reason:   reason,
	}
	snap.Totals = aggregate.Dashboard(state, t.sources...)
	snap.Daily = aggregate.Daily(state, clock.Day(now))
	snap.Views = creditview.Build(state.Ledger)

	t.hub.Publish(snap)
	for _, n := range t.notifiers {
		if n == nil {
			continue
		}
		n.Notify(ctx, snap)
	}

	took := time.Since(start)
	t.metrics.RecordRefresh(ctx, reason, took)
	t.log.Debug("refreshed",
		zap.String("reason", reason),
		zap.String("revision", snap.Revision),
		zap.Duration("took", took),
	)
	return snap
}
