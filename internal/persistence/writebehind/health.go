package writebehind

import (
	"sort"
	"sync"

	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
)

// Tracker keeps the latest result per target and collection.
type Tracker struct {
	mu     sync.RWMutex
	latest map[string]domain.Result
}

func NewTracker() *Tracker {
	return &Tracker{latest: map[string]domain.Result{}}
}

var _ domain.Health = (*Tracker)(nil)

func (t *Tracker) Record(r domain.Result) {
	t.mu.Lock()
	t.latest[slotKey(r.Target, r.Collection)] = r
	t.mu.Unlock()
}

// Report is healthy when the latest result of every slot succeeded.
func (t *Tracker) Report(pending int) domain.HealthReport {
	t.mu.RLock()
	defer t.mu.RUnlock()

	report := domain.HealthReport{Healthy: true, Pending: pending, Results: make([]domain.Result, 0, len(t.latest))}
	for _, r := range t.latest {
		if r.Status != domain.StatusOK {
			report.Healthy = false
		}
		report.Results = append(report.Results, r)
	}
	sort.Slice(report.Results, func(i, j int) bool {
		a, b := report.Results[i], report.Results[j]
		if a.Collection != b.Collection {
			return a.Collection < b.Collection
		}
		return a.Target < b.Target
	})
	return report
}
