package writebehind

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/observability/metrics"
	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	writes []domain.Snapshot
	fail   []error
}

func (r *recorder) write(_ context.Context, s domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fail) > 0 {
		err := r.fail[0]
		r.fail = r.fail[1:]
		return err
	}
	r.writes = append(r.writes, s)
	return nil
}

func (r *recorder) revisions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.writes))
	for _, s := range r.writes {
		out = append(out, s.Revision)
	}
	return out
}

func newTestQueue(t *testing.T, cfg config.WriteBehindConfig) (*Queue, *Tracker) {
	t.Helper()
	tracker := NewTracker()
	m := metrics.NewPersistenceMetricsForTest(prometheus.NewRegistry())
	return NewQueue(zap.NewNop(), cfg, tracker, m), tracker
}

func snap(collection, revision string) domain.Snapshot {
	return domain.Snapshot{StoreKey: "shop", Collection: collection, Revision: revision, Payload: []byte("[]")}
}

func TestQueueCoalescesToLatest(t *testing.T) {
	q, tracker := newTestQueue(t, config.WriteBehindConfig{})
	rec := &recorder{}
	q.Register(domain.TargetPrimary, rec.write)

	q.Enqueue(snap("sales", "r1"))
	q.Enqueue(snap("sales", "r2"))
	q.Enqueue(snap("expenses", "r3"))
	require.Equal(t, 2, q.Len())

	require.NoError(t, q.Flush(context.Background()))
	assert.ElementsMatch(t, []string{"r2", "r3"}, rec.revisions())
	assert.Equal(t, 0, q.Len())

	report := tracker.Report(q.Len())
	assert.True(t, report.Healthy)
	assert.Len(t, report.Results, 2)
}

func TestQueueFanOutPerTarget(t *testing.T) {
	q, _ := newTestQueue(t, config.WriteBehindConfig{})
	primary, remote := &recorder{}, &recorder{}
	q.Register(domain.TargetPrimary, primary.write)
	q.Register(domain.TargetRemote, remote.write)

	q.Enqueue(snap("stock", "r1"))
	require.Equal(t, 2, q.Len())
	require.NoError(t, q.Flush(context.Background()))

	assert.Equal(t, []string{"r1"}, primary.revisions())
	assert.Equal(t, []string{"r1"}, remote.revisions())
	assert.Equal(t, []domain.Target{domain.TargetPrimary, domain.TargetRemote}, q.Targets())
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	q, tracker := newTestQueue(t, config.WriteBehindConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	rec := &recorder{fail: []error{errors.New("disk busy")}}
	q.Register(domain.TargetPrimary, rec.write)

	q.Enqueue(snap("sales", "r1"))

	err := q.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, q.Len())
	report := tracker.Report(q.Len())
	assert.False(t, report.Healthy)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.StatusRetrying, report.Results[0].Status)
	assert.Equal(t, 1, report.Results[0].Attempt)

	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, []string{"r1"}, rec.revisions())
	report = tracker.Report(q.Len())
	assert.True(t, report.Healthy)
	assert.Equal(t, 2, report.Results[0].Attempt)
}

func TestQueueDropsAfterMaxAttempts(t *testing.T) {
	q, tracker := newTestQueue(t, config.WriteBehindConfig{MaxAttempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	boom := errors.New("disk gone")
	rec := &recorder{fail: []error{boom, boom, boom}}
	q.Register(domain.TargetPrimary, rec.write)

	q.Enqueue(snap("sales", "r1"))
	require.Error(t, q.Flush(context.Background()))
	require.Error(t, q.Flush(context.Background()))

	assert.Equal(t, 0, q.Len())
	report := tracker.Report(q.Len())
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.StatusFailed, report.Results[0].Status)
	assert.Equal(t, "disk gone", report.Results[0].Error)
}

func TestQueueDoesNotRetryUniqueViolation(t *testing.T) {
	q, tracker := newTestQueue(t, config.WriteBehindConfig{MaxAttempts: 5})
	rec := &recorder{fail: []error{gorm.ErrDuplicatedKey}}
	q.Register(domain.TargetPrimary, rec.write)

	q.Enqueue(snap("sales", "r1"))
	require.Error(t, q.Flush(context.Background()))

	assert.Equal(t, 0, q.Len())
	report := tracker.Report(q.Len())
	assert.Equal(t, domain.StatusFailed, report.Results[0].Status)
	assert.Equal(t, metrics.PersistReasonUniqueViolation, report.Results[0].Reason)
}

func TestQueueRunWritesInBackground(t *testing.T) {
	q, _ := newTestQueue(t, config.WriteBehindConfig{})
	rec := &recorder{}
	q.Register(domain.TargetPrimary, rec.write)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	q.Enqueue(snap("services", "r9"))
	assert.Eventually(t, func() bool { return len(rec.revisions()) == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, base, Backoff(1, base, time.Second))
	assert.Equal(t, 200*time.Millisecond, Backoff(2, base, time.Second))
	assert.Equal(t, 400*time.Millisecond, Backoff(3, base, time.Second))
	assert.Equal(t, time.Second, Backoff(10, base, time.Second))
}
