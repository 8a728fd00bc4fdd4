// Package writebehind flushes collection snapshots to storage off the hot
// path. Each (target, collection) slot holds only the newest snapshot; failed
// writes are retried with exponential backoff until the attempt budget runs out.
package writebehind

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/smallbiznis/shopbooks/internal/config"
	obslogger "github.com/smallbiznis/shopbooks/internal/observability/logger"
	"github.com/smallbiznis/shopbooks/internal/observability/metrics"
	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"go.uber.org/zap"
)

const idleWait = time.Second

// Writer stores one snapshot on a target.
type Writer func(ctx context.Context, s domain.Snapshot) error

type job struct {
	target    domain.Target
	snapshot  domain.Snapshot
	seq       uint64
	attempt   int
	notBefore time.Time
	inflight  bool
}

type Queue struct {
	log     *zap.Logger
	cfg     config.WriteBehindConfig
	writers map[domain.Target]Writer
	health  domain.Health
	metrics *metrics.PersistenceMetrics
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]*job
	seq     uint64
	wake    chan struct{}
}

func NewQueue(log *zap.Logger, cfg config.WriteBehindConfig, health domain.Health, m *metrics.PersistenceMetrics) *Queue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	return &Queue{
		log:     log.Named("persistence.writebehind"),
		cfg:     cfg,
		writers: map[domain.Target]Writer{},
		health:  health,
		metrics: m,
		now:     time.Now,
		pending: make(map[string]*job, cfg.QueueSize),
		wake:    make(chan struct{}, 1),
	}
}

// Register adds a write target. It must be called before Run.
func (q *Queue) Register(target domain.Target, w Writer) {
	q.mu.Lock()
	q.writers[target] = w
	q.mu.Unlock()
}

// Targets lists the registered targets.
func (q *Queue) Targets() []domain.Target {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Target, 0, len(q.writers))
	for t := range q.writers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enqueue schedules s on every registered target, replacing any snapshot of
// the same collection that has not been written yet.
func (q *Queue) Enqueue(s domain.Snapshot) {
	q.mu.Lock()
	for target := range q.writers {
		key := slotKey(target, s.Collection)
		q.seq++
		if existing, ok := q.pending[key]; ok && !existing.inflight {
			q.metrics.IncCoalesced()
		}
		q.pending[key] = &job{target: target, snapshot: s, seq: q.seq}
	}
	depth := len(q.pending)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	q.signal()
}

// Len reports how many slots are waiting to be written.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run writes due snapshots until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		q.drain(ctx, false)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(q.nextWait())

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// Flush makes one write attempt for every pending slot, ignoring backoff.
// It returns the first error seen.
func (q *Queue) Flush(ctx context.Context) error {
	return q.drain(ctx, true)
}

func (q *Queue) drain(ctx context.Context, force bool) error {
	now := q.now()

	q.mu.Lock()
	due := make([]*job, 0, len(q.pending))
	for _, j := range q.pending {
		if j.inflight {
			continue
		}
		if !force && now.Before(j.notBefore) {
			continue
		}
		j.inflight = true
		due = append(due, j)
	}
	q.mu.Unlock()

	sort.Slice(due, func(i, k int) bool { return due[i].seq < due[k].seq })

	var firstErr error
	for _, j := range due {
		if err := q.write(ctx, j); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	q.metrics.SetQueueDepth(q.Len())
	return firstErr
}

func (q *Queue) write(ctx context.Context, j *job) error {
	q.mu.Lock()
	writer := q.writers[j.target]
	q.mu.Unlock()

	collection := j.snapshot.Collection
	attempt := j.attempt + 1
	start := q.now()

	var err error
	if writer == nil {
		err = domain.ErrUnknownTarget
	} else {
		err = writer(ctx, j.snapshot)
	}
	took := q.now().Sub(start)

	result := domain.Result{
		Collection: collection,
		Target:     j.target,
		Revision:   j.snapshot.Revision,
		Attempt:    attempt,
		At:         q.now(),
	}

	q.mu.Lock()
	key := slotKey(j.target, collection)
	current := q.pending[key]
	superseded := current != j
	j.inflight = false

	switch {
	case err == nil:
		if !superseded {
			delete(q.pending, key)
		}
		result.Status = domain.StatusOK
	case !metrics.IsPersistRetryable(err) || attempt >= q.cfg.MaxAttempts || errors.Is(err, domain.ErrUnknownTarget):
		if !superseded {
			delete(q.pending, key)
		}
		result.Status = domain.StatusFailed
	default:
		if !superseded {
			j.attempt = attempt
			j.notBefore = q.now().Add(Backoff(attempt, q.cfg.BaseBackoff, q.cfg.MaxBackoff))
		}
		result.Status = domain.StatusRetrying
	}
	q.mu.Unlock()

	if err != nil {
		result.Reason = metrics.ClassifyPersistReason(err)
		result.Error = err.Error()
		q.metrics.IncFailure(string(j.target), err)
	}
	q.metrics.ObserveWrite(collection, string(j.target), outcome(result.Status), took)
	if q.health != nil {
		q.health.Record(result)
	}

	log := obslogger.WithCollection(q.log, collection)
	if err != nil {
		log.Warn("snapshot write failed",
			zap.String("target", string(j.target)),
			zap.Int("attempt", attempt),
			zap.String("status", string(result.Status)),
			zap.String("reason", result.Reason),
			zap.Error(err),
		)
		return err
	}
	log.Debug("snapshot written",
		zap.String("target", string(j.target)),
		zap.String("revision", j.snapshot.Revision),
		zap.Int("records", j.snapshot.Records),
	)
	return nil
}

func (q *Queue) nextWait() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	wait := idleWait
	now := q.now()
	for _, j := range q.pending {
		if j.inflight {
			continue
		}
		d := j.notBefore.Sub(now)
		if d <= 0 {
			return time.Millisecond
		}
		if d < wait {
			wait = d
		}
	}
	return wait
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func slotKey(target domain.Target, collection string) string {
	return string(target) + "/" + collection
}

func outcome(s domain.Status) string {
	switch s {
	case domain.StatusOK:
		return metrics.PersistOutcomeOK
	case domain.StatusRetrying:
		return metrics.PersistOutcomeRetry
	default:
		return metrics.PersistOutcomeDropped
	}
}
