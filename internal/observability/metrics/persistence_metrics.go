package metrics

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopbooks/internal/lock"
	"gorm.io/gorm"
)

const (
	PersistReasonDeadlineExceeded     = "deadline_exceeded"
	PersistReasonDBLockTimeout        = "db_lock_timeout"
	PersistReasonSerializationFailure = "serialization_failure"
	PersistReasonUniqueViolation      = "unique_violation"
	PersistReasonConnection           = "connection"
	PersistReasonDB                   = "db"
	PersistReasonRedis                = "redis"
	PersistReasonLocked               = "locked"
	PersistReasonUnknown              = "unknown"
)

const (
	PersistOutcomeOK      = "ok"
	PersistOutcomeRetry   = "retry"
	PersistOutcomeDropped = "dropped"
)

// PersistenceMetrics captures write-behind health for the books collections.
type PersistenceMetrics struct {
	writes    *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	queued    prometheus.Gauge
	coalesced prometheus.Counter
}

var (
	persistenceMetricsOnce sync.Once
	persistenceMetrics     *PersistenceMetrics
)

// Persistence returns the singleton persistence metrics registry.
func Persistence() *PersistenceMetrics {
	return PersistenceWithConfig(Config{})
}

// PersistenceWithConfig returns the singleton persistence metrics registry using config labels.
func PersistenceWithConfig(cfg Config) *PersistenceMetrics {
	persistenceMetricsOnce.Do(func() {
		persistenceMetrics = newPersistenceMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return persistenceMetrics
}

// NewPersistenceMetricsForTest builds an instance on a private registry.
func NewPersistenceMetricsForTest(registerer prometheus.Registerer) *PersistenceMetrics {
	return newPersistenceMetrics(registerer, Config{ServiceName: "shopbooks", Environment: "test"})
}

func newPersistenceMetrics(registerer prometheus.Registerer, cfg Config) *PersistenceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "shopbooks"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopbooks_persist_writes_total",
		Help:        "Collection snapshot writes by target and outcome.",
		ConstLabels: constLabels,
	}, []string{"collection", "target", "outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopbooks_persist_failures_total",
		Help:        "Collection snapshot write failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"target", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "shopbooks_persist_duration_seconds",
		Help:        "Collection snapshot write latency.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"target"})
	queued := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "shopbooks_persist_queue_depth",
		Help:        "Collections waiting for a write-behind flush.",
		ConstLabels: constLabels,
	})
	coalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "shopbooks_persist_coalesced_total",
		Help:        "Pending snapshots replaced by a newer one before being written.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(writes, failures, duration, queued, coalesced)

	return &PersistenceMetrics{
		writes:    writes,
		failures:  failures,
		duration:  duration,
		queued:    queued,
		coalesced: coalesced,
	}
}

func (m *PersistenceMetrics) ObserveWrite(collection, target, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(collection, target, outcome).Inc()
	m.duration.WithLabelValues(target).Observe(took.Seconds())
}

func (m *PersistenceMetrics) IncFailure(target string, err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(target, ClassifyPersistReason(err)).Inc()
}

func (m *PersistenceMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queued.Set(float64(n))
}

func (m *PersistenceMetrics) IncCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

// ClassifyPersistReason maps storage errors to low-cardinality reasons.
func ClassifyPersistReason(err error) string {
	if err == nil {
		return PersistReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return PersistReasonDeadlineExceeded
	}
	if errors.Is(err, lock.ErrLockHeld) {
		return PersistReasonLocked
	}
	if hasPGCode(err, "55P03") {
		return PersistReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return PersistReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return PersistReasonUniqueViolation
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return PersistReasonConnection
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return PersistReasonRedis
	}
	if isDBError(err) {
		return PersistReasonDB
	}
	return PersistReasonUnknown
}

// IsPersistRetryable reports whether a failed write should be retried.
func IsPersistRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch ClassifyPersistReason(err) {
	case PersistReasonUniqueViolation:
		return false
	default:
		return true
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
