package persistence

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/lock"
	"github.com/smallbiznis/shopbooks/internal/observability/metrics"
	"github.com/smallbiznis/shopbooks/internal/persistence/domain"
	"github.com/smallbiznis/shopbooks/internal/persistence/remote"
	"github.com/smallbiznis/shopbooks/internal/persistence/repository"
	"github.com/smallbiznis/shopbooks/internal/persistence/service"
	"github.com/smallbiznis/shopbooks/internal/persistence/writebehind"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("persistence",
	fx.Provide(
		repository.New,
		newRedisClient,
		newMirror,
		writebehind.NewTracker,
		newQueue,
		service.New,
		func(svc *service.Service) domain.Persister { return svc },
	),
	fx.Invoke(runQueue),
)

// newRedisClient returns nil when redis is not configured.
func newRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.Redis.Addr),
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	return client
}

func newMirror(client *redis.Client, cfg config.Config, log *zap.Logger) domain.Mirror {
	if client == nil {
		log.Info("remote mirror disabled")
		return nil
	}

	log.Info("remote mirror enabled", zap.String("addr", cfg.Redis.Addr))
	return remote.New(client, lock.NewLocker(client))
}

func newQueue(cfg config.Config, log *zap.Logger, tracker *writebehind.Tracker, m *metrics.PersistenceMetrics) *writebehind.Queue {
	return writebehind.NewQueue(log, cfg.WriteBehind, tracker, m)
}

func runQueue(lc fx.Lifecycle, q *writebehind.Queue, svc *service.Service, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				q.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			if err := svc.Flush(stopCtx); err != nil {
				log.Warn("pending snapshots not flushed on shutdown", zap.Int("pending", q.Len()), zap.Error(err))
			}
			return nil
		},
	})
}
