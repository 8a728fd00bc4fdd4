package reconcile

import (
	"context"

	"github.com/smallbiznis/shopbooks/internal/reconcile/domain"
	"github.com/smallbiznis/shopbooks/internal/reconcile/service"
	"github.com/smallbiznis/shopbooks/internal/refresh"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile.service",
	fx.Provide(
		service.New,
		func(s *service.Service) domain.Engine { return s },
	),
	fx.Invoke(registerStartup),
)

func registerStartup(lc fx.Lifecycle, engine domain.Engine, trigger *refresh.Trigger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := engine.Load(ctx); err != nil {
				return err
			}
			trigger.RefreshAll(ctx, refresh.ReasonStartup)
			return nil
		},
	})
}
