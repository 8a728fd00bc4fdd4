package entity

import (
	"github.com/smallbiznis/shopbooks/internal/entity/domain"
	"github.com/smallbiznis/shopbooks/internal/entity/service"
	"github.com/smallbiznis/shopbooks/internal/entity/store"
	"go.uber.org/fx"
)

var Module = fx.Module("entity.service",
	fx.Provide(
		store.New,
		func(s *store.Stores) domain.Reader { return s },
		func(s *store.Stores) domain.Settler { return s },
		func(s *store.Stores) domain.Loader { return s },
		service.New,
	),
)
