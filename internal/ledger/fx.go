package ledger

import (
	"github.com/smallbiznis/shopbooks/internal/ledger/domain"
	"github.com/smallbiznis/shopbooks/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(
		service.New,
		func(s *service.Service) domain.Ledger { return s },
	),
)
