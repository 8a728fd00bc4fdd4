package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/shopbooks/internal/config"
	entitydomain "github.com/smallbiznis/shopbooks/internal/entity/domain"
	"github.com/smallbiznis/shopbooks/internal/observability"
	obsmiddleware "github.com/smallbiznis/shopbooks/internal/observability/logger"
	obstracing "github.com/smallbiznis/shopbooks/internal/observability/tracing"
	"github.com/smallbiznis/shopbooks/internal/ratelimit"
	persistencedomain "github.com/smallbiznis/shopbooks/internal/persistence/domain"
	reconciledomain "github.com/smallbiznis/shopbooks/internal/reconcile/domain"
	"github.com/smallbiznis/shopbooks/internal/refresh"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{
		StoreKey:  obsCfg.StoreKey,
		SkipPaths: []string{"/health", "/metrics"},
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.String("addr", cfg.HTTPAddr), zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	books     *config.BooksConfigHolder
	engineSvc reconciledomain.Engine
	entitySvc entitydomain.Service
	persist   persistencedomain.Persister
	hub       *refresh.Hub
	limiter   *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Books     *config.BooksConfigHolder
	Engine    reconciledomain.Engine
	EntitySvc entitydomain.Service
	Persist   persistencedomain.Persister
	Hub       *refresh.Hub            `optional:"true"`
	Limiter   *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		books:     p.Books,
		engineSvc: p.Engine,
		entitySvc: p.EntitySvc,
		persist:   p.Persist,
		hub:       p.Hub,
		limiter:   p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.limiter.Middleware())

	// -------- Collections --------
	api.POST("/collections", s.AddCollection)
	api.GET("/collections", s.ListCollections)
	api.DELETE("/collections/:id", s.DeleteCollection)
	api.POST("/collections/remove", s.RemoveCollection)
	api.POST("/collections/pools", s.CollectPool)

	// -------- Sales --------
	api.POST("/sales", s.RecordSale)
	api.GET("/sales", s.ListSales)
	api.POST("/sales/:id/collect", s.CollectSale)

	// -------- Services --------
	api.POST("/services", s.RecordServiceJob)
	api.GET("/services", s.ListServiceJobs)
	api.POST("/services/:id/complete", s.CompleteServiceJob)
	api.POST("/services/:id/collect", s.CollectService)

	// -------- Stock --------
	api.POST("/stock", s.AddStock)
	api.GET("/stock", s.ListStock)
	api.POST("/stock/:id/sell", s.SellStock)

	// -------- Expenses --------
	api.POST("/expenses", s.RecordExpense)
	api.GET("/expenses", s.ListExpenses)

	// -------- Summaries --------
	api.GET("/summary/daily", s.GetDailySummary)
	api.GET("/summary/dashboard", s.GetDashboard)
	api.GET("/views/credit-collected", s.GetCreditCollectedViews)

	api.GET("/events", s.StreamRefreshes)
	api.GET("/persistence/health", s.GetPersistenceHealth)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
