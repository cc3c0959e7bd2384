package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	"github.com/smallbiznis/revenueshare/internal/config"
	"github.com/smallbiznis/revenueshare/internal/observability"
	obslogger "github.com/smallbiznis/revenueshare/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/revenueshare/internal/observability/metrics"
	obstracing "github.com/smallbiznis/revenueshare/internal/observability/tracing"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
	reportingdomain "github.com/smallbiznis/revenueshare/internal/reporting/domain"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	"github.com/smallbiznis/revenueshare/internal/statement"
	transactiondomain "github.com/smallbiznis/revenueshare/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := NewEngine(obsCfg, httpMetrics)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(corsMiddleware(cfg.CORSAllowedOrigins))
	}
	return r
}

// corsMiddleware lets the operator dashboard call the admin API from its own
// origin. Actor headers must be allowed explicitly.
func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", obslogger.HeaderActorID, obslogger.HeaderActorRole, obslogger.HeaderRequestID, obslogger.HeaderCorrelationID},
		ExposeHeaders:    []string{obslogger.HeaderRequestID, obslogger.HeaderCorrelationID, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http.server.failed", zap.Error(err))
				}
			}()
			log.Info("http.server.started", zap.String("addr", cfg.HTTPAddr))
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
	engine         *gin.Engine
	log            *zap.Logger
	authzSvc       authorization.Service
	pricingSvc     pricingdomain.Service
	transactionSvc transactiondomain.Service
	shareSvc       sharedomain.Service
	payoutSvc      payoutdomain.Service
	reportingSvc   reportingdomain.Service
	statements     statement.Renderer
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Log            *zap.Logger
	AuthzSvc       authorization.Service
	PricingSvc     pricingdomain.Service
	TransactionSvc transactiondomain.Service
	ShareSvc       sharedomain.Service
	PayoutSvc      payoutdomain.Service
	ReportingSvc   reportingdomain.Service
	Statements     statement.Renderer
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		log:            p.Log.Named("http.server"),
		authzSvc:       p.AuthzSvc,
		pricingSvc:     p.PricingSvc,
		transactionSvc: p.TransactionSvc,
		shareSvc:       p.ShareSvc,
		payoutSvc:      p.PayoutSvc,
		reportingSvc:   p.ReportingSvc,
		statements:     p.Statements,
	}

	svc.registerInternalRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerInternalRoutes exposes the feeds consumed from other subsystems.
func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal", s.RequireActor())

	internal.POST("/transactions/completed",
		s.authorizeAction(authorization.ObjectTransaction, authorization.ActionTransactionIngest),
		s.CompleteTransaction,
	)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.RequireActor())

	api.GET("/revenue_shares",
		s.authorizeAction(authorization.ObjectRevenueShare, authorization.ActionRevenueShareView),
		s.ListRevenueShares,
	)
	api.GET("/payouts",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutView),
		s.ListOwnPayouts,
	)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.RequireActor())

	admin.POST("/pricing_snapshots",
		s.authorizeAction(authorization.ObjectPricingSnapshot, authorization.ActionPricingCreate),
		s.CreatePricingSnapshot,
	)
	admin.GET("/pricing_snapshots",
		s.authorizeAction(authorization.ObjectPricingSnapshot, authorization.ActionPricingView),
		s.ListPricingSnapshots,
	)

	payouts := admin.Group("/payouts")
	payouts.GET("",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutView),
		s.ListPayouts,
	)
	payouts.POST("/generate",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutGenerate),
		s.GeneratePayouts,
	)
	payouts.GET("/runs/:run_id",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutView),
		s.GetGenerationRun,
	)
	payouts.GET("/:id",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutView),
		s.GetPayout,
	)
	payouts.GET("/:id/statement.pdf",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutView),
		s.GetPayoutStatement,
	)
	payouts.POST("/:id/processing",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutProcessing),
		s.MarkPayoutProcessing,
	)
	payouts.POST("/:id/complete",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutComplete),
		s.CompletePayout,
	)
	payouts.POST("/:id/fail",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutFail),
		s.FailPayout,
	)
	payouts.POST("/:id/retry",
		s.authorizeAction(authorization.ObjectPayout, authorization.ActionPayoutRetry),
		s.RetryPayout,
	)

	admin.GET("/reports/revenue_summary",
		s.authorizeAction(authorization.ObjectReport, authorization.ActionReportView),
		s.RevenueSummary,
	)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
