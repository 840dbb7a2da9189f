package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/smallbiznis/editorbridge/internal/billing/domain"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	"github.com/smallbiznis/editorbridge/internal/fasteditor"
	ledgerdomain "github.com/smallbiznis/editorbridge/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/editorbridge/internal/observability/metrics"
	orderprocdomain "github.com/smallbiznis/editorbridge/internal/orderproc/domain"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	clock      clock.Clock
	genID      *snowflake.Node
	shopRepo   shopdomain.Repository
	ledgerRepo ledgerdomain.Repository
	orderSvc   orderprocdomain.Service
	billingSvc billingdomain.Service
	refresher  currencydomain.Refresher
	feFactory  *fasteditor.Factory
	metrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	Clock      clock.Clock
	GenID      *snowflake.Node
	ShopRepo   shopdomain.Repository
	LedgerRepo ledgerdomain.Repository
	OrderSvc   orderprocdomain.Service
	BillingSvc billingdomain.Service
	Refresher  currencydomain.Refresher
	FEFactory  *fasteditor.Factory
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		db:         p.DB,
		clock:      p.Clock,
		genID:      p.GenID,
		shopRepo:   p.ShopRepo,
		ledgerRepo: p.LedgerRepo,
		orderSvc:   p.OrderSvc,
		billingSvc: p.BillingSvc,
		refresher:  p.Refresher,
		feFactory:  p.FEFactory,
		metrics:    p.Metrics,
	}

	svc.registerWebhookRoutes()
	svc.registerCallbackRoutes()
	svc.registerJobRoutes()
	svc.registerAdminRoutes()
	svc.registerStorefrontRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks", s.VerifyWebhookHMAC())

	webhooks.POST("/orders/paid", s.HandleOrderPaid)
	webhooks.POST("/app/uninstalled", s.HandleAppUninstalled)
}

func (s *Server) registerCallbackRoutes() {
	s.engine.POST("/callbacks/fasteditor", s.HandleEditorCallback)
}

func (s *Server) registerJobRoutes() {
	jobs := s.engine.Group("/jobs")

	jobs.POST("/rates/seed", s.SeedRates)
	jobs.POST("/rates/refresh", s.RefreshRates)
	jobs.POST("/billing/run", s.RunBilling)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.POST("/shops", s.UpsertShop)
	admin.GET("/shops/:shop", s.GetShop)
	admin.GET("/shops/:shop/billing-history", s.ListBillingHistory)
}

func (s *Server) registerStorefrontRoutes() {
	s.engine.POST("/smartlink", s.CreateSmartLink)
}
