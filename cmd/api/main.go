package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "taxcalc/api/swagger" // swagger docs
	"taxcalc/internal/config"
	"taxcalc/internal/database"
	"taxcalc/internal/events"
	"taxcalc/internal/handler"
	"taxcalc/internal/middleware"
	"taxcalc/internal/obs"
	"taxcalc/internal/repository"
	"taxcalc/internal/service"
	"taxcalc/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Digital Goods Tax API
// @version         1.0
// @description     Sales tax, VAT and economic nexus determination for digital goods.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := obs.NewLogger("json", "info")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)

	db, err := database.NewConnection(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	logger.Info().Str("host", cfg.DBHost).Str("name", cfg.DBName).Msg("connected to PostgreSQL")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDefaults {
		if err := database.Seed(ctx, db, logger); err != nil {
			logger.Fatal().Err(err).Msg("seeding reference configuration failed")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics("taxcalc", registry)

	// Change feed: WebSocket clients always, Kafka when brokers are configured
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	publishers := events.MultiPublisher{wsHub}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kafka.Close()
		publishers = append(publishers, kafka)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka publisher enabled")
	}

	// Set up dependencies (Repository -> Service -> Handler)
	jurisdictionRepo := repository.NewJurisdictionRepository(db)
	taxRateRepo := repository.NewTaxRateRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	thresholdRepo := repository.NewNexusThresholdRepository(db)
	vatRateRepo := repository.NewVATRateRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)
	configStore := repository.NewConfigStore(jurisdictionRepo, taxRateRepo, taxRuleRepo, thresholdRepo, vatRateRepo)

	calculatorService := service.NewCalculatorService(configStore, metrics, logger)
	jurisdictionService := service.NewJurisdictionService(jurisdictionRepo, auditRepo, publishers, logger)
	taxRateService := service.NewTaxRateService(taxRateRepo, txManager, auditRepo, publishers, logger)
	taxRuleService := service.NewTaxRuleService(taxRuleRepo, auditRepo, publishers, logger)
	thresholdService := service.NewNexusThresholdService(thresholdRepo, auditRepo, publishers, logger)
	vatRateService := service.NewVATRateService(vatRateRepo, auditRepo, publishers, logger)
	nexusService := service.NewNexusService(configStore, thresholdRepo, transactionRepo)
	transactionService := service.NewTransactionService(calculatorService, transactionRepo, auditRepo, publishers, logger)
	auditService := service.NewAuditService(auditRepo)

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("database handle unavailable")
	}

	// Initialize Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewSystemHandler(sqlDB.PingContext, registry, wsHub),
		handler.NewCalculatorHandler(calculatorService),
		handler.NewJurisdictionHandler(jurisdictionService),
		handler.NewTaxRateHandler(taxRateService),
		handler.NewTaxRuleHandler(taxRuleService),
		handler.NewVATRateHandler(vatRateService),
		handler.NewNexusHandler(nexusService, thresholdService),
		handler.NewTransactionHandler(transactionService),
		handler.NewAuditHandler(auditService),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Actor(),
		middleware.RequestLogger(logger),
		middleware.Metrics(metrics),
	)

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", middleware.HeaderRequestID, middleware.HeaderActor}
	corsConfig.ExposeHeaders = []string{middleware.HeaderRequestID}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.AppEnv).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing database")
	}

	logger.Info().Msg("server exited")
}
