package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "invoicing/api/swagger" // swagger docs
	"invoicing/internal/clock"
	"invoicing/internal/config"
	"invoicing/internal/database"
	"invoicing/internal/handler"
	"invoicing/internal/metrics"
	"invoicing/internal/middleware"
	"invoicing/internal/repository"
	"invoicing/internal/service"
	"invoicing/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Invoicing API
// @version         1.0
// @description     Clients, estimates, GST invoices and payments.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync() //nolint:errcheck

	db, err := database.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	logger.Info("connected to database", zap.String("driver", cfg.DB.Driver))

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	m := metrics.New(prometheus.DefaultRegisterer)
	deps := service.Deps{Clock: clock.System{}, Logger: logger, Metrics: m, Events: wsHub}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	clientRepo := repository.NewClientRepository(db)
	estimateRepo := repository.NewEstimateRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	numberingService := service.NewNumberingService(repository.NewSequenceRepository(db), txManager)
	clientService := service.NewClientService(clientRepo, txManager, deps)
	invoiceService := service.NewInvoiceService(invoiceRepo, clientRepo, paymentRepo, estimateRepo, numberingService, txManager, deps)
	estimateService := service.NewEstimateService(estimateRepo, invoiceRepo, clientRepo, numberingService, txManager, deps)
	paymentService := service.NewPaymentService(paymentRepo, invoiceRepo, txManager, deps)
	statisticsService := service.NewStatisticsService(statsRepo, clientRepo, invoiceRepo, deps)

	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.Disabled)
	if cfg.Auth.Disabled {
		logger.Warn("authentication disabled, every request runs as ADMIN")
	}

	// Initialize Handlers
	clientHandler := handler.NewClientHandler(clientService, auth)
	estimateHandler := handler.NewEstimateHandler(estimateService, auth)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, auth)
	paymentHandler := handler.NewPaymentHandler(paymentService, auth)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, auth)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.HTTPMetrics(m))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.Secret(), middleware.AllRoles...)
	})

	api := router.Group("")
	clientHandler.RegisterRoutes(api)
	estimateHandler.RegisterRoutes(api)
	invoiceHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go service.RunOverdueSweep(ctx, invoiceService, cfg.Overdue.SweepInterval, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
