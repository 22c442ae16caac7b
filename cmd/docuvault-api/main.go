package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/docuvault/docuvault-api/api/swagger"
	"github.com/docuvault/docuvault-api/internal/handler"
	"github.com/docuvault/docuvault-api/internal/middleware"
	"github.com/docuvault/docuvault-api/internal/repository"
	"github.com/docuvault/docuvault-api/internal/service"
	"github.com/docuvault/docuvault-api/pkg/ai"
	"github.com/docuvault/docuvault-api/pkg/cache"
	"github.com/docuvault/docuvault-api/pkg/config"
	"github.com/docuvault/docuvault-api/pkg/database"
	"github.com/docuvault/docuvault-api/pkg/logger"
	corsmiddleware "github.com/docuvault/docuvault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/docuvault/docuvault-api/pkg/middleware/requestid"
	"github.com/docuvault/docuvault-api/pkg/storage"
)

// @title DocuVault API
// @version 1.0.0
// @description Document lifecycle management: versioned content, metadata, e-signatures, audit trail and question answering.
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
			redisClient = nil
		}
	}

	blobs, err := storage.NewLocalBlobStore(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err)
	}

	aiClient := ai.NewClient(cfg.OpenAI)
	defer aiClient.Close()

	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	repo := repository.NewDocumentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	indexSvc := service.NewIndexService(repo, blobs, aiClient, metricsSvc, cfg.Index, logr)
	docSvc := service.NewDocumentService(repo, blobs, indexSvc, cacheRepo, signer, metricsSvc, cfg.Cache, cfg.Uploads.MaxFileSizeBytes, logr)
	sigSvc := service.NewSignatureService(repo, cacheRepo, metricsSvc, logr)
	exportSvc := service.NewAuditExportService(docSvc, logr)
	shareSvc := service.NewShareService(docSvc, repo, validator.New(), cfg.Shares, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexSvc.Start(ctx)
	defer indexSvc.Stop()
	if cfg.Index.WarmupOnStart {
		go indexSvc.Warm(ctx)
	}

	docHandler := handler.NewDocumentHandler(docSvc, exportSvc, cfg.APIPrefix)
	chatHandler := handler.NewChatHandler(docSvc)
	sigHandler := handler.NewSignatureHandler(sigSvc)
	shareHandler := handler.NewShareHandler(shareSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessProbe{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
		"index":    aiClient.Healthy,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/documents/upload", docHandler.Upload)
		api.GET("/documents", docHandler.List)
		api.GET("/documents/:id", docHandler.Get)
		api.PUT("/documents/:id", docHandler.Update)
		api.PATCH("/documents/:id/metadata", docHandler.UpdateMetadata)
		api.GET("/documents/:id/audit", docHandler.AuditTrail)
		api.GET("/documents/:id/audit/export", docHandler.ExportAuditTrail)
		api.GET("/documents/:id/download-url", docHandler.DownloadURL)
		api.GET("/documents/:id/download", docHandler.Download)

		api.POST("/documents/:id/signatures", sigHandler.Request)
		api.POST("/documents/:id/signatures/:sid/complete", sigHandler.Complete)
		api.POST("/documents/:id/signatures/:sid/reject", sigHandler.Reject)

		api.POST("/documents/:id/share", shareHandler.Create)
		api.GET("/documents/:id/shared", shareHandler.Resolve)

		api.POST("/chat", chatHandler.Ask)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
