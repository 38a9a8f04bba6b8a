package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/acadchain-api/api/swagger"
	"github.com/noah-isme/acadchain-api/internal/handler"
	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/middleware"
	"github.com/noah-isme/acadchain-api/internal/models"
	"github.com/noah-isme/acadchain-api/internal/repository"
	"github.com/noah-isme/acadchain-api/internal/service"
	"github.com/noah-isme/acadchain-api/pkg/cache"
	"github.com/noah-isme/acadchain-api/pkg/config"
	"github.com/noah-isme/acadchain-api/pkg/database"
	"github.com/noah-isme/acadchain-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/acadchain-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/acadchain-api/pkg/middleware/requestid"
	"github.com/noah-isme/acadchain-api/pkg/storage"
)

// @title AcadChain API
// @version 1.0.0
// @description Ledger-anchored academic record lifecycle engine
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	blobs, err := storage.NewBlobStore(cfg.Storage.BlobDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to open blob store", "error", err)
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	ledgerClient := ledger.NewClient(cfg.Ledger, logr)
	ledgerClient.SetObserver(metricsService.ObserveLedgerCall)
	pool := ledger.NewPool(ledgerClient, cfg.Ledger.PoolSize, logr)
	defer pool.Close()

	userRepo := repository.NewUserRepository(db)
	tokenStore := repository.NewTokenStore(redisClient)
	consentRepo := repository.NewConsentRepository(db)
	archiveRepo := repository.NewDocumentArchiveRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, metricsService, cfg.Notify, logr)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	notificationService.Start(ctx)
	defer notificationService.Stop()

	authService := service.NewAuthService(userRepo, tokenStore, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	approvalService := service.NewApprovalService(pool, notificationService, userRepo, validate, logr,
		service.ApprovalServiceConfig{MSPID: cfg.Ledger.MSPID})
	documentService := service.NewDocumentService(pool, blobs, archiveRepo, validate, logr, cfg.Ledger.MSPID)
	consentService := service.NewConsentService(pool, consentRepo, notificationService, validate, logr, cfg.Ledger.MSPID)
	exportService := service.NewExportService(consentService, documentService, logr)

	authHandler := handler.NewAuthHandler(authService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	documentHandler := handler.NewDocumentHandler(documentService)
	consentHandler := handler.NewConsentHandler(consentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.PUT("/password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	approverRoles := append(models.ApproverRoles(), models.RoleAdmin)

	records := api.Group("/records", middleware.JWT(authService))
	{
		records.POST("/submit/:id",
			middleware.RequireRoles(models.RoleStudent, models.RoleFaculty, models.RoleAdmin),
			approvalHandler.Submit)
		records.POST("/faculty/:id",
			middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin),
			approvalHandler.FacultyApprove)
		records.POST("/hod/:id",
			middleware.RequireRoles(models.RoleHOD, models.RoleAdmin),
			approvalHandler.HODApprove)
		records.POST("/dac/:id",
			middleware.RequireRoles(models.RoleDAC, models.RoleAdmin),
			approvalHandler.DACApprove)
		records.POST("/exam-section/:id",
			middleware.RequireRoles(models.RoleExamSection, models.RoleAdmin),
			approvalHandler.ExamSectionApprove)
		records.POST("/dean/:id",
			middleware.RequireRoles(models.RoleDeanAcademic, models.RoleAdmin),
			approvalHandler.DeanApprove)
		records.POST("/reject/:id",
			middleware.RequireRoles(approverRoles...),
			approvalHandler.Reject)
		records.GET("/status/:id", approvalHandler.Status)
		records.GET("/queue/:status", approvalHandler.Queue)
	}

	documents := api.Group("/documents")
	{
		documents.POST("/upload",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleStudent, models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionUpload, "document"),
			documentHandler.Upload)
		documents.PUT("/status/:id",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleFaculty, models.RoleExamSection, models.RoleAdmin),
			documentHandler.UpdateStatus)
		documents.POST("/version/:id",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleStudent, models.RoleAdmin),
			documentHandler.NewVersion)
		documents.GET("/versions/:id", middleware.JWT(authService), documentHandler.Versions)
		documents.GET("/:id", middleware.JWT(authService), documentHandler.Get)
		documents.GET("/student/:studentId",
			middleware.JWT(authService),
			middleware.RequireSelfOrRoles(approverRoles...),
			documentHandler.ListByStudent)
		documents.POST("/verify", middleware.OptionalJWT(authService), documentHandler.Verify)
		// Public verification path for external verifiers holding only a hash.
		documents.GET("/verify/:hash", middleware.OptionalJWT(authService), documentHandler.VerifyByHash)
	}

	consents := api.Group("/consents")
	{
		consents.POST("/grant",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleStudent, models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionConsent, "consent"),
			consentHandler.Grant)
		consents.POST("/revoke/:id",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleStudent, models.RoleAdmin),
			middleware.Audit(userRepo, models.AuditActionConsent, "consent"),
			consentHandler.Revoke)
		consents.GET("/student/:studentId",
			middleware.JWT(authService),
			middleware.RequireSelfOrRoles(approverRoles...),
			consentHandler.ListByStudent)
		// Intentionally unauthenticated: the public-verifier use case.
		consents.GET("/check/:studentId/:requesterId", consentHandler.Check)
	}

	notifications := api.Group("/notifications", middleware.JWT(authService))
	{
		notifications.GET("", notificationHandler.List)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
	}

	exports := api.Group("/exports", middleware.JWT(authService))
	{
		exports.GET("/consents/:studentId",
			middleware.RequireSelfOrRoles(approverRoles...),
			exportHandler.ConsentAuditCSV)
		exports.GET("/verification/:hash", exportHandler.VerificationReceiptPDF)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
