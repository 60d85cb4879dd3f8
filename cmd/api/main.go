package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/winslow-house/advising-api/api/swagger"
	"github.com/winslow-house/advising-api/internal/handler"
	"github.com/winslow-house/advising-api/internal/middleware"
	"github.com/winslow-house/advising-api/internal/repository"
	"github.com/winslow-house/advising-api/internal/service"
	"github.com/winslow-house/advising-api/pkg/cache"
	"github.com/winslow-house/advising-api/pkg/config"
	"github.com/winslow-house/advising-api/pkg/database"
	"github.com/winslow-house/advising-api/pkg/logger"
	"github.com/winslow-house/advising-api/pkg/mailer"
	corsmiddleware "github.com/winslow-house/advising-api/pkg/middleware/cors"
	reqidmiddleware "github.com/winslow-house/advising-api/pkg/middleware/requestid"
	"github.com/winslow-house/advising-api/pkg/sheets"
)

// @title Winslow House Advising API
// @version 1.0.0
// @description Administrative backend for the house advising program: student and tutor rosters, advisor assignment, workbook sync, and notifications.
// @BasePath /api
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	rtRepo := repository.NewResidentTutorRepository(db)
	nrtRepo := repository.NewNonResidentTutorRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	templateRepo := repository.NewEmailTemplateRepository(db)
	historyRepo := repository.NewEmailHistoryRepository(db)
	syncStateRepo := repository.NewSyncStateRepository(redisClient)
	authCodeRepo := repository.NewAuthCodeRepository(redisClient)

	// Infrastructure.
	sender := mailer.NewSMTPSender(cfg.SMTP, logr)
	workbook := sheets.NewWorkbook(cfg.Sheets.WorkbookPath)
	metricsSvc := service.NewMetricsService()

	// Services.
	authSvc := service.NewAuthService(authCodeRepo, sender, service.AuthConfig{
		AdminEmails: cfg.Auth.AdminEmails,
		CodeTTL:     cfg.Auth.CodeTTL,
		CodeLength:  cfg.Auth.CodeLength,
		JWTSecret:   cfg.JWT.Secret,
		JWTExpiry:   cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	}, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	rosterSvc := service.NewRosterService(studentRepo, rtRepo, nrtRepo, assignmentRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(studentRepo, rtRepo, nrtRepo, assignmentRepo, cfg.Assignments.NRTCapacity, logr)
	syncSvc := service.NewSyncService(studentRepo, rtRepo, nrtRepo, syncStateRepo, workbook, cfg.Sheets.CacheExpiry, logr)
	emailSvc := service.NewEmailService(templateRepo, historyRepo, studentRepo, rtRepo, nrtRepo, sender, validate, logr)
	statsSvc := service.NewStatsService(studentRepo, rtRepo, nrtRepo, logr)
	exportSvc := service.NewExportService(studentRepo, rtRepo, nrtRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	rtHandler := handler.NewResidentTutorHandler(rosterSvc)
	nrtHandler := handler.NewNonResidentTutorHandler(rosterSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, metricsSvc)
	syncHandler := handler.NewSyncHandler(syncSvc, metricsSvc)
	emailHandler := handler.NewEmailHandler(emailSvc, metricsSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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

	auth := api.Group("/auth")
	{
		auth.POST("/request-code", authHandler.RequestCode)
		auth.POST("/verify-code", authHandler.VerifyCode)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/students", studentHandler.List)
		protected.POST("/students", studentHandler.Create)
		protected.POST("/students/bulk", studentHandler.BulkAdd)
		protected.POST("/students/restore", studentHandler.Restore)
		protected.GET("/students/:id", studentHandler.Get)
		protected.PUT("/students/:id", studentHandler.Update)
		protected.DELETE("/students/:id", studentHandler.Delete)

		protected.PUT("/students/:id/rt", assignmentHandler.AssignRT)
		protected.DELETE("/students/:id/rt", assignmentHandler.RemoveRT)
		protected.PUT("/students/:id/nrt", assignmentHandler.AssignNRT)
		protected.DELETE("/students/:id/nrt", assignmentHandler.RemoveNRT)
		protected.GET("/students/:id/emails", emailHandler.History)

		protected.GET("/resident-tutors", rtHandler.List)
		protected.POST("/resident-tutors", rtHandler.Create)
		protected.GET("/resident-tutors/:id", rtHandler.Get)
		protected.PUT("/resident-tutors/:id", rtHandler.Update)
		protected.DELETE("/resident-tutors/:id", rtHandler.Delete)

		protected.GET("/non-resident-tutors", nrtHandler.List)
		protected.POST("/non-resident-tutors", nrtHandler.Create)
		protected.POST("/non-resident-tutors/bulk", nrtHandler.BulkAdd)
		protected.GET("/non-resident-tutors/:id", nrtHandler.Get)
		protected.PUT("/non-resident-tutors/:id", nrtHandler.Update)
		protected.DELETE("/non-resident-tutors/:id", nrtHandler.Delete)

		protected.POST("/sync/export", syncHandler.Export)
		protected.POST("/sync/import", syncHandler.Import)
		protected.GET("/sync/status", syncHandler.Status)
		protected.DELETE("/sync/cache", syncHandler.ClearCache)

		protected.GET("/email-templates", emailHandler.ListTemplates)
		protected.POST("/email-templates", emailHandler.CreateTemplate)
		protected.GET("/email-templates/:id", emailHandler.GetTemplate)
		protected.PUT("/email-templates/:id", emailHandler.UpdateTemplate)
		protected.DELETE("/email-templates/:id", emailHandler.DeleteTemplate)
		protected.GET("/email-templates/:id/preview/:studentId", emailHandler.Preview)
		protected.POST("/emails/send", emailHandler.Send)

		protected.GET("/stats", statsHandler.Overview)
		protected.GET("/exports/:roster", exportHandler.Roster)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
