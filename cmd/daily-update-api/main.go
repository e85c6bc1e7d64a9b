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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/daily-update-api/api/swagger"
	"github.com/noah-isme/daily-update-api/internal/handler"
	"github.com/noah-isme/daily-update-api/internal/middleware"
	"github.com/noah-isme/daily-update-api/internal/models"
	"github.com/noah-isme/daily-update-api/internal/repository"
	"github.com/noah-isme/daily-update-api/internal/service"
	"github.com/noah-isme/daily-update-api/pkg/cache"
	"github.com/noah-isme/daily-update-api/pkg/config"
	"github.com/noah-isme/daily-update-api/pkg/database"
	"github.com/noah-isme/daily-update-api/pkg/jobs"
	"github.com/noah-isme/daily-update-api/pkg/logger"
	"github.com/noah-isme/daily-update-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/daily-update-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/daily-update-api/pkg/middleware/requestid"
	"github.com/noah-isme/daily-update-api/pkg/storage"
)

// @title Daily Update API
// @version 1.0.0
// @description Generates and emails daily classroom updates to parents and students.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()

	router, err := newMailRouter(cfg, metrics, logr)
	if err != nil {
		logr.Fatal("failed to configure email transports", zap.Error(err))
	}
	var quota mailer.Quota = mailer.NewMemoryQuota(cfg.Email.DailyLimit)
	if redisClient != nil {
		quota = mailer.NewRedisQuota(redisClient, "daily-update:quota", cfg.Email.DailyLimit)
	}

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logr.Fatal("failed to prepare storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	studentRepo := repository.NewStudentRepository(db)
	recordRepo := repository.NewClassRecordRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	emailRepo := repository.NewDailyUpdateEmailRepository(db)

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheService = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	}

	location := cfg.DailyUpdates.Location()
	updateService := service.NewDailyUpdateService(studentRepo, recordRepo, teacherRepo, cacheService, metrics, service.DailyUpdateServiceConfig{
		Location:          location,
		DefaultSchoolName: cfg.DailyUpdates.DefaultSchoolName,
		CacheTTL:          cfg.Cache.TTL,
	}, logr)
	emailService := service.NewEmailService(router, quota, metrics, service.EmailServiceConfig{
		From:         mailer.Address{Name: cfg.Email.FromName, Email: cfg.Email.FromAddress},
		MaxRetries:   cfg.Email.MaxRetries,
		RetryBackoff: cfg.Email.RetryBackoff,
		SendInterval: cfg.Email.SendInterval,
	}, logr)
	attachmentService := service.NewAttachmentService(store, cfg.DailyUpdates.AttachReport, logr)
	dispatchService := service.NewDailyUpdateDispatchService(updateService, emailService, attachmentService, emailRepo, logr)
	preferenceService := service.NewPreferenceService(updateService, teacherRepo, logr)
	historyService := service.NewEmailHistoryService(emailRepo, store, signer, service.HistoryConfig{
		APIPrefix:       cfg.APIPrefix,
		ExportTTL:       cfg.Storage.Retention,
		RecordRetention: cfg.Storage.HistoryRetention,
		Location:        location,
	}, logr)
	authService := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	queue := jobs.NewQueue("daily-updates", dispatchService.HandleJob, jobs.QueueConfig{
		Workers:    cfg.DailyUpdates.WorkerConcurrency,
		MaxRetries: cfg.DailyUpdates.WorkerRetries,
		RetryDelay: 5 * time.Second,
		JobTimeout: 30 * time.Minute,
		OnFinish:   dispatchService.FinishJob,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	dispatchService.UseQueue(queue)

	go runCleanup(ctx, historyService, cfg.Storage.CleanupInterval, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	dailyUpdateHandler := handler.NewDailyUpdateHandler(updateService, dispatchService)
	preferenceHandler := handler.NewPreferenceHandler(preferenceService, updateService)
	emailHandler := handler.NewEmailHandler(emailService)
	historyHandler := handler.NewEmailHistoryHandler(historyService)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	// Export links are signed and carry their own expiry.
	api.GET("/emails/history/download/:token", historyHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authService))
	secured.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))

	updates := secured.Group("/daily-updates")
	updates.GET("", dailyUpdateHandler.Generate)
	updates.GET("/summary", dailyUpdateHandler.Summary)
	updates.POST("/send", dailyUpdateHandler.SendParentUpdates)
	updates.GET("/jobs/:id", dailyUpdateHandler.JobStatus)
	updates.POST("/students/preview", dailyUpdateHandler.PreviewFromData)
	updates.POST("/students/send", dailyUpdateHandler.SendStudentEmails)
	updates.POST("/students/deliver", dailyUpdateHandler.Deliver)
	updates.GET("/students/:id/preview", dailyUpdateHandler.Preview)
	updates.POST("/students/:id/send", dailyUpdateHandler.SendParentUpdate)
	updates.POST("/students/:id/send-student", dailyUpdateHandler.SendStudentEmail)

	prefs := secured.Group("/email-preferences")
	prefs.GET("", preferenceHandler.Get)
	prefs.PUT("", preferenceHandler.Update)
	prefs.POST("/validate", preferenceHandler.Validate)
	prefs.GET("/availability", preferenceHandler.Availability)

	emails := secured.Group("/emails")
	emails.POST("/send", emailHandler.Send)
	emails.POST("/batch", emailHandler.Batch)
	emails.GET("/status", emailHandler.Status)
	emails.GET("/history", historyHandler.List)
	emails.GET("/history/export", historyHandler.Export)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newMailRouter registers every configured transport behind its own circuit
// breaker. The console transport is always available.
func newMailRouter(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*mailer.Router, error) {
	breaker := mailer.BreakerConfig{
		FailureThreshold: cfg.Email.BreakerThreshold,
		Timeout:          cfg.Email.BreakerTimeout,
		OnStateChange:    metrics.SetBreakerState,
		Logger:           logr,
	}

	senders := []mailer.Sender{mailer.WithBreaker(mailer.NewConsoleSender(logr), breaker)}
	if cfg.SMTP.Host != "" {
		smtp, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			TLSMode:  cfg.SMTP.TLSMode,
		})
		if err != nil {
			return nil, err
		}
		senders = append(senders, mailer.WithBreaker(smtp, breaker))
	}
	if cfg.SendGrid.APIKey != "" {
		sendgrid, err := mailer.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.BaseURL)
		if err != nil {
			return nil, err
		}
		senders = append(senders, mailer.WithBreaker(sendgrid, breaker))
	}

	fallback := cfg.Email.Transport
	if fallback == "" {
		fallback = config.TransportConsole
	}
	return mailer.NewRouter(fallback, senders...)
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

func runCleanup(ctx context.Context, history *service.EmailHistoryService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := history.Cleanup(ctx); err != nil {
				logr.Warn("email history cleanup failed", zap.Error(err))
			}
		}
	}
}
