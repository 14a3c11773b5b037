package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankbang/database"
	"bankbang/internal/auth"
	"bankbang/internal/config"
	"bankbang/internal/email"
	"bankbang/internal/handlers"
	"bankbang/internal/imageprocessor"
	"bankbang/internal/logger"
	"bankbang/internal/metrics"
	"bankbang/internal/middleware"
	"bankbang/internal/ratelimit"
	"bankbang/internal/repositories"
	"bankbang/internal/routes"
	"bankbang/internal/scraper"
	"bankbang/internal/services"
	"bankbang/internal/storage"
	"bankbang/internal/validator"
	"bankbang/internal/workers"
	"bankbang/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// JPEG quality для imageprocessor
const logoQuality = 85

// Deps - внешние зависимости, из которых собираются сервисы
type Deps struct {
	Storage storage.Storage
	Email   email.Provider
	Limiter ratelimit.Limiter
	Fetcher *scraper.Fetcher
}

// App держит открытые ресурсы процесса (БД, Redis, провайдеры)
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Services *services.ServiceContainer
}

// Init настраивает логгер, метрики и JWT из конфига
func Init(cfg *config.Config) {
	logger.InitWithOptions(logger.Options{
		Env:        cfg.Server.Env,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	metrics.Init()
	apperrors.SetDebug(cfg.IsDevelopment())
	auth.Init(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
}

// Bootstrap открывает БД и Redis и собирает контейнер сервисов
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.Info("Connecting to database...")
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	if cfg.Server.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			database.Close(db)
			return nil, err
		}
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	storageInstance, err := storage.NewStorage(storage.ConfigFrom(cfg))
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	emailProvider, err := email.NewProvider(cfg)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	logger.Info("Email provider initialized", "provider", cfg.Email.Provider)

	svc := BuildServices(cfg, Deps{
		Storage: storageInstance,
		Email:   emailProvider,
		Limiter: ratelimit.New(rdb),
		Fetcher: scraper.NewFetcherFromConfig(cfg),
	})

	return &App{Config: cfg, DB: db, Redis: rdb, Services: svc}, nil
}

// connectRedis возвращает nil, если Redis не настроен: троттлинг тогда в памяти процесса
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		logger.Warn("REDIS_URL is not set, OTP throttling is per-process")
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// лимитер работает fail-open, поэтому не падаем
		logger.Warn("Redis ping failed", "error", err)
	} else {
		logger.Info("Redis connected")
	}
	return rdb, nil
}

func (a *App) Close() {
	if a.Services != nil && a.Services.EmailProvider != nil {
		_ = a.Services.EmailProvider.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	database.Close(a.DB)
}

// BuildServices собирает репозитории и сервисы
func BuildServices(cfg *config.Config, deps Deps) *services.ServiceContainer {
	// --- Инициализация репозиториев ---
	userRepo := repositories.NewUserRepository()
	verificationRepo := repositories.NewVerificationRepository()
	refreshTokenRepo := repositories.NewRefreshTokenRepository()
	companyRepo := repositories.NewCompanyRepository()
	jobRepo := repositories.NewJobRepository()
	experienceRepo := repositories.NewExperienceRepository()
	referralRepo := repositories.NewReferralRepository()
	interactionRepo := repositories.NewInteractionRepository()
	uploadRepo := repositories.NewUploadRepository()

	// --- Инициализация сервисов ---
	uploadService := services.NewUploadService(uploadRepo, deps.Storage, services.UploadConfigFrom(cfg))

	return &services.ServiceContainer{
		AuthService: services.NewAuthService(userRepo, verificationRepo, refreshTokenRepo,
			deps.Email, deps.Limiter, services.AuthConfigFrom(cfg)),
		JobService:        services.NewJobService(jobRepo, companyRepo, interactionRepo),
		ExperienceService: services.NewExperienceService(experienceRepo, interactionRepo),
		ReferralService: services.NewReferralService(referralRepo, interactionRepo, deps.Fetcher,
			scraper.SelectorsFromConfig(cfg), cfg.Scraper.ReferralTTLDays),
		InteractionService: services.NewInteractionService(interactionRepo, jobRepo, experienceRepo, referralRepo),
		SearchService:      services.NewSearchService(jobRepo, experienceRepo, referralRepo),
		UploadService:      uploadService,
		CompanyService: services.NewCompanyService(companyRepo, deps.Storage, deps.Fetcher,
			imageprocessor.NewProcessor(logoQuality)),
		MaintenanceService: services.NewMaintenanceService(verificationRepo, refreshTokenRepo,
			uploadService, cfg.Upload.PendingTTL),
		EmailProvider: deps.Email,
	}
}

// Run запускает HTTP сервер и планировщик до сигнала завершения
func Run() {
	cfg := config.GetConfig()
	Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Serve(ctx, cfg); err != nil {
		logger.Fatal("Server error", "error", err)
	}
}

// Serve блокируется до отмены ctx, затем корректно останавливает сервер
func Serve(ctx context.Context, cfg *config.Config) error {
	a, err := Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if _, err := a.Services.AuthService.SeedAdmin(ctx, a.DB, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			// Если не удалось создать админа - не запускаем сервер
			return fmt.Errorf("failed to seed first admin user: %w", err)
		}
	} else {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
	}

	var scheduler *workers.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = workers.NewScheduler(a.DB, cfg, a.Services)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           SetupRouter(cfg, a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func SetupRouter(cfg *config.Config, a *App) *gin.Engine {
	// 1. Хэндлеры
	appHandlers := initializeHandlers(a)

	// 2. Gin
	ginRouter := initializeGinRouter(cfg, a.DB)

	// 3. Делегируем регистрацию маршрутов пакету 'routes'
	routes.RegisterRoutes(ginRouter, appHandlers)
	return ginRouter
}

func initializeHandlers(a *App) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())
	svc := a.Services

	return &handlers.AppHandlers{
		AuthHandler:        handlers.NewAuthHandler(baseHandler, svc.AuthService),
		JobHandler:         handlers.NewJobHandler(baseHandler, svc.JobService),
		ExperienceHandler:  handlers.NewExperienceHandler(baseHandler, svc.ExperienceService),
		ReferralHandler:    handlers.NewReferralHandler(baseHandler, svc.ReferralService),
		InteractionHandler: handlers.NewInteractionHandler(baseHandler, svc.InteractionService),
		SearchHandler:      handlers.NewSearchHandler(baseHandler, svc.SearchService),
		UploadHandler:      handlers.NewUploadHandler(baseHandler, svc.UploadService),
		CompanyHandler:     handlers.NewCompanyHandler(baseHandler, svc.CompanyService),
		HealthHandler:      handlers.NewHealthHandler(a.DB, a.Redis),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(metrics.GinMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}
