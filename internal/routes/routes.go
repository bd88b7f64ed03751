package routes

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"maintenance-service/internal/controllers"
	"maintenance-service/internal/repositories"
	"maintenance-service/internal/services"
	"maintenance-service/pkg/config"
	"maintenance-service/pkg/eventbus"
	"maintenance-service/pkg/filestorage"
	"maintenance-service/pkg/metrics"
	"maintenance-service/pkg/middleware"
	"maintenance-service/pkg/service"
	"maintenance-service/pkg/validation"
	"maintenance-service/pkg/websocket"
)

type Loggers struct {
	Main        *zap.Logger
	Auth        *zap.Logger
	Maintenance *zap.Logger
}

// Dependencies - внешние ресурсы, которые main поднимает до роутера.
type Dependencies struct {
	DB       *pgxpool.Pool
	Redis    *redis.Client
	JWT      service.JWTService
	Bus      *eventbus.Bus
	Recorder *metrics.Recorder
	Hub      *websocket.Hub
	Config   *config.Config
	Loggers  *Loggers
}

func InitRouter(e *echo.Echo, deps Dependencies) {
	loggers := deps.Loggers
	cfg := deps.Config
	loggers.Main.Info("InitRouter: Начало создания маршрутов")

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(deps.JWT, loggers.Auth)
	txManager := repositories.NewTxManager(deps.DB)
	cacheRepo := repositories.NewRedisCacheRepository(deps.Redis)
	fileStorage, err := filestorage.NewLocalFileStorage(cfg.Upload.Dir)
	if err != nil {
		loggers.Main.Fatal("не удалось создать файловое хранилище", zap.Error(err))
	}
	locker := repositories.NewEquipmentLocker(cacheRepo, cfg.Maintenance.LockTTL, cfg.Maintenance.LockWait, loggers.Maintenance)

	// --- 1. РЕПОЗИТОРИИ ---
	userRepo := repositories.NewUserRepository(deps.DB, loggers.Auth)
	equipmentRepo := repositories.NewEquipmentRepository(deps.DB, loggers.Main)
	statusRepo := repositories.NewMaintenanceStatusRepository(deps.DB, cacheRepo, cfg.Maintenance.StatusCacheTTL, loggers.Maintenance)
	scheduleRepo := repositories.NewScheduledMaintenanceRepository(deps.DB, loggers.Maintenance)

	// --- 2. СЕРВИСЫ ---
	authService := services.NewAuthService(userRepo, deps.JWT, loggers.Auth)
	equipmentService := services.NewEquipmentService(equipmentRepo, loggers.Main)
	statusService := services.NewMaintenanceStatusService(
		txManager, equipmentRepo, statusRepo, scheduleRepo,
		locker, deps.Bus, deps.Recorder, loggers.Maintenance,
	)
	reportService := services.NewMaintenanceReportService(statusService, loggers.Maintenance)
	imageService := services.NewEquipmentImageService(equipmentRepo, fileStorage, validation.FileRules{
		MaxSizeMB:        cfg.Upload.MaxSizeMB,
		AllowedMimeTypes: cfg.Upload.AllowedMimeTypes,
	}, loggers.Main)

	// --- 3. КОНТРОЛЛЕРЫ ---
	authController := controllers.NewAuthController(authService, loggers.Auth)
	equipmentController := controllers.NewEquipmentController(equipmentService, loggers.Main)
	imageController := controllers.NewEquipmentImageController(imageService, loggers.Main)
	statusController := controllers.NewMaintenanceStatusController(statusService, reportService, loggers.Maintenance)
	healthController := controllers.NewHealthController(deps.DB, loggers.Main)
	var feedController *controllers.StatusFeedController
	if deps.Hub != nil {
		feedController = controllers.NewStatusFeedController(deps.Hub, cfg.Server.AllowedOrigins, loggers.Maintenance)
	}

	// --- 4. РОУТЕРЫ ---
	secureGroup := api.Group("", authMW.Auth)

	runSystemRouter(e, healthController, deps.Recorder, fileStorage.BasePath())
	runAuthRouter(api, authController)
	runEquipmentRouter(secureGroup, equipmentController, imageController)
	runMaintenanceStatusRouter(secureGroup, statusController, feedController)

	loggers.Main.Info("InitRouter: Создание маршрутов завершено",
		zap.Duration("lockTTL", cfg.Maintenance.LockTTL),
		zap.Duration("lockWait", cfg.Maintenance.LockWait),
	)
}

// StartOverdueWatcher собирает наблюдатель просроченных плановых дат и
// запускает его с интервалом из конфигурации.
func StartOverdueWatcher(deps Dependencies) (*services.OverdueWatcher, error) {
	scheduleRepo := repositories.NewScheduledMaintenanceRepository(deps.DB, deps.Loggers.Maintenance)
	interval := deps.Config.Maintenance.OverdueInterval
	var locker gocron.Locker
	if deps.Redis != nil {
		locker = repositories.NewJobLocker(repositories.NewRedisCacheRepository(deps.Redis), interval)
	}
	watcher, err := services.NewOverdueWatcher(scheduleRepo, deps.Bus, deps.Recorder, locker, deps.Loggers.Maintenance)
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(interval); err != nil {
		return nil, err
	}
	return watcher, nil
}
