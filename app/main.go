package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"maintenance-service/internal/listeners"
	"maintenance-service/internal/routes"
	"maintenance-service/migrations"
	"maintenance-service/pkg/broker"
	"maintenance-service/pkg/config"
	"maintenance-service/pkg/customvalidator"
	"maintenance-service/pkg/database/postgresql"
	apperrors "maintenance-service/pkg/errors"
	"maintenance-service/pkg/eventbus"
	applogger "maintenance-service/pkg/logger"
	"maintenance-service/pkg/metrics"
	appmiddleware "maintenance-service/pkg/middleware"
	"maintenance-service/pkg/service"
	"maintenance-service/pkg/telegram"
	"maintenance-service/pkg/utils"
	"maintenance-service/pkg/websocket"
)

func main() {
	// 1. Конфиг и логгер
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Echo и middleware
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("Обнаружена паника при обработке запроса",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(appmiddleware.RequestLogger(logger))

	recorder := metrics.NewRecorder(prom.NewRegistry())
	e.Use(recorder.Middleware())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{"Content-Disposition", echo.HeaderXRequestID},
	}))

	// 3. Валидатор
	v := validator.New()
	if err := customvalidator.RegisterCustomValidations(v); err != nil {
		logger.Fatal("Ошибка регистрации кастомных правил валидации", zap.Error(err))
	}
	e.Validator = utils.NewValidator(v)

	// 4. Postgres и миграции
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("не удалось подключиться к Postgres", zap.Error(err))
	}
	defer dbConn.Close()

	if err := postgresql.Migrate(ctx, dbConn, migrations.FS, "up"); err != nil {
		logger.Fatal("не удалось применить миграции", zap.Error(err))
	}

	// 5. Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	// 6. Шина событий и брокер
	bus := eventbus.New(logger)
	var publisher broker.Publisher
	if cfg.NATS.URL != "" {
		natsPublisher, err := broker.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			logger.Fatal("не удалось подключиться к NATS", zap.Error(err))
		}
		publisher = natsPublisher
		defer natsPublisher.Close()
	} else {
		logger.Warn("NATS_URL не задан, события обслуживания будут только логироваться")
	}
	listeners.NewBrokerListener(publisher, logger).Register(bus)

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg := telegram.NewClient(cfg.Telegram.BotToken, logger.Named("telegram"))
		listeners.NewTelegramListener(tg, cfg.Telegram.ChatID, logger).Register(bus)
	}

	hub := websocket.NewHub(logger.Named("feed"))
	go hub.Run(ctx)
	listeners.NewFeedListener(hub, logger).Register(bus)

	// 7. Роуты и фоновые задачи
	deps := routes.Dependencies{
		DB:       dbConn,
		Redis:    redisClient,
		JWT:      service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, logger),
		Bus:      bus,
		Recorder: recorder,
		Hub:      hub,
		Config:   cfg,
		Loggers: &routes.Loggers{
			Main:        logger,
			Auth:        logger.Named("auth"),
			Maintenance: logger.Named("maintenance"),
		},
	}
	routes.InitRouter(e, deps)

	watcher, err := routes.StartOverdueWatcher(deps)
	if err != nil {
		logger.Fatal("не удалось запустить наблюдатель плановых дат", zap.Error(err))
	}

	// 8. Сервер
	go func() {
		logger.Info("Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал завершения, останавливаем сервер")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке сервера", zap.Error(err))
	}
	if err := watcher.Stop(); err != nil {
		logger.Warn("Ошибка при остановке наблюдателя", zap.Error(err))
	}
	bus.Wait()
	logger.Info("Сервер остановлен")
}
