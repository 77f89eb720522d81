package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"scena-market/internal/api"
	"scena-market/internal/audit"
	"scena-market/internal/auth"
	"scena-market/internal/config"
	"scena-market/internal/event"
	"scena-market/internal/ledger"
	"scena-market/internal/metrics"
	"scena-market/internal/migrations"
	"scena-market/internal/place"
	"scena-market/internal/referral"
	"scena-market/internal/revenue"
	"scena-market/internal/store"
	"scena-market/internal/ticket"
)

func main() {
	// Инициализация логгера
	logger, err := initLogger()
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("запуск ядра маркетплейса Scena Market")

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("ошибка загрузки конфигурации", zap.Error(err))
	}

	// Инициализация базы данных
	db, err := store.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации базы данных", zap.Error(err))
	}
	defer db.Close()

	// Применение миграций
	if err := migrations.RunMigrations(cfg, logger); err != nil {
		logger.Fatal("ошибка применения миграций", zap.Error(err))
	}

	// Метрики
	m := metrics.New(logger)

	// Публикация записей аудита в брокер
	var publisher audit.Publisher = audit.NopPublisher{}
	if cfg.Broker.Enabled {
		amqpPublisher, err := audit.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Queue, logger)
		if err != nil {
			logger.Fatal("ошибка подключения к брокеру аудита", zap.Error(err))
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}
	trail := audit.NewTrail(db.Audit(), publisher, logger)

	// Redis для ограничения частоты запросов
	var rdb *redis.Client
	if cfg.Redis.RateLimitEnabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	// Сервисы ядра
	ledgerSvc := ledger.NewService(db.Ledger(), db.Account(), db, trail, m, logger)
	referralSvc := referral.NewService(db.Account(), db.Referral(), cfg.Referral, logger)
	placeSvc := place.NewService(db.Place(), db, trail, logger)
	revenueSvc := revenue.NewService(db.Profile(), ledgerSvc, db, trail, cfg.Market, logger)
	eventSvc := event.NewService(db.Event(), db.Place(), db.Ticket(), ledgerSvc, db.Ledger(), revenueSvc, db, trail, cfg.Market, logger)
	ticketSvc := ticket.NewService(db.Ticket(), db.Event(), ledgerSvc, referralSvc, db, trail, logger)
	authSvc := auth.NewService(db.Account(), db, trail, cfg.Auth, logger)

	// HTTP сервер
	handler := api.NewHandler(authSvc, ledgerSvc, placeSvc, eventSvc, ticketSvc, revenueSvc, logger)
	server := api.NewServer(cfg, handler, authSvc, m, rdb, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("ошибка запуска HTTP сервера", zap.Error(err))
		}
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("получен сигнал завершения, останавливаем сервер")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("ошибка остановки сервера", zap.Error(err))
	}
	logger.Info("приложение остановлено")
}

// initLogger инициализирует логгер
func initLogger() (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stdout", "logs/app.log"}
	config.ErrorOutputPaths = []string{"stderr", "logs/error.log"}

	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
	}

	return config.Build()
}
