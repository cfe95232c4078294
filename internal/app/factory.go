// Package app содержит фабрику компонентов и жизненный цикл бота.
package app

import (
	"context"
	"fmt"
	"os"

	"timetablebot/internal/config"
	"timetablebot/internal/external/scraper"
	"timetablebot/internal/external/telegram"
	"timetablebot/internal/formatter"
	"timetablebot/internal/health"
	"timetablebot/internal/metrics"
	"timetablebot/internal/service"
	"timetablebot/internal/storage"

	"go.uber.org/zap"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config   *config.Config
	schedule *config.Schedule
	logger   *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(cfg *config.Config, schedule *config.Schedule, logger *zap.Logger) (*ComponentFactory, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule cannot be nil")
	}

	return &ComponentFactory{
		config:   cfg,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// CreateDatabase создает подключение к базе данных и схему
func (f *ComponentFactory) CreateDatabase(ctx context.Context) (*storage.Postgres, error) {
	db, err := storage.NewPostgres(ctx, storage.Config{DSN: f.config.DatabaseURL}, f.logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	f.logger.Info("Database connection created successfully")
	return db, nil
}

// CreateTelegramClient создает клиент Telegram
func (f *ComponentFactory) CreateTelegramClient() (*telegram.Client, error) {
	client, err := telegram.NewClient(f.config.BotToken, telegram.Config{
		RatePerSecond: f.config.TelegramRatePerSec,
	}, f.logger.Named("telegram"))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	f.logger.Info("Telegram client created successfully")
	return client, nil
}

// CreateFetcher создает загрузчик страниц расписания
func (f *ComponentFactory) CreateFetcher() (scraper.Fetcher, error) {
	sc := f.config.ScraperConfig
	fetcher, err := scraper.NewFetcher(scraper.Config{
		Backend:   scraper.Backend(sc.Backend),
		Encoding:  sc.Encoding,
		Timeout:   sc.Timeout,
		UserAgent: sc.UserAgent,
		HTTPClientConfig: scraper.HTTPClientConfig{
			MaxIdleConns:          sc.HTTPClientConfig.MaxIdleConns,
			MaxIdleConnsPerHost:   sc.HTTPClientConfig.MaxIdleConnsPerHost,
			IdleConnTimeout:       sc.HTTPClientConfig.IdleConnTimeout,
			TLSHandshakeTimeout:   sc.HTTPClientConfig.TLSHandshakeTimeout,
			ResponseHeaderTimeout: sc.HTTPClientConfig.ResponseHeaderTimeout,
			DisableKeepAlives:     sc.HTTPClientConfig.DisableKeepAlives,
		},
	}, f.logger.Named("scraper"))
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	f.logger.Info("Fetcher created successfully", zap.String("backend", sc.Backend))
	return fetcher, nil
}

// CreateHealthServer создает сервер health check
func (f *ComponentFactory) CreateHealthServer(db health.Pinger, stats health.StatsProvider) *health.Server {
	if !f.config.HealthCheckEnabled {
		f.logger.Info("Health check server is disabled")
		return nil
	}

	server := health.NewServer(f.config.HealthPort, f.logger.Named("health"), db, stats)
	f.logger.Info("Health check server created", zap.String("port", f.config.HealthPort))
	return server
}

// CreateAppDataDirectory создает директорию данных приложения
func (f *ComponentFactory) CreateAppDataDirectory() error {
	dataDir := f.config.GetAppDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		f.logger.Error("Failed to create app data directory", zap.String("dir", dataDir), zap.Error(err))
		return fmt.Errorf("failed to create app data directory: %w", err)
	}
	f.logger.Info("App data directory ready", zap.String("dir", dataDir))
	return nil
}

// CreateBot создает полный экземпляр бота со всеми зависимостями
func (f *ComponentFactory) CreateBot(ctx context.Context) (*Bot, error) {
	if err := f.CreateAppDataDirectory(); err != nil {
		return nil, err
	}

	fetcher, err := f.CreateFetcher()
	if err != nil {
		return nil, err
	}

	tgClient, err := f.CreateTelegramClient()
	if err != nil {
		return nil, err
	}

	db, err := f.CreateDatabase(ctx)
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics(f.logger.Named("metrics"))

	services, err := service.NewServices(f.config, f.schedule, fetcher, db.GetSubscriberRepository(), tgClient, m, f.logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create services: %w", err)
	}

	handlers := NewHandlers(tgClient, services.Poller, services.Subscribers, formatter.New(), f.logger.Named("handlers"))

	bot := &Bot{
		config:   f.config,
		logger:   f.logger,
		db:       db,
		telegram: tgClient,
		health:   f.CreateHealthServer(db, m),
		services: services,
		router:   NewRouter(handlers, m, f.logger.Named("router")),
	}

	f.logger.Info("Bot created successfully with all dependencies",
		zap.Int("groups", len(f.schedule.Roster)),
		zap.Int("default_lecture_groups", len(f.schedule.Defaults.Groups)))
	return bot, nil
}

// NewBotWithFactory создает бота через фабрику компонентов
func NewBotWithFactory(ctx context.Context, cfg *config.Config, schedule *config.Schedule, logger *zap.Logger) (*Bot, error) {
	factory, err := NewComponentFactory(cfg, schedule, logger)
	if err != nil {
		return nil, err
	}
	return factory.CreateBot(ctx)
}
