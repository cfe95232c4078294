// Package main запускает Telegram-бота расписания.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"timetablebot/internal/app"
	"timetablebot/internal/config"
	"timetablebot/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Инициализация логгера
	log := logger.New(logger.FromEnv())
	defer func() { _ = log.Sync() }()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	schedule, err := config.LoadSchedule(cfg.DefaultLecturesPath, cfg.GroupNames)
	if err != nil {
		log.Fatal("Failed to load schedule", zap.Error(err))
	}

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Создание и запуск бота через фабрику
	bot, err := app.NewBotWithFactory(ctx, cfg, schedule, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	if err := bot.Start(ctx); err != nil {
		log.Error("Bot stopped with error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Bot stopped successfully")
}
