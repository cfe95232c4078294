package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"timetablebot/internal/config"
	"timetablebot/internal/external/telegram"
	"timetablebot/internal/health"
	"timetablebot/internal/service"
	"timetablebot/internal/storage"

	"go.uber.org/zap"
)

// Bot представляет основную логику бота
type Bot struct {
	config   *config.Config
	logger   *zap.Logger
	db       *storage.Postgres
	telegram *telegram.Client
	health   *health.Server
	services *service.Services
	router   telegram.RouterInterface
	wg       sync.WaitGroup
}

// Start запускает опрос расписания, health check и цикл обновлений Telegram.
// Блокируется до отмены ctx, после чего останавливает компоненты.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	if b.health != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.health.Start(); err != nil {
				b.logger.Error("Health check server failed", zap.Error(err))
			}
		}()
	}

	if err := b.services.Poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}

	err := b.runUpdateLoop(ctx)
	b.stop()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runUpdateLoop перезапускает цикл обновлений после сбоев
func (b *Bot) runUpdateLoop(ctx context.Context) error {
	maxRestartAttempts := 10
	restartAttempts := 0
	restartDelay := 10 * time.Second

	for {
		err := b.telegram.Start(ctx, b.router)
		if ctx.Err() != nil {
			b.logger.Info("Update loop stopped due to context cancellation")
			return ctx.Err()
		}

		restartAttempts++
		b.logger.Error("Update loop error",
			zap.Error(err),
			zap.Int("restart_attempt", restartAttempts),
			zap.Int("max_attempts", maxRestartAttempts))

		if restartAttempts > maxRestartAttempts {
			return fmt.Errorf("max restart attempts reached: %w", err)
		}

		delay := time.Duration(restartAttempts) * restartDelay
		if delay > 5*time.Minute {
			delay = 5 * time.Minute
		}

		b.logger.Info("Waiting before restart", zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// stop останавливает компоненты: опрос дожидается текущего раунда,
// рассылка в полёте завершается до закрытия базы
func (b *Bot) stop() {
	b.logger.Info("Stopping bot gracefully")

	b.services.Poller.Stop()

	if b.health != nil {
		if err := b.health.Stop(); err != nil {
			b.logger.Error("Failed to stop health check server", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.wg.Wait()
	}()

	select {
	case <-done:
		b.logger.Info("All goroutines stopped successfully")
	case <-time.After(30 * time.Second):
		b.logger.Warn("Graceful shutdown timeout exceeded, forcing stop")
	}

	if err := b.db.Close(); err != nil {
		b.logger.Error("Failed to close database connection", zap.Error(err))
	}

	b.logger.Info("Bot stopped successfully")
}
