// Package service содержит опрос расписания, рассылку и подписки.
package service

import (
	"context"

	"timetablebot/internal/config"
	"timetablebot/internal/external/scraper"
	"timetablebot/internal/formatter"
	"timetablebot/internal/metrics"
	"timetablebot/internal/model"
	"timetablebot/internal/parser"
	"timetablebot/pkg/retry"

	"go.uber.org/zap"
)

// Services содержит все сервисы приложения
type Services struct {
	Poller      *Poller
	Notifier    *Notifier
	Subscribers *SubscriberService
	Metrics     *metrics.Metrics
}

// NewServices создает все сервисы и связывает опрос с рассылкой
func NewServices(
	cfg *config.Config,
	schedule *config.Schedule,
	fetcher scraper.Fetcher,
	repo model.SubscriberRepository,
	transport Transport,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Services, error) {
	loc, err := cfg.LoadLocation()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewMetrics(logger)
	}

	retryConfig := retry.Config{
		MaxRetries:        cfg.RetryConfig.MaxRetries,
		InitialDelay:      cfg.RetryConfig.InitialDelay,
		MaxDelay:          cfg.RetryConfig.MaxDelay,
		BackoffMultiplier: cfg.RetryConfig.BackoffMultiplier,
	}

	notifier := NewNotifier(repo, transport, formatter.New(), retryConfig, m, logger.Named("notifier"))

	p := parser.NewParser(schedule.Roster, schedule.Defaults, loc)
	poller := NewPoller(PollerConfig{
		Interval:       cfg.PollInterval,
		ActiveFrom:     cfg.ActiveFromHour,
		ActiveTo:       cfg.ActiveToHour,
		Location:       loc,
		URLs:           map[Feed]string{FeedToday: cfg.TodayURL, FeedNext: cfg.NextURL},
		SuppressRounds: cfg.SuppressRounds,
	}, fetcher, p, NotifyHandler(notifier, logger), m, logger.Named("poller"))

	return &Services{
		Poller:      poller,
		Notifier:    notifier,
		Subscribers: NewSubscriberService(repo, schedule.Roster, logger.Named("subscribers")),
		Metrics:     m,
	}, nil
}

// NotifyHandler передает изменения из опроса в рассылку
func NotifyHandler(notifier *Notifier, logger *zap.Logger) UpdateHandler {
	return func(ctx context.Context, update FeedUpdate) {
		if update.Err != nil || len(update.Changes) == 0 {
			return
		}

		if _, err := notifier.Notify(ctx, update.Snapshot, update.Changes); err != nil {
			logger.Error("Notification round failed",
				zap.String("feed", string(update.Feed)),
				zap.Error(err))
		}
	}
}
