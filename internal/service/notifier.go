package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"timetablebot/internal/formatter"
	"timetablebot/internal/metrics"
	"timetablebot/internal/model"
	"timetablebot/pkg/retry"

	"go.uber.org/zap"
)

// SubscriberStore часть хранилища, нужная для рассылки
type SubscriberStore interface {
	ListNotifiable(ctx context.Context) ([]model.Subscriber, error)
	DisableNotifications(ctx context.Context, id int64) error
}

// Transport доставляет сообщения подписчикам
type Transport interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// DeliveryResult итог доставки одному подписчику
type DeliveryResult struct {
	SubscriberID int64
	Groups       []string
	Sent         int
	Disabled     bool
	Err          error
}

// OK сообщает, что все сообщения доставлены
func (r DeliveryResult) OK() bool {
	return r.Err == nil
}

// DeliveryReport сводка рассылки за раунд
type DeliveryReport struct {
	Results  []DeliveryResult
	Success  int
	Total    int
	Disabled int
}

// Notifier рассылает изменения расписания подписчикам
type Notifier struct {
	store     SubscriberStore
	transport Transport
	formatter formatter.MessageFormatter
	retry     retry.Config
	metrics   metrics.Interface
	logger    *zap.Logger
}

// NewNotifier создает рассыльщика
func NewNotifier(store SubscriberStore, transport Transport, f formatter.MessageFormatter, retryConfig retry.Config, m metrics.Interface, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:     store,
		transport: transport,
		formatter: f,
		retry:     retryConfig,
		metrics:   m,
		logger:    logger,
	}
}

// Notify отправляет снимок подписчикам изменившихся групп.
// Ошибка возвращается только если не удалось получить список подписчиков.
func (n *Notifier) Notify(ctx context.Context, snapshot *model.Snapshot, changes []string) (DeliveryReport, error) {
	var report DeliveryReport
	if snapshot == nil || len(changes) == 0 {
		return report, nil
	}

	subscribers, err := n.store.ListNotifiable(ctx)
	if err != nil {
		var storeErr *model.StoreError
		if !errors.As(err, &storeErr) {
			err = &model.StoreError{Op: "list notifiable", Err: err}
		}
		n.logger.Error("Failed to list subscribers, notification round aborted", zap.Error(err))
		return report, err
	}

	changed := make(map[string]struct{}, len(changes))
	for _, name := range changes {
		changed[name] = struct{}{}
	}

	// Доставка не прерывается при остановке приложения
	ctx = context.WithoutCancel(ctx)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, subscriber := range subscribers {
		groups := relevantGroups(subscriber.Groups, changed)
		if len(groups) == 0 {
			continue
		}

		wg.Add(1)
		go func(id int64, groups []string) {
			defer wg.Done()
			result := n.deliver(ctx, snapshot, id, groups)

			mu.Lock()
			report.Results = append(report.Results, result)
			mu.Unlock()
		}(subscriber.ID, groups)
	}
	wg.Wait()

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].SubscriberID < report.Results[j].SubscriberID
	})

	report.Total = len(report.Results)
	for _, result := range report.Results {
		if result.OK() {
			report.Success++
		}
		if result.Disabled {
			report.Disabled++
		}
	}

	if n.metrics != nil {
		n.metrics.RecordDeliveries(report.Success, report.Total, report.Disabled)
	}

	n.logger.Info("Notification round finished",
		zap.Time("date", snapshot.Date()),
		zap.Strings("changes", changes),
		zap.Int("success", report.Success),
		zap.Int("total", report.Total),
		zap.Int("disabled", report.Disabled))

	return report, nil
}

// deliver отправляет одному подписчику по сообщению на каждую группу
func (n *Notifier) deliver(ctx context.Context, snapshot *model.Snapshot, id int64, groups []string) DeliveryResult {
	result := DeliveryResult{SubscriberID: id, Groups: groups}

	for _, group := range groups {
		text := n.formatter.FormatGroup(snapshot, group)

		err := retry.Do(ctx, n.logger, n.retry, func() error {
			err := n.transport.Send(ctx, id, text)
			if model.IsUnreachable(err) {
				return retry.Permanent(err)
			}
			return err
		})
		if err == nil {
			result.Sent++
			continue
		}

		result.Err = &model.DeliveryError{SubscriberID: id, Err: err}

		if model.IsUnreachable(err) {
			result.Disabled = n.disable(ctx, id)
			break
		}

		n.logger.Warn("Failed to deliver notification",
			zap.Int64("subscriber_id", id),
			zap.String("group", group),
			zap.Error(err))
	}

	return result
}

// disable выключает уведомления недоступному подписчику
func (n *Notifier) disable(ctx context.Context, id int64) bool {
	n.logger.Info("Recipient is unreachable, disabling notifications", zap.Int64("subscriber_id", id))

	if err := n.store.DisableNotifications(ctx, id); err != nil {
		n.logger.Error("Failed to disable notifications",
			zap.Int64("subscriber_id", id),
			zap.Error(err))
		return false
	}
	return true
}

// relevantGroups пересекает группы подписчика с изменившимися, сохраняя порядок подписчика
func relevantGroups(subscribed []string, changed map[string]struct{}) []string {
	var groups []string
	seen := make(map[string]struct{}, len(subscribed))
	for _, name := range subscribed {
		if _, ok := changed[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		groups = append(groups, name)
	}
	return groups
}
