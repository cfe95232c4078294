// Package metrics реализует систему метрик бота расписания.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Interface определяет интерфейс для системы метрик
type Interface interface {
	// RecordUserCommand записывает выполнение пользовательской команды
	RecordUserCommand(command string, userID int64)

	// RecordPoll записывает результат опроса одной страницы
	RecordPoll(feed string, err error, changed int)

	// RecordDeliveries записывает итоги рассылки
	RecordDeliveries(success, total, disabled int)

	// SetNextPoll устанавливает время следующего опроса
	SetNextPoll(next time.Time)

	// GetStats возвращает все метрики в виде map
	GetStats() map[string]interface{}
}

type feedStats struct {
	polls    int64
	errors   int64
	changes  int64
	lastPoll time.Time
	lastErr  string
}

// Metrics представляет систему метрик бота
type Metrics struct {
	mu sync.RWMutex

	// Пользовательская активность
	totalCommands int64
	uniqueUsers   map[int64]struct{}

	// Опрос страниц
	feeds    map[string]*feedStats
	nextPoll time.Time

	// Рассылка
	deliveries         int64
	failedDeliveries   int64
	disabledRecipients int64
	lastDelivery       time.Time

	uptime time.Time

	logger *zap.Logger
}

// NewMetrics создает новую систему метрик
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		uniqueUsers: make(map[int64]struct{}),
		feeds:       make(map[string]*feedStats),
		uptime:      time.Now(),
		logger:      logger,
	}
}

// RecordUserCommand записывает выполнение пользовательской команды
func (m *Metrics) RecordUserCommand(command string, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCommands++
	m.uniqueUsers[userID] = struct{}{}
}

// RecordPoll записывает результат опроса одной страницы
func (m *Metrics) RecordPoll(feed string, err error, changed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.feeds[feed]
	if !ok {
		stats = &feedStats{}
		m.feeds[feed] = stats
	}

	stats.polls++
	stats.lastPoll = time.Now()
	if err != nil {
		stats.errors++
		stats.lastErr = err.Error()
		return
	}
	stats.lastErr = ""
	stats.changes += int64(changed)
}

// RecordDeliveries записывает итоги рассылки
func (m *Metrics) RecordDeliveries(success, total, disabled int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deliveries += int64(success)
	m.failedDeliveries += int64(total - success)
	m.disabledRecipients += int64(disabled)
	m.lastDelivery = time.Now()
}

// SetNextPoll устанавливает время следующего опроса
func (m *Metrics) SetNextPoll(next time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextPoll = next
}

// GetStats возвращает все метрики в виде map
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	feeds := make(map[string]interface{}, len(m.feeds))
	for name, stats := range m.feeds {
		feeds[name] = map[string]interface{}{
			"polls":      stats.polls,
			"errors":     stats.errors,
			"changes":    stats.changes,
			"error_rate": rate(stats.errors, stats.polls),
			"last_poll":  m.formatTime(stats.lastPoll),
			"last_error": stats.lastErr,
		}
	}

	return map[string]interface{}{
		"user_activity": map[string]interface{}{
			"total_commands": m.totalCommands,
			"unique_users":   len(m.uniqueUsers),
		},
		"feeds": feeds,
		"deliveries": map[string]interface{}{
			"sent":                m.deliveries,
			"failed":              m.failedDeliveries,
			"disabled_recipients": m.disabledRecipients,
			"failure_rate":        rate(m.failedDeliveries, m.deliveries+m.failedDeliveries),
			"last_delivery":       m.formatTime(m.lastDelivery),
		},
		"system": map[string]interface{}{
			"uptime":    m.formatDuration(time.Since(m.uptime)),
			"next_poll": m.formatTime(m.nextPoll),
		},
	}
}

// rate вычисляет процент part от total
func rate(part, total int64) float64 {
	if total > 0 {
		return float64(part) / float64(total) * 100
	}
	return 0
}

// formatTime форматирует время в нужном формате или возвращает "Не установлено"
func (m *Metrics) formatTime(t time.Time) string {
	if t.IsZero() {
		return "Не установлено"
	}
	return t.Format("02.01.06 15:04")
}

// formatDuration форматирует duration с двумя знаками после запятой
func (m *Metrics) formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
