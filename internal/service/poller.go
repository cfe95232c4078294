package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timetablebot/internal/external/scraper"
	"timetablebot/internal/metrics"
	"timetablebot/internal/model"
	"timetablebot/internal/parser"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Feed имя опрашиваемой страницы расписания
type Feed string

const (
	// FeedToday расписание на сегодня
	FeedToday Feed = "today"
	// FeedNext расписание на следующий день
	FeedNext Feed = "next"
)

// Feeds порядок обработки страниц внутри одного раунда
var Feeds = []Feed{FeedToday, FeedNext}

// FeedUpdate результат обработки одной страницы за раунд
type FeedUpdate struct {
	Feed     Feed
	Snapshot *model.Snapshot
	Changes  []string
	Report   parser.Report
	Err      error
}

// Degraded сообщает, что страница разобрана не полностью
func (u FeedUpdate) Degraded() bool {
	return u.Err == nil && u.Report.Degraded()
}

// UpdateHandler получает результаты опроса
type UpdateHandler func(ctx context.Context, update FeedUpdate)

// PollerConfig представляет конфигурацию опроса
type PollerConfig struct {
	Interval       time.Duration
	ActiveFrom     int
	ActiveTo       int
	Location       *time.Location
	URLs           map[Feed]string
	SuppressRounds int
}

// Poller периодически скачивает и разбирает страницы расписания
type Poller struct {
	config  PollerConfig
	fetcher scraper.Fetcher
	parser  *parser.Parser
	handler UpdateHandler
	metrics metrics.Interface
	logger  *zap.Logger
	now     func() time.Time

	cron    *cron.Cron
	entryID cron.EntryID
	ctx     context.Context
	wg      sync.WaitGroup

	// roundMu не даёт раундам пересекаться
	roundMu sync.Mutex

	mu        sync.RWMutex
	latest    map[Feed]*model.Snapshot
	successes map[Feed]int
	running   bool
}

// NewPoller создает планировщик опроса
func NewPoller(config PollerConfig, fetcher scraper.Fetcher, p *parser.Parser, handler UpdateHandler, m metrics.Interface, logger *zap.Logger) *Poller {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.SuppressRounds < 0 {
		config.SuppressRounds = 0
	}

	return &Poller{
		config:    config,
		fetcher:   fetcher,
		parser:    p,
		handler:   handler,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		latest:    make(map[Feed]*model.Snapshot),
		successes: make(map[Feed]int),
	}
}

// Start запускает опрос: один раунд сразу, затем по расписанию
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller is already running")
	}

	// Раунд в полёте не прерывается при остановке
	p.ctx = context.WithoutCancel(ctx)

	p.cron = cron.New(
		cron.WithLocation(p.config.Location),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{p.logger})),
	)
	p.entryID = p.cron.Schedule(cron.Every(p.config.Interval), cron.FuncJob(func() {
		p.Poll(p.ctx)
	}))
	p.cron.Start()
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Poll(p.ctx)
	}()

	p.logger.Info("Poller started",
		zap.Duration("interval", p.config.Interval),
		zap.Int("active_from", p.config.ActiveFrom),
		zap.Int("active_to", p.config.ActiveTo),
		zap.Int("suppress_rounds", p.config.SuppressRounds))
	return nil
}

// Stop останавливает опрос и дожидается завершения текущего раунда
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	c := p.cron
	p.mu.Unlock()

	p.logger.Info("Stopping poller")
	<-c.Stop().Done()
	p.wg.Wait()
	p.logger.Info("Poller stopped")
}

// Poll выполняет один раунд опроса всех настроенных страниц
func (p *Poller) Poll(ctx context.Context) {
	p.roundMu.Lock()
	defer p.roundMu.Unlock()
	defer p.recordNextPoll()

	now := p.now().In(p.config.Location)
	if !p.inActiveWindow(now) {
		p.logger.Debug("Outside of active window, skipping round", zap.Int("hour", now.Hour()))
		return
	}

	for _, feed := range Feeds {
		url := p.config.URLs[feed]
		if url == "" {
			continue
		}

		update, suppressed := p.pollFeed(ctx, feed, url, now)
		p.logUpdate(update)

		if p.metrics != nil {
			p.metrics.RecordPoll(string(feed), update.Err, len(update.Changes))
		}

		if suppressed {
			p.logger.Info("Initial snapshot cached without notifications",
				zap.String("feed", string(feed)),
				zap.String("snapshot", update.Snapshot.ID().String()))
			continue
		}

		if p.handler != nil {
			p.handler(ctx, update)
		}
	}
}

// pollFeed скачивает и разбирает одну страницу, обновляя кэш при успехе
func (p *Poller) pollFeed(ctx context.Context, feed Feed, url string, now time.Time) (FeedUpdate, bool) {
	update := FeedUpdate{Feed: feed}

	html, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		update.Err = err
		return update, false
	}

	table, ok := parser.ParseLastTable(html)
	if !ok {
		update.Err = fmt.Errorf("%s: %w", url, model.ErrNoHTMLTable)
		return update, false
	}

	snapshot, report := p.parser.Parse(table, now)
	update.Snapshot = snapshot
	update.Report = report

	p.mu.Lock()
	prev := p.latest[feed]
	p.latest[feed] = snapshot
	p.successes[feed]++
	round := p.successes[feed]
	p.mu.Unlock()

	update.Changes = model.Changes(prev, snapshot, p.parser.Roster)
	return update, round <= p.config.SuppressRounds
}

func (p *Poller) logUpdate(update FeedUpdate) {
	feed := zap.String("feed", string(update.Feed))

	switch {
	case update.Err != nil && model.IsSkippable(update.Err):
		p.logger.Debug("Feed has no timetable", feed, zap.Error(update.Err))
	case update.Err != nil:
		p.logger.Warn("Failed to poll feed", feed, zap.Error(update.Err))
	case update.Degraded():
		p.logger.Warn("Feed content is malformed",
			feed,
			zap.Bool("date_resolved", update.Report.DateResolved),
			zap.Int("rows", update.Report.Rows),
			zap.Int("lectures", update.Report.Lectures))
	default:
		p.logger.Debug("Feed polled",
			feed,
			zap.Time("date", update.Snapshot.Date()),
			zap.Strings("changes", update.Changes))
	}
}

// inActiveWindow проверяет, что час попадает в [ActiveFrom, ActiveTo)
func (p *Poller) inActiveWindow(now time.Time) bool {
	hour := now.Hour()
	return hour >= p.config.ActiveFrom && hour < p.config.ActiveTo
}

func (p *Poller) recordNextPoll() {
	if p.metrics == nil {
		return
	}

	p.mu.RLock()
	c := p.cron
	p.mu.RUnlock()
	if c == nil {
		return
	}

	if entry := c.Entry(p.entryID); entry.Valid() {
		p.metrics.SetNextPoll(entry.Next)
	}
}

// Latest возвращает последний разобранный снимок страницы
func (p *Poller) Latest(feed Feed) (*model.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot, ok := p.latest[feed]
	return snapshot, ok
}

// Roster возвращает список групп, для которых разбирается расписание
func (p *Poller) Roster() []string {
	roster := make([]string, len(p.parser.Roster))
	copy(roster, p.parser.Roster)
	return roster
}

// cronLogger передает сообщения cron в zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
