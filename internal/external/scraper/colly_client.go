package scraper

import (
	"context"
	"fmt"

	"timetablebot/internal/model"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyClient получает страницы через colly.
// Перекодировку в UTF-8 выполняет сам colly по ResponseCharacterEncoding.
type CollyClient struct {
	config Config
	http   *HTTPClient
	logger *zap.Logger
}

// NewCollyClient создает клиент на базе colly
func NewCollyClient(config Config, logger *zap.Logger) *CollyClient {
	return &CollyClient{
		config: config,
		http:   NewHTTPClient(config, logger),
		logger: logger,
	}
}

// newCollector создает новый collector с настроенными обработчиками
func (c *CollyClient) newCollector(ctx context.Context) *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(c.config.userAgent()),
		colly.MaxDepth(1),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)

	// Используем настроенный HTTP транспорт
	collector.WithTransport(c.http.Transport())
	if c.config.Timeout > 0 {
		collector.SetRequestTimeout(c.config.Timeout)
	}

	encoding := c.config.Encoding
	if encoding == "" {
		encoding = DefaultEncoding
	}

	collector.OnRequest(func(r *colly.Request) {
		r.ResponseCharacterEncoding = encoding
		c.logger.Debug("Making request", zap.String("url", r.URL.String()))
	})

	collector.OnResponse(func(r *colly.Response) {
		c.logger.Debug("Received response",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Int("size", len(r.Body)))
	})

	return collector
}

// Fetch получает страницу и возвращает её в UTF-8
func (c *CollyClient) Fetch(ctx context.Context, url string) (string, error) {
	collector := c.newCollector(ctx)

	var (
		html   string
		status int
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		html = string(r.Body)
	})

	if err := collector.Visit(url); err != nil {
		return "", &model.FetchError{URL: url, Err: err}
	}
	collector.Wait()

	if status == 0 {
		return "", &model.FetchError{URL: url, Err: fmt.Errorf("no response received")}
	}

	return html, nil
}

// NewFetcher создает Fetcher для выбранного бэкенда
func NewFetcher(config Config, logger *zap.Logger) (Fetcher, error) {
	switch config.Backend {
	case BackendHTTP, "":
		return NewHTTPClient(config, logger), nil
	case BackendColly:
		return NewCollyClient(config, logger), nil
	default:
		return nil, fmt.Errorf("unknown scraper backend: %q", config.Backend)
	}
}
