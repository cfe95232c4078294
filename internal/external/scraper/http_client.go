// Package scraper содержит HTTP клиент для получения страниц расписания.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"timetablebot/internal/model"

	"go.uber.org/zap"
)

// maxBodySize ограничивает размер страницы расписания
const maxBodySize = 8 << 20

// HTTPClient представляет HTTP клиент для скрапинга
type HTTPClient struct {
	client *http.Client
	config Config
	logger *zap.Logger
}

// NewHTTPClient создает новый HTTP клиент
func NewHTTPClient(config Config, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.HTTPClientConfig.MaxIdleConns,
		MaxIdleConnsPerHost:   config.HTTPClientConfig.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.HTTPClientConfig.IdleConnTimeout,
		TLSHandshakeTimeout:   config.HTTPClientConfig.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.HTTPClientConfig.ResponseHeaderTimeout,
		DisableKeepAlives:     config.HTTPClientConfig.DisableKeepAlives,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	return &HTTPClient{
		client: client,
		config: config,
		logger: logger,
	}
}

// Transport возвращает транспорт клиента
func (c *HTTPClient) Transport() http.RoundTripper {
	return c.client.Transport
}

// Fetch получает страницу и декодирует её в UTF-8
func (c *HTTPClient) Fetch(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return "", &model.FetchError{URL: url, Err: err}
	}

	html, err := Decode(body, c.config.Encoding)
	if err != nil {
		return "", &model.FetchError{URL: url, Err: err}
	}

	c.logger.Debug("Fetched timetable page",
		zap.String("url", url),
		zap.Int("size", len(body)))

	return html, nil
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Устанавливаем User-Agent
	req.Header.Set("User-Agent", c.config.userAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
