// Package scraper содержит получение страниц расписания.
package scraper

import (
	"context"
	"time"
)

// Fetcher определяет интерфейс для получения страницы расписания в UTF-8
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Backend определяет реализацию получения страниц
type Backend string

const (
	BackendHTTP  Backend = "http"
	BackendColly Backend = "colly"
)

// DefaultUserAgent используется для запросов к сайту колледжа
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config представляет конфигурацию скрейпера
type Config struct {
	Backend          Backend
	Encoding         string
	Timeout          time.Duration
	UserAgent        string
	HTTPClientConfig HTTPClientConfig
}

// HTTPClientConfig представляет конфигурацию HTTP клиента
type HTTPClientConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DisableKeepAlives     bool
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Backend:   BackendHTTP,
		Encoding:  DefaultEncoding,
		Timeout:   15 * time.Second,
		UserAgent: DefaultUserAgent,
		HTTPClientConfig: HTTPClientConfig{
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}
}

func (c Config) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}
