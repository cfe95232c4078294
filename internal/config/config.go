// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"timetablebot/internal/model"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	// Database
	DatabaseURL string

	// Telegram
	BotToken           string
	TelegramRatePerSec int

	// Feeds
	TodayURL string
	NextURL  string

	// Poller
	PollInterval   time.Duration
	ActiveFromHour int
	ActiveToHour   int
	SuppressRounds int

	// Schedule
	GroupNames          []string
	DefaultLecturesPath string

	// Scraper
	ScraperConfig ScraperConfig

	// Delivery retry
	RetryConfig RetryConfig

	// Health
	HealthPort         string
	HealthCheckEnabled bool

	// Logging
	LogLevel string

	// Timezone
	Timezone string

	// App Data Directory
	AppDataDir string
}

// ScraperConfig представляет конфигурацию скрейпера
type ScraperConfig struct {
	Backend          string
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

// RetryConfig представляет конфигурацию retry механизма
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл если он существует, отсутствие файла не ошибка
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:         getEnv("DB_DSN", ""),
		BotToken:            getEnv("BOT_TOKEN", ""),
		TelegramRatePerSec:  getEnvInt("TELEGRAM_RATE_PER_SEC", 25),
		TodayURL:            getEnv("TODAY_URL", ""),
		NextURL:             getEnv("NEXT_URL", ""),
		PollInterval:        getEnvDuration("POLL_INTERVAL", 5*time.Minute),
		ActiveFromHour:      getEnvInt("ACTIVE_FROM_HOUR", 7),
		ActiveToHour:        getEnvInt("ACTIVE_TO_HOUR", 18),
		SuppressRounds:      getEnvInt("SUPPRESS_ROUNDS", 1),
		GroupNames:          getEnvList("GROUP_NAMES", nil),
		DefaultLecturesPath: getEnv("DEFAULT_LECTURES_PATH", ""),
		ScraperConfig: ScraperConfig{
			Backend:   getEnv("SCRAPER_BACKEND", "http"),
			Encoding:  getEnv("FEED_ENCODING", "windows-1251"),
			Timeout:   getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
			UserAgent: getEnv("SCRAPER_USER_AGENT", ""),
			HTTPClientConfig: HTTPClientConfig{
				MaxIdleConns:          getEnvInt("SCRAPER_MAX_IDLE_CONNS", 10),
				MaxIdleConnsPerHost:   getEnvInt("SCRAPER_MAX_IDLE_CONNS_PER_HOST", 2),
				IdleConnTimeout:       getEnvDuration("SCRAPER_IDLE_CONN_TIMEOUT", 90*time.Second),
				TLSHandshakeTimeout:   getEnvDuration("SCRAPER_TLS_HANDSHAKE_TIMEOUT", 10*time.Second),
				ResponseHeaderTimeout: getEnvDuration("SCRAPER_RESPONSE_HEADER_TIMEOUT", 10*time.Second),
				DisableKeepAlives:     getEnvBool("SCRAPER_DISABLE_KEEP_ALIVES", false),
			},
		},
		RetryConfig: RetryConfig{
			MaxRetries:        getEnvInt("DELIVERY_MAX_RETRIES", 2),
			InitialDelay:      getEnvDuration("DELIVERY_INITIAL_DELAY", 500*time.Millisecond),
			MaxDelay:          getEnvDuration("DELIVERY_MAX_DELAY", 5*time.Second),
			BackoffMultiplier: getEnvFloat("DELIVERY_BACKOFF_MULTIPLIER", 2.0),
		},
		HealthPort:         getEnv("HEALTH_PORT", "8080"),
		HealthCheckEnabled: getEnvBool("HEALTH_CHECK_ENABLED", true),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Timezone:           getEnv("TIMEZONE", "Europe/Moscow"),
		AppDataDir:         getEnv("APP_DATA_DIR", "./data"),
	}

	// Валидация обязательных полей
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs model.ValidationErrors

	if err := model.ValidateRequired("DB_DSN", c.DatabaseURL); err != nil {
		errs = append(errs, err.(model.ValidationError))
	}

	if err := model.ValidateRequired("BOT_TOKEN", c.BotToken); err != nil {
		errs = append(errs, err.(model.ValidationError))
	}

	if c.TodayURL == "" && c.NextURL == "" {
		errs = append(errs, model.ValidationError{Field: "TODAY_URL", Message: "at least one of TODAY_URL or NEXT_URL is required"})
	}
	for field, url := range map[string]string{"TODAY_URL": c.TodayURL, "NEXT_URL": c.NextURL} {
		if err := model.ValidateURL(field, url); err != nil {
			errs = append(errs, err.(model.ValidationError))
		}
	}

	if c.PollInterval <= 0 {
		errs = append(errs, model.ValidationError{Field: "POLL_INTERVAL", Message: "must be positive"})
	}

	if err := model.ValidateHour("ACTIVE_FROM_HOUR", c.ActiveFromHour); err != nil {
		errs = append(errs, err.(model.ValidationError))
	}
	if err := model.ValidateHour("ACTIVE_TO_HOUR", c.ActiveToHour); err != nil {
		errs = append(errs, err.(model.ValidationError))
	}
	if c.ActiveFromHour >= c.ActiveToHour {
		errs = append(errs, model.ValidationError{Field: "ACTIVE_TO_HOUR", Message: "must be greater than ACTIVE_FROM_HOUR"})
	}

	if c.SuppressRounds < 0 {
		errs = append(errs, model.ValidationError{Field: "SUPPRESS_ROUNDS", Message: "must not be negative"})
	}

	if err := model.ValidateEnum("SCRAPER_BACKEND", c.ScraperConfig.Backend, []string{"http", "colly"}); err != nil {
		errs = append(errs, err.(model.ValidationError))
	}

	if c.HealthCheckEnabled {
		if port, err := strconv.Atoi(c.HealthPort); err != nil || port <= 0 || port > 65535 {
			errs = append(errs, model.ValidationError{Field: "HEALTH_PORT", Message: "must be a valid port"})
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, model.ValidationError{Field: "TIMEZONE", Message: err.Error()})
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// LoadLocation возвращает часовой пояс расписания
func (c *Config) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GetAppDataDir возвращает директорию данных приложения
func (c *Config) GetAppDataDir() string {
	return c.AppDataDir
}

// IsValidationError проверяет, что ошибка получена при валидации
func IsValidationError(err error) bool {
	var errs model.ValidationErrors
	return errors.As(err, &errs)
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvList получает переменную окружения как список через запятую
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
