// Package logger содержит настройку логгера.
package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config представляет параметры логгера
type Config struct {
	Level   string
	Path    string
	DataDir string
}

// FromEnv читает параметры логгера из окружения
func FromEnv() Config {
	return Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Path:    os.Getenv("LOG_PATH"),
		DataDir: os.Getenv("APP_DATA_DIR"),
	}
}

// New создает новый логгер: JSON в stdout и файл с ротацией
func New(config Config) *zap.Logger {
	level := ParseLevel(config.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   logPath(config),
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}),
		level,
	)

	core := zapcore.NewTee(consoleCore, fileCore)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// ParseLevel переводит строку уровня в zapcore.Level, по умолчанию info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// logPath выбирает путь к файлу логов: явный путь, затем каталог данных, затем ./logs
func logPath(config Config) string {
	if config.Path != "" {
		return config.Path
	}

	if config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0o755); err == nil {
			return filepath.Join(config.DataDir, "app.log")
		}
	}

	if err := os.MkdirAll("logs", 0o755); err == nil {
		return filepath.Join("logs", "app.log")
	}

	return "app.log"
}
