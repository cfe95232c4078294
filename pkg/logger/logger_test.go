package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: "INFO", want: zapcore.InfoLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "", want: zapcore.InfoLevel},
		{in: "verbose", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogPath(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "/var/log/bot.log", logPath(Config{Path: "/var/log/bot.log", DataDir: dir}))

	dataDir := filepath.Join(dir, "data")
	assert.Equal(t, filepath.Join(dataDir, "app.log"), logPath(Config{DataDir: dataDir}))

	_, err := os.Stat(dataDir)
	require.NoError(t, err)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log := New(Config{Level: "debug", Path: path})

	log.Debug("Poll round finished")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Poll round finished")
}
