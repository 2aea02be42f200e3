// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/remedy-cli/internal/config"
)

// setupTestLogger initializes the global logger to write to a buffer.
func setupTestLogger(cfg config.LoggerConfig) *bytes.Buffer {
	buf := new(bytes.Buffer)
	Initialize(cfg, zapcore.AddSync(buf))
	return buf
}

func TestInitialize(t *testing.T) {

	t.Run("console format produces readable output", func(t *testing.T) {
		ResetForTest()

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "remedy-test",
		}
		buf := setupTestLogger(cfg)

		GetLogger().Info("This is a test message.")
		Sync()

		output := buf.String()
		assert.Contains(t, output, "INFO", "Output should contain the log level")
		assert.Contains(t, output, "This is a test message.")
		assert.Contains(t, output, "remedy-test.", "Console names end with a dot separator")
	})

	t.Run("json format produces structured entries", func(t *testing.T) {
		ResetForTest()

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "remedy-json",
		}
		buf := setupTestLogger(cfg)

		GetLogger().Warn("This is a JSON message.", zap.String("key", "value"))
		Sync()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "remedy-json", entry["logger"])
		assert.Equal(t, "This is a JSON message.", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("writes to a log file when configured", func(t *testing.T) {
		ResetForTest()
		logFile := filepath.Join(t.TempDir(), "remedy.log")

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logFile,
			MaxSize: 1,
		}
		// Initialize directly to keep the console quiet.
		Initialize(cfg, zapcore.AddSync(io.Discard))

		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.")
	})

	t.Run("an invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		buf := setupTestLogger(config.LoggerConfig{Level: "shouting", Format: "json", ServiceName: "lvl"})

		GetLogger().Debug("hidden")
		GetLogger().Info("visible")
		Sync()

		output := buf.String()
		assert.NotContains(t, output, "hidden")
		assert.Contains(t, output, "visible")
	})

	t.Run("only initializes once", func(t *testing.T) {
		ResetForTest()

		buf1 := setupTestLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "First"})
		logger1 := GetLogger()

		// The second initialization is swallowed by sync.Once.
		buf2 := setupTestLogger(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "Second"})
		logger2 := GetLogger()

		assert.Equal(t, logger1, logger2)
		logger2.Info("test message")
		Sync()

		output := buf1.String()
		assert.Contains(t, output, "First")
		assert.Contains(t, output, "test message")
		assert.NotContains(t, output, "Second")
		assert.Empty(t, buf2.String())
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("returns a fallback logger before initialization", func(t *testing.T) {
		ResetForTest()

		// Capture stderr so the fallback warning stays out of test output.
		oldStderr := os.Stderr
		r, w, _ := os.Pipe()
		os.Stderr = w

		logger := GetLogger()
		require.NotNil(t, logger)

		w.Close()
		os.Stderr = oldStderr

		var buf bytes.Buffer
		io.Copy(&buf, r)
		assert.Contains(t, buf.String(), "Global logger requested before initialization")
	})

	t.Run("returns the stored global after initialization", func(t *testing.T) {
		ResetForTest()
		Initialize(config.LoggerConfig{Level: "info", ServiceName: "global"}, zapcore.AddSync(io.Discard))

		assert.Equal(t, globalLogger.Load(), GetLogger())
	})
}
