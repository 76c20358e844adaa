package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PixPMusic/gopher-instruments/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_FileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := New(config.Logging{Level: "warn", Encoding: "json", Destination: path})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("device lost", zap.String("device", "Out A"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"msg":"device lost"`)
	assert.Contains(t, string(data), `"device":"Out A"`)
}

func TestNew_Levels(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	} {
		log, err := New(config.Logging{Level: in})
		require.NoError(t, err, in)
		assert.True(t, log.Core().Enabled(want), in)
		assert.False(t, log.Core().Enabled(want-1), in)
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.Logging{Level: "verbose"})
	assert.ErrorContains(t, err, "unknown log level")

	_, err = New(config.Logging{Encoding: "xml"})
	assert.ErrorContains(t, err, "unknown log encoding")
}
