package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

func TestNew_Defaults(t *testing.T) {
	log, err := logger.New(logger.Config{OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNew_Development(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "debug", Development: true})
	require.NoError(t, err)
	log.Debug("visible in development")
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg logger.Config
	cfg.SetDefaults()

	assert.Equal(t, logger.DefaultLevel, cfg.Level)
	assert.Equal(t, logger.DefaultFormat, cfg.Format)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core)).With(logger.Component("fetcher"))

	log.Warn("fetch failed", logger.String("url", "https://example.org"), logger.Error(errors.New("boom")))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "fetch failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "fetcher", fields["component"])
	assert.Equal(t, "https://example.org", fields["url"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNop_DoesNothing(t *testing.T) {
	log := logger.NewNop()
	log.Info("ignored")
	assert.Same(t, log, log.With(logger.Int("n", 1)))
	assert.NoError(t, log.Sync())
}
