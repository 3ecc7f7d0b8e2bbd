package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/EnockMagara/dependafix-sub000/internal/config"
)

type discardSyncer struct{}

func (discardSyncer) Write(p []byte) (int, error) { return len(p), nil }
func (discardSyncer) Sync() error                 { return nil }

func TestGetLogger_FallbackBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("fallback logger works")
}

func TestInitialize_SetsGlobalOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "test"}, zapcore.AddSync(discardSyncer{}))
	first := GetLogger()
	require.NotNil(t, first)

	// A second Initialize must not replace the logger.
	Initialize(config.LoggerConfig{Level: "error", Format: "console", ServiceName: "other"}, zapcore.AddSync(discardSyncer{}))
	assert.Same(t, first, GetLogger())
}

func TestInitialize_InvalidLevelDefaultsToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	Initialize(config.LoggerConfig{Level: "not-a-level", Format: "json", ServiceName: "test"}, zapcore.AddSync(discardSyncer{}))
	logger := GetLogger()

	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestSync_NoPanicWithoutLogger(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	Sync()
}
