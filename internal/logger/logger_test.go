package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/footgraph/internal/model"
)

func TestSetup_Defaults(t *testing.T) {
	log, err := Setup(model.LogConfig{})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestSetup_Level(t *testing.T) {
	log, err := Setup(model.LogConfig{Level: "DEBUG"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = Setup(model.LogConfig{Level: "error"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.WarnLevel))
}

func TestSetup_Invalid(t *testing.T) {
	_, err := Setup(model.LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = Setup(model.LogConfig{Format: "xml"})
	assert.Error(t, err)

	_, err = Setup(model.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "run.log")})
	assert.Error(t, err)
}

func TestSetup_FileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := Setup(model.LogConfig{Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("batch flushed", zap.Int("batch", 1), zap.String("entity", "Pele"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"batch flushed"`)
	assert.Contains(t, string(data), `"entity":"Pele"`)
}
