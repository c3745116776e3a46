package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	verbose, err := New(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))

	quiet, err := New(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.WarnLevel))

	assert.NotNil(t, Must(false))
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paletti.log")

	log, err := NewFile(path, false)
	require.NoError(t, err)
	log.Info("dropped")
	log.Warn("kept")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "dropped")
}
