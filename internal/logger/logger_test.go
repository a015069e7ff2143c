package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDefaultConfig(t *testing.T) {
	assert.NoError(t, Setup(DefaultConfig()))
}

func TestSetupRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "nonsense"
	assert.Error(t, Setup(cfg))
}

func TestScopedLoggersCarryFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Setup(LogConfig{
		Level:  "debug",
		Format: "json",
		Output: path,
	}))
	t.Cleanup(func() {
		require.NoError(t, Setup(DefaultConfig()))
	})

	componentLogger := WithComponent("extract")
	componentLogger.Info().Msg("component scoped")
	sourceLogger := WithSource("recovery", "a.pdf")
	sourceLogger.Warn().Msg("source scoped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"component":"extract"`)
	assert.Contains(t, out, `"component":"recovery"`)
	assert.Contains(t, out, `"source":"a.pdf"`)
}
