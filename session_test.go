package grabber

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Session.Run wires the real poppler/dmtx adapters internally (§4.8), so it
// can't be exercised here without those binaries on the test machine; these
// tests stay scoped to NewSession's config-validation boundary.

func TestNewSession_RejectsInvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.InputDir = ""

	session, err := NewSession(cfg)
	require.Error(t, err)
	assert.Nil(t, session)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewSession_RejectsOutputPathWithoutCSVSuffix(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.InputDir = t.TempDir()
	cfg.OutputPath = filepath.Join(t.TempDir(), "results.json")

	_, err := NewSession(cfg)
	require.Error(t, err)
}

func TestNewSession_AcceptsValidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.InputDir = t.TempDir()
	cfg.OutputPath = filepath.Join(t.TempDir(), "results.csv")

	session, err := NewSession(cfg)
	require.NoError(t, err)
	assert.NotNil(t, session)
}
