// ABOUTME: Tests for the TOML connection preferences file.

package connection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "connection.toml")

	require.NoError(t, SavePreferences(path, Preferences{
		BaseURL:   "http://gw.local:18789",
		StreamURL: "http://gw.local:18789/events",
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `base_url = "http://gw.local:18789"`)
	assert.NotContains(t, string(raw), "socket_url")

	p, err := LoadPreferences(path)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "http://gw.local:18789/", p.BaseURL)
	assert.Equal(t, "http://gw.local:18789/events", p.StreamURL)
}

func TestLoadPreferencesMissingFile(t *testing.T) {
	p, err := LoadPreferences(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLoadPreferencesInvalidURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.toml")
	require.NoError(t, os.WriteFile(path, []byte(`base_url = "gw.local"`), 0o600))

	_, err := LoadPreferences(path)
	assert.ErrorIs(t, err, ErrInvalidBaseURL)
}
