// ABOUTME: Persists the last gateway endpoint the operator connected to.
// ABOUTME: Stored as TOML; the bearer token is kept in the secret store instead.

package connection

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// TokenSecretKey names the secret store entry holding the gateway token.
const TokenSecretKey = "gateway.token"

// Preferences is the on-disk connection profile.
type Preferences struct {
	BaseURL   string `toml:"base_url"`
	SocketURL string `toml:"socket_url,omitempty"`
	StreamURL string `toml:"stream_url,omitempty"`
}

// LoadPreferences reads path. A missing file yields nil, nil.
func LoadPreferences(path string) (*Preferences, error) {
	var p Preferences
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading connection preferences: %w", err)
	}
	if p.BaseURL != "" {
		normalized, err := NormalizeBaseURL(p.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("connection preferences: %w", err)
		}
		p.BaseURL = normalized
	}
	return &p, nil
}

// SavePreferences writes p to path, creating parent directories.
func SavePreferences(path string, p Preferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening connection preferences: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		f.Close()
		return fmt.Errorf("writing connection preferences: %w", err)
	}
	return f.Close()
}
