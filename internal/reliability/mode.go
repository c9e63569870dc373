// ABOUTME: Runtime mode evaluation and SHA-256 cache file integrity checks.
// ABOUTME: Used by the dashboard and the doctor command to describe local state.

package reliability

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// RuntimeMode describes how the client is operating.
type RuntimeMode int

const (
	ModeOffline RuntimeMode = iota
	ModeDegraded
	ModeOnline
)

func (m RuntimeMode) String() string {
	switch m {
	case ModeOnline:
		return "online"
	case ModeDegraded:
		return "degraded"
	default:
		return "offline"
	}
}

// EvaluateRuntimeMode is Online with both pull and push paths working,
// Degraded when only request/response works, Offline otherwise.
func EvaluateRuntimeMode(gatewayReachable, realtimeConnected bool) RuntimeMode {
	switch {
	case !gatewayReachable:
		return ModeOffline
	case !realtimeConnected:
		return ModeDegraded
	default:
		return ModeOnline
	}
}

// ComputeFileHash returns the lowercase hex SHA-256 of the file at path.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFileHash compares the file's hash with expected, ignoring case.
func VerifyFileHash(path, expected string) (bool, error) {
	actual, err := ComputeFileHash(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, strings.TrimSpace(expected)), nil
}
