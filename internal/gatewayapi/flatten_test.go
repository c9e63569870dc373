// ABOUTME: Tests for config flattening paths and sensitive key detection.

package gatewayapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenConfigPathsAndSensitivity(t *testing.T) {
	entries := FlattenConfig(`{"a": {"b": [1, {"token": "x"}]}}`)

	assert.Equal(t, []ConfigEntry{
		{Key: "a.b[0]", Value: "1", IsSensitive: false, Source: "gateway"},
		{Key: "a.b[1].token", Value: "x", IsSensitive: true, Source: "gateway"},
	}, entries)
}

func TestFlattenConfigScalarsAndEmptyContainers(t *testing.T) {
	entries := FlattenConfig(`{"on":true,"off":null,"name":"gw","empty":{},"none":[],"nested":[[2]]}`)

	keys := make(map[string]string, len(entries))
	for _, e := range entries {
		keys[e.Key] = e.Value
	}
	assert.Equal(t, map[string]string{
		"on":           "true",
		"off":          "null",
		"name":         "gw",
		"nested[0][0]": "2",
	}, keys)
}

func TestIsSensitiveKey(t *testing.T) {
	sensitive := []string{"token", "Token", "apiKey", "API_KEY", "password", "secretRef", "apiKeys", "token.limit"}
	for _, k := range sensitive {
		assert.True(t, IsSensitiveKey(k), k)
	}
	plain := []string{"port", "model", "count", ""}
	for _, k := range plain {
		assert.False(t, IsSensitiveKey(k), k)
	}
}

func TestFlattenConfigSensitivityUsesLeafKey(t *testing.T) {
	entries := FlattenConfig(`{"limits":{"token.limit":5,"api_key.v2":"x","max.count":3},"passwords":{"count":2},"keys":{"apiKeys":["k1"]}}`)

	sensitive := make(map[string]bool, len(entries))
	for _, e := range entries {
		sensitive[e.Key] = e.IsSensitive
	}
	assert.Equal(t, map[string]bool{
		"limits.token.limit": true,
		"limits.api_key.v2":  true,
		"limits.max.count":   false,
		"passwords.count":    false,
		"keys.apiKeys[0]":    true,
	}, sensitive)
}
