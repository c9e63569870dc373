// ABOUTME: Flattens nested JSON configuration into dotted and bracket-indexed leaf paths.
// ABOUTME: Leaves whose own JSON key names a credential are flagged sensitive.

package gatewayapi

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ConfigSourceGateway marks entries read from the gateway.
const ConfigSourceGateway = "gateway"

var sensitiveMarkers = []string{"token", "password", "secret", "apikey", "api_key"}

// FlattenConfig walks raw JSON and emits one entry per scalar leaf in
// document order. Empty objects and arrays emit nothing.
func FlattenConfig(raw string) []ConfigEntry {
	var entries []ConfigEntry
	flattenValue(gjson.Parse(raw), "", "", &entries)
	return entries
}

// flattenValue carries the nearest object key alongside the rendered path;
// array elements inherit the key of the array that holds them.
func flattenValue(v gjson.Result, path, key string, out *[]ConfigEntry) {
	switch {
	case v.IsObject():
		v.ForEach(func(k, child gjson.Result) bool {
			name := k.String()
			next := name
			if path != "" {
				next = path + "." + name
			}
			flattenValue(child, next, name, out)
			return true
		})
	case v.IsArray():
		for i, child := range v.Array() {
			flattenValue(child, path+"["+strconv.Itoa(i)+"]", key, out)
		}
	case !v.Exists():
	default:
		*out = append(*out, ConfigEntry{
			Key:         path,
			Value:       scalarText(v),
			IsSensitive: IsSensitiveKey(key),
			Source:      ConfigSourceGateway,
		})
	}
}

func scalarText(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return v.Raw
}

// IsSensitiveKey reports whether a single JSON object key names a
// credential. The key is matched whole, dots included.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
