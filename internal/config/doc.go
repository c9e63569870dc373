// Package config handles configuration loading for coven-control.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Every field has a default, so a missing file is not an error
// when loaded through LoadOrDefault.
//
// # Configuration File
//
// Locations (in order):
//
//  1. The --config flag
//  2. Path from COVEN_CONTROL_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/control.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	gateway:
//	  token: "${COVEN_GATEWAY_TOKEN}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax and must not be negative.
//
// # Configuration Sections
//
//	gateway:
//	  base_url: "http://localhost:18789/"
//	  token: "${COVEN_GATEWAY_TOKEN}"
//	  request_timeout: "30s"
//
//	realtime:
//	  socket_url: ""              # default: base_url with ws(s) scheme + realtime
//	  stream_url: ""              # default: base_url + realtime/sse
//	  channels: [agents, projects, runs]
//	  max_reconnect_attempts: 5
//	  reconnect_delay: "2s"
//
//	reliability:
//	  max_attempts: 3
//	  base_delay: "100ms"
//	  circuit_cooldown: "0s"      # 0 keeps the circuit open until reset
//	  idempotency_ttl: "24h"
//	  idempotency_max_keys: 10000
//
//	database:
//	  path: "~/.local/share/coven/control.db"
//	  secret_key_path: "~/.local/share/coven/secret.key"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: false
//	  addr: "127.0.0.1:9464"
package config
