// Package gatewayapi adapts the gateway's single tool-invoke RPC into typed
// read operations.
//
// # Protocol
//
// Every call is POST {base}/tools/invoke with {"tool": name, ...args}. The
// gateway answers {"ok": true, "result": ...} or
// {"ok": false, "error": {"type": ..., "message": ...}}.
//
// # Tolerance
//
// Gateways drift between versions, so responses are checked in this order:
//
//  1. An HTML content type means the endpoint is a web page, not the API.
//  2. HTTP 404 or error.type "not_found" means this one tool is absent.
//  3. A body that is not the envelope shape above is incompatible, except
//     for 5xx and 429 responses, which are treated as transient.
//  4. Any other ok=false carries the gateway's message.
//  5. Otherwise result is mapped with per-field fallback tables.
//
// Rules 1-4 produce fault.ErrIncompatibleAPI. List operations turn that
// into an empty slice so a missing feature does not break the dashboard;
// GetStatus propagates it because nothing else works without it.
package gatewayapi
