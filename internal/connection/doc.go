// Package connection holds the gateway endpoint and credentials the client is
// currently pointed at.
//
// Context is read concurrently by in-flight gateway calls while the operator
// may repoint it. Options values are immutable; Update swaps the whole value
// under a mutex so readers always see a matching base URL and token.
package connection
