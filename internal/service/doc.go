// Package service composes the gateway adapter, the local store and the
// reliability governor into the views the CLI presents.
//
// Services accept narrow interfaces (GatewayAPI and the store interfaces)
// so they can be exercised against store.MockStore and a fake gateway.
package service
