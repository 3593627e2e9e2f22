// Package domain holds the core value types of the bridge: inbound frame
// envelopes, queue items, configuration snapshots, and the sentinel errors
// returned by the public API.
//
// Types in this package carry no behavior beyond classification and
// conversion; all routing and concurrency logic lives in the application
// layer (internal/app, internal/ingress, internal/response).
package domain
