// Package ports defines the interfaces (ports) that connect the routing
// engine to its collaborators.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// engine needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [FrameHandler]: Per-category handling of dispatched inbound frames
//   - [BackLink]: Outbound transport to the orchestration core
//   - [Detector]: Content classification gate for outbound text
//   - [ActionCaller]: Correlated request/response calls on the front protocol
//   - [Logger]: Structured logging abstraction (alias of pkg/log)
//
// The application layer depends only on these interfaces; concrete
// implementations live in internal/handlers, internal/backlink,
// internal/detect, and internal/action.
package ports
