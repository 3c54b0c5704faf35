// Package audit implements async event dispatching for security-relevant
// operations of the panel.
//
// # Components
//
//   - [Sink] — interface for event consumers (SQLite store, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured audit record with timestamp, type, source address and target.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide
// which events to emit — that responsibility belongs to the auth manager
// and the HTTP handlers. Sink failures are swallowed here and must never
// surface into an authorization decision.
package audit
