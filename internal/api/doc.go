// Package api implements the HTTP REST API and WebSocket server for the
// ATS bridge.
//
// This package provides:
//   - REST endpoints for panel information, entity state reads, and commands
//   - WebSocket hub for real-time state change broadcasts
//   - Middleware stack (request ID, logging, recovery, body size limits)
//
// # Architecture
//
// The API server sits between consumers (dashboards, automations, custom
// integrations) and the panel coordinator. Commands flow from the API to the
// panel through the coordinator, and state changes flow back through the
// coordinator's listener registry, which the server relays to subscribed
// WebSocket clients.
//
// # Endpoints
//
//	GET  /api/v1/health                               server + session status
//	GET  /api/v1/panel                                panel descriptor
//	GET  /api/v1/stats                                coordinator statistics
//	GET  /api/v1/entities/{kind}                      list entities with state
//	GET  /api/v1/entities/{kind}/{number}             one entity with state
//	POST /api/v1/entities/{kind}/{number}/command     execute a panel command
//	GET  /api/v1/ws                                   WebSocket state stream
//
// # Graceful Degradation
//
// The server operates while the panel is disconnected — reads serve the last
// known state and WebSocket connections stay up; only commands fail, with
// a 503 response.
package api
