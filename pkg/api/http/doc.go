// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Capability, execution unit and intent catalogue queries
//   - Intent decomposition
//   - Feedback signal queries and completion reporting
//   - The emission audit log
//   - Health, readiness and Prometheus metrics
package http
