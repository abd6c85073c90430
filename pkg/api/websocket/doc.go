// Package websocket provides real-time feedback signal streaming via WebSocket.
//
// Clients connect to /api/v1/ws/signals and receive every signal published
// to the signal topic. The optional query parameters type, signal and
// organization narrow the stream.
package websocket
