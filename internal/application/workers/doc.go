// Package workers implements the completion worker pool.
//
// The pool subscribes to execution unit completion events on the event bus
// and hands each one to the signal emitter on a fixed number of goroutines:
//   - completion events are decoded into domain.CompletionEvent
//   - undecodable events are logged and dropped
//   - each completion fans out into the unit's qualifying feedback signals
//
// The health monitor tracks worker status and records pool metrics.
package workers
