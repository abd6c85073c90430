// Package capabilities bridges declarative capability cards to the external
// asset registry.
//
// The Registry discovers cards, registers them and tracks what is currently
// live so that every registration can be revoked again on unload. The
// Provider publishes the scheduling hints of registered capabilities to the
// control plane scheduler.
package capabilities
