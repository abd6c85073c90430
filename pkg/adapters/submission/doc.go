// Package submission publishes decompositions, capability scheduling hints
// and locality signals to the event bus, where the orchestrator and the
// scheduler pick them up.
package submission
