// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Streams with consumer groups, for multi-replica deployments
//   - memory: in-process fan-out, for single-process deployments and tests
//
// Completion events from the orchestrator arrive on ports.TopicCompletions;
// emitted signals, decompositions and capability offers are published on
// their own topics.
package events
