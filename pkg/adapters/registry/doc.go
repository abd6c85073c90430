// Package registry provides asset registry implementations for capability
// registrations.
//
// Implementations:
//   - redis: JSON records with a per-domain index set, shared across replicas
//   - memory: in-process map, for standalone runs and tests
package registry
