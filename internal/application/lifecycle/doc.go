// Package lifecycle drives the data fabric through startup and shutdown.
//
// Start loads the feedback signal catalogue, registers every capability
// card with the asset registry and publishes scheduling hints. Shutdown
// revokes what Start registered and reports anything left behind, so a
// restart never accumulates stale registrations.
package lifecycle
