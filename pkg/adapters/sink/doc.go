// Package sink provides ports.ObservabilitySink implementations that route
// emitted feedback signals to the event bus and fan them out to several sinks.
package sink
