// Package prometheus exports the data fabric's operational metrics and
// counts emitted feedback signals with the Prometheus client.
package prometheus
