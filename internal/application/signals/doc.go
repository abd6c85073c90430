// Package signals loads feedback signal definitions and emits them to the
// observability sink when execution units complete.
//
// The Registry buckets definitions by type (metric, outcome, advisor) and
// answers which signals a unit triggers. The Emitter evaluates each
// signal's trigger condition against a completion and forwards qualifying
// signals. An observability failure is recorded in the emission audit log
// and never reaches the execution unit's own outcome.
package signals
