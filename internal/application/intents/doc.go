// Package intents maps data fabric intents to the execution units that
// fulfil them.
//
// The mapping is a static table. Decompose only computes the ordered unit
// list; the returned order is an advisory dependency order and the control
// plane decides concurrency and retries. Nothing here executes a unit.
package intents
