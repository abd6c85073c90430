// Package unit defines the contract every execution unit follows.
//
// A unit exposes a single Execute operation taking a typed input and the
// caller's tenant context, and returns an Output carrying either a result or
// a stable error code drawn from the unit's declared failure modes. Degraded
// but usable results raise flags instead of failing.
//
// The package also carries the catalogue of the 22 data fabric units with
// their scheduling hints. The capability registry falls back to it when a
// capability card does not declare its own scheduling block.
package unit
