// Package sources enumerates declarative documents (capability cards and
// signal definitions) from a file system.
//
// JSON and YAML are both accepted. YAML bodies are normalised to the values
// encoding/json would produce, so downstream validation sees one data model
// regardless of the physical format.
package sources
