// Package domain holds the value types shared by the capability registry,
// the intent decomposition engine and the feedback signal pipeline.
//
// Every type here is plain data. Instances are created by the loaders in
// internal/application and are not mutated after construction.
package domain
