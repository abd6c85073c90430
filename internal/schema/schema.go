// Package schema validates declarative capability and signal documents
// against the JSON Schemas embedded in this package.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed capability.schema.json
var capabilitySchema []byte

//go:embed signal.schema.json
var signalSchema []byte

// Kind selects which document schema a Validator enforces
type Kind string

const (
	KindCapability Kind = "capability"
	KindSignal     Kind = "signal"
)

// Validator checks decoded documents against one compiled schema
type Validator struct {
	kind   Kind
	schema *jsonschema.Schema
}

// New compiles the schema for kind
func New(kind Kind) (*Validator, error) {
	var raw []byte
	switch kind {
	case KindCapability:
		raw = capabilitySchema
	case KindSignal:
		raw = signalSchema
	default:
		return nil, fmt.Errorf("unknown document kind: %s", kind)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://datafabric.schemas.local/%s.schema.json", kind)
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", kind, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", kind, err)
	}
	return &Validator{kind: kind, schema: compiled}, nil
}

// MustNew is New for the embedded schemas, which always compile
func MustNew(kind Kind) *Validator {
	v, err := New(kind)
	if err != nil {
		panic(err)
	}
	return v
}

// Kind returns the document kind this validator enforces
func (v *Validator) Kind() Kind {
	return v.kind
}

// Validate checks a JSON-decoded document
func (v *Validator) Validate(doc map[string]interface{}) error {
	if doc == nil {
		return fmt.Errorf("%s document is empty", v.kind)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", v.kind, err)
	}
	return nil
}
