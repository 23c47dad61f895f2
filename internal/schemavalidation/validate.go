// Package schemavalidation validates imported envelopes against the
// published JSON Schema for the typedcode envelope format, catching
// malformed documents before they reach the chain verifier.
package schemavalidation

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator wraps a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile compiles the schema at schemaPath (a file:// or http(s):// URL
// accepted by jsonschema.Compile) into a reusable Validator.
func Compile(schemaPath string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("schemavalidation: compile %s: %w", schemaPath, err)
	}
	return &Validator{schema: schema}, nil
}

// CompileBytes compiles an in-memory schema document, used when the schema
// is embedded rather than read from disk.
func CompileBytes(url string, schemaJSON []byte) (*Validator, error) {
	var doc interface{}
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("schemavalidation: unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schemavalidation: add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schemavalidation: compile %s: %w", url, err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks instanceJSON against the compiled schema.
func (v *Validator) Validate(instanceJSON []byte) error {
	var instance interface{}
	if err := json.Unmarshal(instanceJSON, &instance); err != nil {
		return fmt.Errorf("schemavalidation: unmarshal instance: %w", err)
	}
	if err := v.schema.Validate(instance); err != nil {
		return fmt.Errorf("schemavalidation: %w", err)
	}
	return nil
}
