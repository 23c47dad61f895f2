package envelope

import (
	_ "embed"
	"sync"

	"typedcode/internal/schemavalidation"
)

// EmbeddedSchemaURL is the resource id the single-file envelope schema is
// registered under when validated from an in-memory document rather than
// a file on disk.
const EmbeddedSchemaURL = "https://typedcode.dev/schema/envelope-v1.schema.json"

var (
	schemaOnce      sync.Once
	schemaValidator *schemavalidation.Validator
	schemaErr       error
)

// embeddedSchemaJSON is the single-file envelope schema, kept byte-identical
// to docs/schema/envelope-v1.schema.json so imports validate the same
// document whether or not the docs tree ships alongside the binary.
//go:embed schemadata/envelope-v1.schema.json
var embeddedSchemaJSON []byte

func loadSchema() (*schemavalidation.Validator, error) {
	schemaOnce.Do(func() {
		schemaValidator, schemaErr = schemavalidation.CompileBytes(EmbeddedSchemaURL, embeddedSchemaJSON)
	})
	return schemaValidator, schemaErr
}

// ValidateSchema checks a raw single-file envelope document against the
// published JSON Schema before the codec's own structural decode runs,
// catching shape errors (wrong types, missing nested required keys) with a
// schema-validator's precision rather than encoding/json's best-effort
// zero-value behavior.
func ValidateSchema(instanceJSON []byte) error {
	v, err := loadSchema()
	if err != nil {
		return err
	}
	return v.Validate(instanceJSON)
}
