package artifact

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed record.schema.json
var recordSchemaJSON string

const recordSchemaURL = "https://commonpool.local/schemas/simulation-record.json"

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

// RecordSchema returns the compiled schema of the persisted record document.
func RecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = jsonschema.CompileString(recordSchemaURL, recordSchemaJSON)
	})
	return recordSchema, recordSchemaErr
}

// ValidateDocument checks a JSON record document against RecordSchema.
func ValidateDocument(doc []byte) error {
	schema, err := RecordSchema()
	if err != nil {
		return fmt.Errorf("compile record schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
