// Package schema generates JSON schemas for permstore documents.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/permstore/domain/entities"
)

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// ConfigSchema describes the YAML configuration file.
func ConfigSchema() ([]byte, error) {
	return GenerateSchema(&entities.Config{})
}

// EntrySchema describes one element of `permstore list -o json`.
func EntrySchema() ([]byte, error) {
	return GenerateSchema(&entities.Entry{})
}
