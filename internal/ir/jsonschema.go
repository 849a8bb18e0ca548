package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// jsonSchemaDocument is the JSON Schema (draft-07) contract for the
// on-disk interchange format of a SqlSchema, mirroring the shape the
// teacher validated JSON schema files against before unmarshaling
// (database/interface.go's sibling schema-json/schema.json in the
// original repo). Kept inline rather than as a loose file on disk so
// that ExportJSON/ImportJSON never depend on a working directory.
const jsonSchemaDocument = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": true,
  "required": ["Dialect", "Tables"],
  "properties": {
    "Dialect": {"type": "string"},
    "Tables": {"type": ["array", "null"]}
  }
}`

// ExportJSON serializes a schema to its canonical JSON form.
func ExportJSON(s *SqlSchema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ImportJSON validates raw bytes against the interchange JSON Schema and
// decodes them into a SqlSchema, the teacher's two-step "validate then
// decode" pipeline. The JSON Schema only checks the top-level shape, and
// the decode step ignores unknown fields at every level.
func ImportJSON(data []byte) (*SqlSchema, error) {
	schemaLoader := gojsonschema.NewStringLoader(jsonSchemaDocument)
	docLoader := gojsonschema.NewStringLoader(string(data))

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("ir: validate schema document: %w", err)
	}
	if !result.Valid() {
		msg := "ir: schema JSON failed validation:\n"
		for _, e := range result.Errors() {
			msg += fmt.Sprintf("- %s\n", e)
		}
		return nil, fmt.Errorf("%s", msg)
	}

	var out SqlSchema
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("ir: decode schema JSON: %w", err)
	}
	return &out, nil
}
