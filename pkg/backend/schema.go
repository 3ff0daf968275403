package backend

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resultSchemaURL = "extraction_result.json"

// resultSchema describes the minimum shape a successful /process response
// must satisfy before it is decoded.
const resultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["room_number", "meter_number", "decimal_number", "can_upload"],
  "definitions": {
    "field": {
      "type": ["object", "null"],
      "properties": {
        "value": {"type": ["string", "null"]},
        "confidence": {"type": ["number", "null"]},
        "method": {"type": ["string", "null"]}
      }
    },
    "optionalString": {"type": ["string", "null"]}
  },
  "properties": {
    "room_number": {"$ref": "#/definitions/field"},
    "meter_number": {"$ref": "#/definitions/field"},
    "decimal_number": {"$ref": "#/definitions/field"},
    "full_meter": {"$ref": "#/definitions/optionalString"},
    "can_upload": {"type": "boolean"},
    "elapsed_time": {"type": ["number", "null"]},
    "processed_image": {"$ref": "#/definitions/optionalString"},
    "processed_image_path": {"$ref": "#/definitions/optionalString"},
    "google_drive_link": {"$ref": "#/definitions/optionalString"},
    "pairing_info": {"type": ["object", "null"]}
  }
}`

func compileResultSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resultSchemaURL, strings.NewReader(resultSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(resultSchemaURL)
}
