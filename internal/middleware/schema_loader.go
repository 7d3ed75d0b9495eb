package middleware

import (
	"encoding/json"
	"fmt"

	contextutils "mathapp/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"
)

// requestSchemas describes the JSON bodies the API accepts. Kept as YAML so
// the shapes stay readable next to the handler code that consumes them.
const requestSchemas = `
Signup:
  type: object
  required: [username, password]
  properties:
    username:
      type: string
      minLength: 3
      maxLength: 50
    email:
      type: string
    password:
      type: string
      minLength: 8
  additionalProperties: false

Login:
  type: object
  required: [username, password]
  properties:
    username:
      type: string
    password:
      type: string
  additionalProperties: false

Attempt:
  type: object
  required: [mode, exercise_id, level]
  properties:
    mode:
      type: string
      enum: [training, chrono, survival]
    exercise_id:
      type: string
      minLength: 1
    level:
      type: integer
      minimum: 1
      maximum: 3
    score:
      type: integer
      minimum: 0
    elapsed_seconds:
      type: number
      minimum: 0
    tables_drill:
      type: boolean
  additionalProperties: false

Exercise:
  type: object
  required: [id, name, topic]
  properties:
    id:
      type: string
      minLength: 1
      maxLength: 100
    name:
      type: string
      minLength: 1
    topic:
      type: string
      minLength: 1
    generator_key:
      type: [string, "null"]
    tables_drill:
      type: boolean
    premium:
      type: boolean
    enabled:
      type: boolean
    levels:
      type: object
  additionalProperties: false

ExerciseLevelConfig:
  type: object
  required: [question_template, correct_answer, options]
  properties:
    variables:
      type: object
      additionalProperties:
        type: string
    calculations:
      type: object
      additionalProperties:
        type: string
    question_template:
      type: string
      minLength: 1
    explanation_template:
      type: string
    correct_answer:
      type: string
      minLength: 1
    options:
      type: array
      minItems: 2
      items:
        type: string
    visual_config_template:
      type: object
    visual_config_override:
      type: object
    variations:
      type: array
  additionalProperties: false
`

// SchemaLoader holds the compiled request schemas
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader compiles the embedded request schemas
func NewSchemaLoader() (*SchemaLoader, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(requestSchemas), &raw); err != nil {
		return nil, contextutils.WrapError(err, "failed to parse request schemas")
	}

	loader := &SchemaLoader{schemas: make(map[string]*gojsonschema.Schema)}
	for name, schemaData := range raw {
		compatible, err := convertToJSONCompatible(schemaData)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "schema %q is not JSON compatible", name)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(compatible))
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to compile schema %q", name)
		}
		loader.schemas[name] = schema
	}
	return loader, nil
}

// MustNewSchemaLoader is NewSchemaLoader for wiring at startup, where a
// broken embedded schema is a programming error.
func MustNewSchemaLoader() *SchemaLoader {
	loader, err := NewSchemaLoader()
	if err != nil {
		panic(err)
	}
	return loader
}

// ValidateData validates a decoded JSON document against the named schema
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	schema, ok := sl.schemas[schemaName]
	if !ok {
		return contextutils.ErrorWithContextf("unknown request schema %q", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return contextutils.WrapError(err, "schema validation failed")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "%v", details)
	}
	return nil
}

// HasSchema reports whether the named schema is loaded
func (sl *SchemaLoader) HasSchema(name string) bool {
	_, ok := sl.schemas[name]
	return ok
}

// convertToJSONCompatible rewrites yaml.v2 output, whose maps are keyed by
// interface{}, into the string-keyed form gojsonschema expects.
func convertToJSONCompatible(v interface{}) (interface{}, error) {
	switch value := v.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(value))
		for k, item := range value {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string map key %v", k)
			}
			converted, err := convertToJSONCompatible(item)
			if err != nil {
				return nil, err
			}
			result[key] = converted
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(value))
		for i, item := range value {
			converted, err := convertToJSONCompatible(item)
			if err != nil {
				return nil, err
			}
			result[i] = converted
		}
		return result, nil
	default:
		// Round-trip scalars through encoding/json to normalize numbers
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		var out interface{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
