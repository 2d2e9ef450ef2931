package loader

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const suiteSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["scenarios"],
	"properties": {
		"suite": {"type": "string"},
		"vars": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"scenarios": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "steps"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"tags": {"type": "array", "items": {"type": "string"}},
					"timeout": {"type": "string"},
					"steps": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["name", "action"],
							"properties": {
								"name": {"type": "string", "minLength": 1},
								"kind": {"enum": ["resource", "setup", "step"]},
								"action": {"type": "string", "minLength": 1},
								"with": {"type": "object"},
								"timeout": {"type": "string"},
								"retry": {
									"type": "object",
									"properties": {
										"maxAttempts": {"type": "integer", "minimum": 1},
										"backoff": {"enum": ["linear", "exponential"]},
										"baseDelay": {"type": "string"}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

// validateSchema checks the decoded YAML document against the suite schema
// before any parsing happens, so malformed files fail with a field-level
// message instead of a conversion error deep in the loader.
func validateSchema(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(suiteSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	for i, desc := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s: %s", desc.Field(), desc.Description())
	}
	return fmt.Errorf("invalid suite file: %s", sb.String())
}
