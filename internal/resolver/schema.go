package resolver

import "github.com/swaggest/jsonschema-go"

// ManualConfigSchema generates the JSON Schema for .sidecar.json, which an
// editor or IDE plugin can use to validate a project's manual config file
// before the resolver ever reads it. Neither debug surface (grpcdebug,
// mcpdebug) serves this schema.
func ManualConfigSchema() (jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{}
	return reflector.Reflect(manualConfig{})
}
