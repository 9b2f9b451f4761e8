package workflow

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// schemaFor reflects a JSON Schema for the generator's structured
// output mode. Schemas are inlined (no $ref) because provider CLIs do
// not resolve references.
func schemaFor[T any]() json.RawMessage {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var v T
	schema := reflector.Reflect(&v)
	raw, err := json.Marshal(schema)
	if err != nil {
		// Reflection over our own types cannot produce unmarshalable
		// schemas; treat it as a programming error.
		panic(err)
	}
	return raw
}
