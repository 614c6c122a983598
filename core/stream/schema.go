package stream

import "github.com/invopop/jsonschema"

// Schema describes the JSON payload of a stream record.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Record{})
	schema.Title = "ema-chat stream record"
	return schema
}
