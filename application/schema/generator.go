// Package schema generates the JSON schema of the policy document.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/hookguard/domain/entities"
)

// ID is the schema's $id.
const ID = "https://github.com/reglet-dev/hookguard/policy.schema.json"

// entryObject is the pinned form of an Entry.
type entryObject struct {
	Path string `json:"path" jsonschema:"required,minLength=1,description=Path or glob"`
	Hash string `json:"hash,omitempty" jsonschema:"pattern=^sha256:[0-9a-fA-F]{64}$,description=Content pin"`
}

// NewReflector returns the reflector used for policy documents. Entries are
// mapped to "string or {path, hash}", and unknown keys are permitted since
// the store preserves them.
func NewReflector() *jsonschema.Reflector {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	entryType := reflect.TypeOf(entities.Entry{})
	r.Mapper = func(t reflect.Type) *jsonschema.Schema {
		if t != entryType {
			return nil
		}
		return entrySchema()
	}
	return r
}

func entrySchema() *jsonschema.Schema {
	obj := (&jsonschema.Reflector{ExpandedStruct: true, RequiredFromJSONSchemaTags: true}).Reflect(entryObject{})
	obj.Version = ""
	obj.ID = ""
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string", MinLength: ptr(uint64(1))},
			obj,
		},
	}
}

func ptr[T any](v T) *T { return &v }

// GenerateSchema creates a JSON schema from a Go struct.
func GenerateSchema(v interface{}) ([]byte, error) {
	s := NewReflector().Reflect(v)

	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}

// ConfigSchema returns the schema of the policy document.
func ConfigSchema() ([]byte, error) {
	s := NewReflector().Reflect(&entities.PermissionConfig{})
	s.ID = jsonschema.ID(ID)
	s.Title = "hookguard policy"

	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
