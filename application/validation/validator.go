// Package validation checks policy documents against the generated schema.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/reglet-dev/hookguard/application/schema"
	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DocumentValidator validates raw policy documents.
type DocumentValidator struct {
	schema *jsonschema.Schema
}

// NewDocumentValidator compiles the policy schema.
func NewDocumentValidator() (*DocumentValidator, error) {
	raw, err := schema.ConfigSchema()
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schema.ID, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile(schema.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid policy schema: %w", err)
	}
	return &DocumentValidator{schema: sch}, nil
}

// Validate checks a decoded document. Top-level null values are skipped,
// the store treats them as "use the default".
func (v *DocumentValidator) Validate(doc map[string]any) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}

	trimmed := make(map[string]any, len(doc))
	for k, val := range doc {
		if val != nil {
			trimmed[k] = val
		}
	}

	// YAML and TOML decoders produce Go types the validator does not accept.
	b, err := json.Marshal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}
	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}

	if err := v.schema.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		for _, leaf := range leaves(ve) {
			result.Valid = false
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   leaf.InstanceLocation,
				Message: leaf.Message,
			})
		}
	}

	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Field < result.Errors[j].Field
	})
	return result, nil
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
