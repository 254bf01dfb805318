// Package definition loads collection declarations from YAML (or JSON) files
// into a registry.
//
// A definition file looks like:
//
//	collections:
//	  - name: tags
//	    fields:
//	      name: { type: string, constraints: { required: true, minLength: 2 } }
//	  - name: posts
//	    fields:
//	      author: { type: relation, relatesTo: User }
//	      tags:   { type: multi_relation, relatesTo: tags }
//	      cover:  { type: media }
//	  - name: settings
//	    global: true
//	    fields:
//	      siteTitle: { type: string }
//
// Collections and fields keep the order of the file.
package definition

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is a parsed definition file.
type File struct {
	Collections []CollectionDef `yaml:"collections" validate:"dive"`
}

// CollectionDef declares one collection or global.
type CollectionDef struct {
	Name   string    `yaml:"name" validate:"required,identifier"`
	Global bool      `yaml:"global"`
	Fields FieldDefs `yaml:"fields" validate:"dive"`
}

// FieldDef declares one field. Name comes from the mapping key.
type FieldDef struct {
	Name        string          `yaml:"-" validate:"required,identifier"`
	Type        string          `yaml:"type" validate:"required,fieldtype"`
	Label       string          `yaml:"label"`
	Description string          `yaml:"description"`
	RelatesTo   string          `yaml:"relatesTo"`
	Constraints *ConstraintsDef `yaml:"constraints"`

	// Extra holds every other key of the field mapping.
	Extra map[string]any `yaml:"-"`
}

// ConstraintsDef holds the constraint keys of a field.
type ConstraintsDef struct {
	Required  bool     `yaml:"required"`
	MinLength *int     `yaml:"minLength"`
	MaxLength *int     `yaml:"maxLength" validate:"omitempty,min=0"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
}

// FieldDefs is an ordered list decoded from a YAML mapping.
type FieldDefs []FieldDef

var knownFieldKeys = map[string]bool{
	"type":        true,
	"label":       true,
	"description": true,
	"relatesTo":   true,
	"constraints": true,
}

// UnmarshalYAML decodes a mapping of field name to field, keeping key order.
func (fs *FieldDefs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", value.Line)
	}

	out := make(FieldDefs, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, node := value.Content[i], value.Content[i+1]

		var f FieldDef
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("field %q: %w", key.Value, err)
		}
		f.Name = key.Value

		var raw map[string]any
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key.Value, err)
		}
		for k, v := range raw {
			if knownFieldKeys[k] {
				continue
			}
			if f.Extra == nil {
				f.Extra = make(map[string]any)
			}
			f.Extra[k] = stringKeys(v)
		}

		out = append(out, f)
	}

	*fs = out
	return nil
}

// stringKeys converts the map[any]any values yaml.v3 produces for mappings
// with non-string keys, so extra options always encode as JSON.
func stringKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = stringKeys(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = stringKeys(e)
		}
		return out
	default:
		return v
	}
}

// Parse decodes a definition file without validating it.
func Parse(data []byte) (File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("parse yaml: %w", err)
	}
	return file, nil
}
