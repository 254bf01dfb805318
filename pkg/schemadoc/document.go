// Package schemadoc defines the persisted schema document (mimsy.schema.json
// and the apply snapshots) that the content API consumes.
package schemadoc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the root of a schema document.
type Document struct {
	Collections []Collection `json:"collections"`

	// GeneratedAt is an ISO-8601 timestamp captured once per export.
	GeneratedAt string `json:"generatedAt"`
}

// Collection is one serialized collection or global.
type Collection struct {
	Name     string `json:"name"`
	Schema   Fields `json:"schema"`
	IsGlobal bool   `json:"isGlobal"`
}

// Field is one serialized field.
type Field struct {
	// Type is the field type tag (string, relation, ...).
	Type string `json:"type"`

	// RelatesTo is the target collection name or builtin identifier.
	RelatesTo string `json:"relatesTo,omitempty"`

	// Options holds label, description, constraints and passthrough keys.
	// It is omitted when empty.
	Options map[string]any `json:"options,omitempty"`
}

// MarshalJSON keeps the collections key an array when there are none.
func (d Document) MarshalJSON() ([]byte, error) {
	type document Document
	out := document(d)
	if out.Collections == nil {
		out.Collections = []Collection{}
	}
	return encode(out)
}

// GetCollection returns a collection by name, or nil if not found.
func (d *Document) GetCollection(name string) *Collection {
	for i := range d.Collections {
		if d.Collections[i].Name == name {
			return &d.Collections[i]
		}
	}
	return nil
}

// GetField returns a field by name, or nil if not found.
func (c *Collection) GetField(name string) *Field {
	if f, ok := c.Schema.Get(name); ok {
		return &f
	}
	return nil
}

// RelationFields returns the relation and multi-relation fields.
func (c *Collection) RelationFields() Fields {
	var out Fields
	c.Schema.Each(func(name string, f Field) {
		if f.IsRelation() {
			out.Set(name, f)
		}
	})
	return out
}

// RequiredFields returns the fields with a required constraint.
func (c *Collection) RequiredFields() Fields {
	var out Fields
	c.Schema.Each(func(name string, f Field) {
		if f.IsRequired() {
			out.Set(name, f)
		}
	})
	return out
}

// IsRelation returns true if the field is a relation type.
func (f Field) IsRelation() bool {
	return f.Type == "relation" || f.Type == "multi_relation"
}

// IsRequired returns true if the field has a required constraint.
func (f Field) IsRequired() bool {
	constraints, ok := f.Options["constraints"].(map[string]any)
	if !ok {
		return false
	}
	required, _ := constraints["required"].(bool)
	return required
}

// Description returns the description of the field.
func (f Field) Description() string {
	s, _ := f.Options["description"].(string)
	return s
}

// Fields is an ordered mapping from field name to Field. It marshals to a
// JSON object with keys in insertion order.
type Fields struct {
	names []string
	m     map[string]Field
}

// NewFields returns an empty mapping.
func NewFields() Fields {
	return Fields{m: map[string]Field{}}
}

// Set adds or replaces a field, keeping the original position on replace.
func (fs *Fields) Set(name string, f Field) {
	if fs.m == nil {
		fs.m = map[string]Field{}
	}
	if _, ok := fs.m[name]; !ok {
		fs.names = append(fs.names, name)
	}
	fs.m[name] = f
}

// Get returns the field with the given name.
func (fs Fields) Get(name string) (Field, bool) {
	f, ok := fs.m[name]
	return f, ok
}

// Has reports whether name is present.
func (fs Fields) Has(name string) bool {
	_, ok := fs.m[name]
	return ok
}

// Names returns the field names in order.
func (fs Fields) Names() []string {
	return append([]string(nil), fs.names...)
}

// Len returns the number of fields.
func (fs Fields) Len() int {
	return len(fs.names)
}

// Each calls fn for every field in order.
func (fs Fields) Each(fn func(name string, f Field)) {
	for _, name := range fs.names {
		fn(name, fs.m[name])
	}
}

// MarshalJSON writes the fields as an object in insertion order.
func (fs Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fs.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encode(name)
		if err != nil {
			return nil, err
		}
		value, err := encode(fs.m[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object and keeps the key order of the input.
func (fs *Fields) UnmarshalJSON(data []byte) error {
	*fs = NewFields()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("schema must be an object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}
		var f Field
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		fs.Set(name, f)
	}

	_, err = dec.Token()
	return err
}

// encode marshals v without HTML escaping so builtin names such as
// "<builtins.user>" stay readable.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
