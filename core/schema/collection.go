package schema

import (
	"slices"
	"strings"
)

// Target is a relation target: a *Collection or a *Builtin. The interface
// is sealed; no other type can implement it.
type Target interface {
	// TargetName returns the name written to the schema document.
	TargetName() string
	target()
}

// Collection is a named schema. Globals share the shape and set IsGlobal.
type Collection struct {
	// Name is the registry key and the API path segment.
	Name string

	// Schema holds the fields. A nil schema exports as an empty one.
	Schema *Schema

	// IsGlobal marks a singleton resource (site settings and the like).
	IsGlobal bool
}

// TargetName implements Target.
func (c *Collection) TargetName() string {
	if c == nil {
		return ""
	}
	return c.Name
}

func (*Collection) target() {}

// Kind returns "global" or "collection".
func (c *Collection) Kind() string {
	if c.IsGlobal {
		return "global"
	}
	return "collection"
}

// Entry pairs a field name with its field, for NewSchema.
type Entry struct {
	Name  string
	Field Field
}

// F is shorthand for Entry{Name: name, Field: f}.
func F(name string, f Field) Entry {
	return Entry{Name: name, Field: f}
}

// Schema is an ordered mapping from field name to Field.
type Schema struct {
	names  []string
	fields map[string]Field
}

// NewSchema builds a schema from entries in declaration order. A repeated
// name replaces the earlier field and keeps its position.
func NewSchema(entries ...Entry) *Schema {
	s := &Schema{fields: make(map[string]Field, len(entries))}
	for _, e := range entries {
		s.Set(e.Name, e.Field)
	}
	return s
}

// Set adds or replaces a field.
func (s *Schema) Set(name string, f Field) {
	if s.fields == nil {
		s.fields = make(map[string]Field)
	}
	if _, exists := s.fields[name]; !exists {
		s.names = append(s.names, name)
	}
	s.fields[name] = f
}

// Get returns the field with the given name.
func (s *Schema) Get(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	f, ok := s.fields[name]
	return f, ok
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.names)
}

// Len returns the number of fields, private ones included.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Each calls fn for every field in declaration order.
func (s *Schema) Each(fn func(name string, f Field)) {
	if s == nil {
		return
	}
	for _, name := range s.names {
		fn(name, s.fields[name])
	}
}

// IsPrivate reports whether a field name is private (leading underscore).
// Private fields stay in the live schema but are never exported.
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

var reservedNames = []string{"user", "media", "collection", "cron_locks", "session", "sync_status"}

// ReservedNames returns the names collections and globals cannot use.
func ReservedNames() []string {
	return slices.Clone(reservedNames)
}

// IsReserved reports whether name is reserved. The match is exact and case
// sensitive.
func IsReserved(name string) bool {
	return slices.Contains(reservedNames, name)
}

// IsValidName checks that name can be used as an API path segment and a
// field key: a letter or underscore, then letters, digits, '_' or '-'.
func IsValidName(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' && c != '-' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
