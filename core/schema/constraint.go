package schema

import "fmt"

// Constraint is implemented by the per-type constraint sets. Only the keys
// valid for a field type can be expressed.
type Constraint interface {
	// IsRequired reports whether a value must be provided.
	IsRequired() bool

	// Map returns the JSON-safe form using the document key names
	// (required, minLength, maxLength, min, max). Unset keys are omitted.
	Map() map[string]any
}

// Constraints applies to every field type.
type Constraints struct {
	Required bool
}

// StringConstraints applies to short string fields.
type StringConstraints struct {
	Required  bool
	MinLength *int
	MaxLength *int
}

// NumberConstraints applies to number fields.
type NumberConstraints struct {
	Required bool
	Min      *float64
	Max      *float64
}

// Ptr returns a pointer to v, for optional constraint values.
func Ptr[T any](v T) *T {
	return &v
}

func (c Constraints) IsRequired() bool { return c.Required }

func (c Constraints) Map() map[string]any {
	m := map[string]any{}
	if c.Required {
		m["required"] = true
	}
	return m
}

func (c StringConstraints) IsRequired() bool { return c.Required }

func (c StringConstraints) Map() map[string]any {
	m := Constraints{Required: c.Required}.Map()
	if c.MinLength != nil {
		m["minLength"] = *c.MinLength
	}
	if c.MaxLength != nil {
		m["maxLength"] = *c.MaxLength
	}
	return m
}

// Check returns an error when the bounds contradict each other.
func (c StringConstraints) Check() error {
	if c.MinLength != nil && *c.MinLength < 0 {
		return fmt.Errorf("minLength must not be negative, got %d", *c.MinLength)
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return fmt.Errorf("minLength %d is greater than maxLength %d", *c.MinLength, *c.MaxLength)
	}
	return nil
}

func (c NumberConstraints) IsRequired() bool { return c.Required }

func (c NumberConstraints) Map() map[string]any {
	m := Constraints{Required: c.Required}.Map()
	if c.Min != nil {
		m["min"] = *c.Min
	}
	if c.Max != nil {
		m["max"] = *c.Max
	}
	return m
}

// Check returns an error when the bounds contradict each other.
func (c NumberConstraints) Check() error {
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return fmt.Errorf("min %v is greater than max %v", *c.Min, *c.Max)
	}
	return nil
}
