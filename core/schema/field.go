package schema

import "maps"

// FieldType represents the type of a schema field.
type FieldType string

const (
	FieldTypeString        FieldType = "string"
	FieldTypeRichText      FieldType = "rich_text"
	FieldTypeCheckbox      FieldType = "checkbox"
	FieldTypeDateTime      FieldType = "date_time"
	FieldTypeDate          FieldType = "date"
	FieldTypeNumber        FieldType = "number"
	FieldTypeEmail         FieldType = "email"
	FieldTypeRelation      FieldType = "relation"       // Requires RelatesTo
	FieldTypeMultiRelation FieldType = "multi_relation" // Requires RelatesTo
)

// FieldTypes lists every known field type in documentation order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeString, FieldTypeRichText, FieldTypeCheckbox,
		FieldTypeDateTime, FieldTypeDate, FieldTypeNumber, FieldTypeEmail,
		FieldTypeRelation, FieldTypeMultiRelation,
	}
}

// IsValid reports whether t is a known field type.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeString, FieldTypeRichText, FieldTypeCheckbox,
		FieldTypeDateTime, FieldTypeDate, FieldTypeNumber, FieldTypeEmail,
		FieldTypeRelation, FieldTypeMultiRelation:
		return true
	default:
		return false
	}
}

// IsRelation reports whether t references another collection or builtin.
func (t FieldType) IsRelation() bool {
	return t == FieldTypeRelation || t == FieldTypeMultiRelation
}

// fieldMarker tags fields built by the constructors below.
type fieldMarker struct{ _ byte }

var constructed = &fieldMarker{}

// Field describes one attribute of a schema. Fields are immutable; the zero
// value is not a valid field and is skipped on export.
type Field struct {
	marker      *fieldMarker
	kind        FieldType
	label       string
	description string
	constraints Constraint
	relatesTo   Target
	extra       map[string]any
}

// Options holds the settings shared by every field type.
type Options struct {
	// Label is the display name used by the admin UI.
	Label string

	// Description is human-readable help text.
	Description string

	Constraints Constraints

	// Extra carries keys this version does not know about. They are exported
	// unchanged inside the field options.
	Extra map[string]any
}

// StringOptions configures ShortString fields.
type StringOptions struct {
	Label       string
	Description string
	Constraints StringConstraints
	Extra       map[string]any
}

// NumberOptions configures Number fields.
type NumberOptions struct {
	Label       string
	Description string
	Constraints NumberConstraints
	Extra       map[string]any
}

// RelationOptions configures Relation and MultiRelation fields.
type RelationOptions struct {
	// RelatesTo is the target collection or builtin.
	RelatesTo   Target
	Label       string
	Description string
	Constraints Constraints
	Extra       map[string]any
}

func newField(kind FieldType, label, description string, c Constraint, target Target, extra map[string]any) Field {
	f := Field{
		marker:      constructed,
		kind:        kind,
		label:       label,
		description: description,
		constraints: c,
		relatesTo:   target,
	}
	if len(extra) > 0 {
		f.extra = maps.Clone(extra)
	}
	return f
}

func first[T any](opts []T) T {
	var zero T
	if len(opts) == 0 {
		return zero
	}
	return opts[0]
}

// ShortString creates a single-line text field.
func ShortString(opts ...StringOptions) Field {
	o := first(opts)
	return newField(FieldTypeString, o.Label, o.Description, o.Constraints, nil, o.Extra)
}

// RichText creates a formatted text field.
func RichText(opts ...Options) Field {
	o := first(opts)
	return newField(FieldTypeRichText, o.Label, o.Description, o.Constraints, nil, o.Extra)
}

// Checkbox creates a boolean field.
func Checkbox(opts ...Options) Field {
	o := first(opts)
	return newField(FieldTypeCheckbox, o.Label, o.Description, o.Constraints, nil, o.Extra)
}

// DateTime creates a timestamp field.
func DateTime(opts ...Options) Field {
	o := first(opts)
	return newField(FieldTypeDateTime, o.Label, o.Description, o.Constraints, nil, o.Extra)
}

// Date creates a calendar date field.
func Date(opts ...Options) Field {
	o := first(opts)
	return newField(FieldTypeDate, o.Label, o.Description, o.Constraints, nil, o.Extra)
}

// Number creates a numeric field.
func Number(opts ...NumberOptions) Field {
	o := first(opts)
	return newField(FieldTypeNumber, o.Label, o.Description, o.Constraints, nil, o.Extra)
}

// Email creates an email address field.
func Email(opts ...Options) Field {
	o := first(opts)
	return newField(FieldTypeEmail, o.Label, o.Description, o.Constraints, nil, o.Extra)
}

// Relation creates a to-one reference to a collection or builtin.
func Relation(opts RelationOptions) Field {
	return newField(FieldTypeRelation, opts.Label, opts.Description, opts.Constraints, opts.RelatesTo, opts.Extra)
}

// MultiRelation creates a to-many reference. It is exported in the schema
// document, but PostProcess does not rehydrate its values yet.
func MultiRelation(opts RelationOptions) Field {
	return newField(FieldTypeMultiRelation, opts.Label, opts.Description, opts.Constraints, opts.RelatesTo, opts.Extra)
}

// MediaField creates a relation to the Media builtin.
func MediaField(opts ...Options) Field {
	o := first(opts)
	return Relation(RelationOptions{
		RelatesTo:   Media,
		Label:       o.Label,
		Description: o.Description,
		Constraints: o.Constraints,
		Extra:       o.Extra,
	})
}

// Valid reports whether f was built by one of the constructors.
func (f Field) Valid() bool {
	return f.marker == constructed
}

// Type returns the field type tag.
func (f Field) Type() FieldType {
	return f.kind
}

// Label returns the display name.
func (f Field) Label() string {
	return f.label
}

// Description returns the help text.
func (f Field) Description() string {
	return f.description
}

// Constraints returns the typed constraints of the field.
func (f Field) Constraints() Constraint {
	return f.constraints
}

// RelatesTo returns the relation target, or nil for non-relation fields.
func (f Field) RelatesTo() Target {
	return f.relatesTo
}

// Extra returns a copy of the passthrough options.
func (f Field) Extra() map[string]any {
	return maps.Clone(f.extra)
}

// IsRelation reports whether the field references another collection.
func (f Field) IsRelation() bool {
	return f.kind.IsRelation()
}

// IsRequired returns whether the field carries a required constraint.
func (f Field) IsRequired() bool {
	return f.constraints != nil && f.constraints.IsRequired()
}

// Options returns the user-facing option bag: label, description,
// constraints and passthrough keys. The type tag and the relation target are
// never part of it. The result is nil when nothing is set.
func (f Field) Options() map[string]any {
	opts := make(map[string]any, len(f.extra)+3)
	maps.Copy(opts, f.extra)
	delete(opts, "type")
	delete(opts, "relatesTo")

	if f.label != "" {
		opts["label"] = f.label
	}
	if f.description != "" {
		opts["description"] = f.description
	}
	if f.constraints != nil {
		if m := f.constraints.Map(); len(m) > 0 {
			opts["constraints"] = m
		}
	}

	if len(opts) == 0 {
		return nil
	}
	return opts
}
