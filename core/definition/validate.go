package definition

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mimsy-cms/mimsy/core/schema"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return strings.ToLower(fld.Name)
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	must(v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return schema.IsValidName(fl.Field().String())
	}))
	must(v.RegisterValidation("fieldtype", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		return t == typeMedia || schema.FieldType(t).IsValid()
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// typeMedia is shorthand for a relation to the Media builtin.
const typeMedia = "media"

// ValidationError lists every problem found in a definition file.
type ValidationError struct {
	Problems []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation errors:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Validate checks a definition file. Relation targets are checked by Build,
// which knows the registry.
func Validate(file File) error {
	var errs []string

	if err := validate.Struct(file); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, describe(e))
		}
	}

	seen := make(map[string]bool)
	for _, c := range file.Collections {
		if c.Name != "" && seen[c.Name] {
			errs = append(errs, fmt.Sprintf("collection %q is declared more than once", c.Name))
		}
		seen[c.Name] = true

		fieldSeen := make(map[string]bool)
		for _, f := range c.Fields {
			if fieldSeen[f.Name] {
				errs = append(errs, fmt.Sprintf("%s.%s: field is declared more than once", c.Name, f.Name))
			}
			fieldSeen[f.Name] = true

			for _, problem := range validateField(f) {
				errs = append(errs, fmt.Sprintf("%s.%s: %s", c.Name, f.Name, problem))
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

func validateField(f FieldDef) []string {
	var errs []string

	isRelation := schema.FieldType(f.Type).IsRelation()
	switch {
	case isRelation && f.RelatesTo == "":
		errs = append(errs, fmt.Sprintf("%s field requires relatesTo", f.Type))
	case f.Type == typeMedia && f.RelatesTo != "" && f.RelatesTo != "Media" && f.RelatesTo != schema.MediaBuiltinName:
		errs = append(errs, "media field cannot relate to "+f.RelatesTo)
	case !isRelation && f.Type != typeMedia && f.RelatesTo != "":
		errs = append(errs, fmt.Sprintf("relatesTo is not allowed on %s fields", f.Type))
	}

	c := f.Constraints
	if c == nil {
		return errs
	}

	if (c.MinLength != nil || c.MaxLength != nil) && f.Type != string(schema.FieldTypeString) {
		errs = append(errs, "minLength and maxLength are only allowed on string fields")
	}
	if (c.Min != nil || c.Max != nil) && f.Type != string(schema.FieldTypeNumber) {
		errs = append(errs, "min and max are only allowed on number fields")
	}
	if err := (schema.StringConstraints{MinLength: c.MinLength, MaxLength: c.MaxLength}).Check(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := (schema.NumberConstraints{Min: c.Min, Max: c.Max}).Check(); err != nil {
		errs = append(errs, err.Error())
	}

	return errs
}

func describe(e validator.FieldError) string {
	// Drop the root struct name.
	path := e.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "identifier":
		return fmt.Sprintf("%s: %q is not a valid identifier", path, e.Value())
	case "fieldtype":
		return fmt.Sprintf("%s: unknown field type %q", path, e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", path, e.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", path, e.Tag())
	}
}
