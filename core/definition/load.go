package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mimsy-cms/mimsy/core/registry"
	"github.com/mimsy-cms/mimsy/core/schema"
)

// Registrar is the part of a registry the loader needs.
type Registrar interface {
	Register(c *schema.Collection) error
	Get(name string) (*schema.Collection, bool)
}

// Load reads, validates and registers the collections of a file.
func Load(r Registrar, path string) ([]*schema.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	collections, err := LoadBytes(r, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return collections, nil
}

// LoadBytes is Load for in-memory content.
func LoadBytes(r Registrar, data []byte) ([]*schema.Collection, error) {
	file, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(r, file)
}

// LoadDir loads every .yaml, .yml and .json file under dir, including
// subdirectories, in lexical order. Later files can relate to collections of
// earlier ones.
func LoadDir(r Registrar, dir string) ([]*schema.Collection, error) {
	var all []*schema.Collection

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := LoadDir(r, path)
			if err != nil {
				return nil, err
			}
			all = append(all, sub...)
			continue
		}

		if !IsDefinitionFile(entry.Name()) {
			continue
		}

		collections, err := Load(r, path)
		if err != nil {
			return nil, err
		}
		all = append(all, collections...)
	}

	return all, nil
}

// IsDefinitionFile reports whether name has a definition file extension.
func IsDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// Build validates file, resolves relation targets and registers the
// collections in file order. Nothing is registered when any check fails.
//
// A relatesTo value resolves to a builtin ("User", "Media" or their wire
// names), then to a collection of the same file, then to an entry already
// in r.
func Build(r Registrar, file File) ([]*schema.Collection, error) {
	if err := Validate(file); err != nil {
		return nil, err
	}

	for _, def := range file.Collections {
		if schema.IsReserved(def.Name) {
			return nil, &registry.ReservedNameError{Kind: kindOf(def), Name: def.Name}
		}
	}

	local := make(map[string]*schema.Collection, len(file.Collections))
	collections := make([]*schema.Collection, 0, len(file.Collections))
	for _, def := range file.Collections {
		c := &schema.Collection{Name: def.Name, Schema: schema.NewSchema(), IsGlobal: def.Global}
		local[def.Name] = c
		collections = append(collections, c)
	}

	// Declared collections shadow the builtin declaration names; the wire
	// names ("<builtins.user>") always reach the builtins.
	resolve := func(name string) (schema.Target, bool) {
		if c, ok := local[name]; ok {
			return c, true
		}
		if c, ok := r.Get(name); ok {
			return c, true
		}
		if b, ok := schema.BuiltinByName(name); ok {
			return b, true
		}
		return nil, false
	}

	var errs []string
	for i, def := range file.Collections {
		for _, fd := range def.Fields {
			f, err := buildField(fd, resolve)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s.%s: %v", def.Name, fd.Name, err))
				continue
			}
			collections[i].Schema.Set(fd.Name, f)
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Problems: errs}
	}

	for _, c := range collections {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	return collections, nil
}

func buildField(fd FieldDef, resolve func(string) (schema.Target, bool)) (schema.Field, error) {
	var c ConstraintsDef
	if fd.Constraints != nil {
		c = *fd.Constraints
	}
	base := schema.Options{
		Label:       fd.Label,
		Description: fd.Description,
		Constraints: schema.Constraints{Required: c.Required},
		Extra:       fd.Extra,
	}

	switch fd.Type {
	case typeMedia:
		return schema.MediaField(base), nil
	case string(schema.FieldTypeString):
		return schema.ShortString(schema.StringOptions{
			Label:       fd.Label,
			Description: fd.Description,
			Constraints: schema.StringConstraints{Required: c.Required, MinLength: c.MinLength, MaxLength: c.MaxLength},
			Extra:       fd.Extra,
		}), nil
	case string(schema.FieldTypeNumber):
		return schema.Number(schema.NumberOptions{
			Label:       fd.Label,
			Description: fd.Description,
			Constraints: schema.NumberConstraints{Required: c.Required, Min: c.Min, Max: c.Max},
			Extra:       fd.Extra,
		}), nil
	case string(schema.FieldTypeRichText):
		return schema.RichText(base), nil
	case string(schema.FieldTypeCheckbox):
		return schema.Checkbox(base), nil
	case string(schema.FieldTypeDateTime):
		return schema.DateTime(base), nil
	case string(schema.FieldTypeDate):
		return schema.Date(base), nil
	case string(schema.FieldTypeEmail):
		return schema.Email(base), nil
	case string(schema.FieldTypeRelation), string(schema.FieldTypeMultiRelation):
		target, ok := resolve(fd.RelatesTo)
		if !ok {
			return schema.Field{}, fmt.Errorf("relatesTo %q does not name a collection or builtin", fd.RelatesTo)
		}
		opts := schema.RelationOptions{
			RelatesTo:   target,
			Label:       fd.Label,
			Description: fd.Description,
			Constraints: base.Constraints,
			Extra:       fd.Extra,
		}
		if fd.Type == string(schema.FieldTypeMultiRelation) {
			return schema.MultiRelation(opts), nil
		}
		return schema.Relation(opts), nil
	default:
		return schema.Field{}, fmt.Errorf("unknown field type %q", fd.Type)
	}
}

func kindOf(def CollectionDef) string {
	if def.Global {
		return "global"
	}
	return "collection"
}
