package schemadoc

import (
	"bytes"
	"fmt"
)

// ChangeKind identifies a difference between two documents.
type ChangeKind string

const (
	CollectionAdded       ChangeKind = "collection_added"
	CollectionRemoved     ChangeKind = "collection_removed"
	CollectionKindChanged ChangeKind = "collection_kind_changed"
	FieldAdded            ChangeKind = "field_added"
	FieldRemoved          ChangeKind = "field_removed"
	FieldTypeChanged      ChangeKind = "field_type_changed"
	FieldRelationChanged  ChangeKind = "field_relation_changed"
	FieldOptionsChanged   ChangeKind = "field_options_changed"
)

// Change is one difference. Field is empty for collection-level changes.
type Change struct {
	Kind       ChangeKind
	Collection string
	Field      string
	Old        string
	New        string
}

func (c Change) String() string {
	target := c.Collection
	if c.Field != "" {
		target = c.Collection + "." + c.Field
	}
	switch {
	case c.Old != "" && c.New != "":
		return fmt.Sprintf("%s %s: %s -> %s", c.Kind, target, c.Old, c.New)
	case c.New != "":
		return fmt.Sprintf("%s %s (%s)", c.Kind, target, c.New)
	case c.Old != "":
		return fmt.Sprintf("%s %s (%s)", c.Kind, target, c.Old)
	default:
		return fmt.Sprintf("%s %s", c.Kind, target)
	}
}

// Diff lists the changes that turn old into new. Changes follow the order of
// new, with removals from old last.
func Diff(old, new Document) []Change {
	var changes []Change

	for _, nc := range new.Collections {
		oc := old.GetCollection(nc.Name)
		if oc == nil {
			changes = append(changes, Change{Kind: CollectionAdded, Collection: nc.Name, New: kindOf(nc)})
			continue
		}
		if oc.IsGlobal != nc.IsGlobal {
			changes = append(changes, Change{
				Kind:       CollectionKindChanged,
				Collection: nc.Name,
				Old:        kindOf(*oc),
				New:        kindOf(nc),
			})
		}
		changes = append(changes, diffFields(nc.Name, oc.Schema, nc.Schema)...)
	}

	for _, oc := range old.Collections {
		if new.GetCollection(oc.Name) == nil {
			changes = append(changes, Change{Kind: CollectionRemoved, Collection: oc.Name, Old: kindOf(oc)})
		}
	}

	return changes
}

func diffFields(collection string, old, new Fields) []Change {
	var changes []Change

	new.Each(func(name string, nf Field) {
		of, ok := old.Get(name)
		if !ok {
			changes = append(changes, Change{Kind: FieldAdded, Collection: collection, Field: name, New: nf.Type})
			return
		}
		if of.Type != nf.Type {
			changes = append(changes, Change{Kind: FieldTypeChanged, Collection: collection, Field: name, Old: of.Type, New: nf.Type})
		}
		if of.RelatesTo != nf.RelatesTo {
			changes = append(changes, Change{Kind: FieldRelationChanged, Collection: collection, Field: name, Old: of.RelatesTo, New: nf.RelatesTo})
		}
		if !optionsEqual(of.Options, nf.Options) {
			changes = append(changes, Change{Kind: FieldOptionsChanged, Collection: collection, Field: name})
		}
	})

	old.Each(func(name string, of Field) {
		if !new.Has(name) {
			changes = append(changes, Change{Kind: FieldRemoved, Collection: collection, Field: name, Old: of.Type})
		}
	})

	return changes
}

// optionsEqual compares through JSON so that 5 and 5.0 (in-memory versus
// decoded numbers) are the same value.
func optionsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ea, errA := encode(a)
	eb, errB := encode(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

func kindOf(c Collection) string {
	if c.IsGlobal {
		return "global"
	}
	return "collection"
}
