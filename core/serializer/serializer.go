// Package serializer projects declared collections into the portable schema
// document. It has no state and never fails: entries it cannot make sense of
// degrade to an empty schema.
package serializer

import (
	"time"

	"github.com/mimsy-cms/mimsy/core/schema"
	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

// TimeFormat is the layout of Document.GeneratedAt.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// Export serializes entries in the given order. The timestamp is captured
// once for the whole document.
func Export(entries []*schema.Collection, at time.Time) schemadoc.Document {
	doc := schemadoc.Document{
		Collections: make([]schemadoc.Collection, 0, len(entries)),
		GeneratedAt: at.UTC().Format(TimeFormat),
	}

	for _, c := range entries {
		if c == nil {
			continue
		}
		doc.Collections = append(doc.Collections, schemadoc.Collection{
			Name:     c.Name,
			Schema:   SerializeSchema(c.Schema),
			IsGlobal: c.IsGlobal,
		})
	}

	return doc
}

// SerializeSchema converts a schema, dropping private fields and fields that
// were not built by a constructor. A nil schema gives an empty mapping.
func SerializeSchema(s *schema.Schema) schemadoc.Fields {
	out := schemadoc.NewFields()
	s.Each(func(name string, f schema.Field) {
		if schema.IsPrivate(name) || !f.Valid() {
			return
		}
		out.Set(name, SerializeField(f))
	})
	return out
}

// SerializeField converts a single field. The relation target is written as
// its name, never as an object.
func SerializeField(f schema.Field) schemadoc.Field {
	out := schemadoc.Field{
		Type:    string(f.Type()),
		Options: f.Options(),
	}
	if target := f.RelatesTo(); target != nil {
		out.RelatesTo = target.TargetName()
	}
	return out
}
