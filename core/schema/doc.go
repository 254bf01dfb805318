/*
Package schema defines the content-model declaration types: fields,
collections, globals and the builtin relation targets.

A collection is a named set of typed fields. Declaration code builds the
fields with the constructors in this package and hands the resulting Schema
to the registry:

	tags := registry.MustCollection("tags", schema.NewSchema(
		schema.F("name", schema.ShortString(schema.StringOptions{
			Description: "The name of the tag",
			Constraints: schema.StringConstraints{MinLength: schema.Ptr(2), MaxLength: schema.Ptr(50)},
		})),
	))

	registry.MustCollection("posts", schema.NewSchema(
		schema.F("title", schema.ShortString()),
		schema.F("author", schema.Relation(schema.RelationOptions{RelatesTo: schema.User})),
		schema.F("tags", schema.MultiRelation(schema.RelationOptions{RelatesTo: tags})),
		schema.F("cover", schema.MediaField()),
		schema.F("_draft", schema.Checkbox()),
	))

# Field Types

  - string:         short text (ShortString)
  - rich_text:      formatted text (RichText)
  - checkbox:       boolean (Checkbox)
  - date_time:      timestamp (DateTime)
  - date:           calendar date (Date)
  - number:         numeric value (Number)
  - email:          email address (Email)
  - relation:       reference to one collection or builtin (Relation, MediaField)
  - multi_relation: reference to many (MultiRelation)

# Private Fields

Field names starting with an underscore are private. They stay in the live
Schema but are never exported to the schema document.

# Builtins

User and Media are fixed relation targets served by the content API itself.
They are not collections and are never registered. IsBuiltin reports whether
a value is one of them; a Builtin cannot be forged with a struct literal.

# Reserved Names

The names user, media, collection, cron_locks, session and sync_status belong
to the content API and cannot be used for collections or globals.
*/
package schema
