// Package record turns raw content API records into values shaped by a
// collection schema.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mimsy-cms/mimsy/core/schema"
)

const (
	// MissingID is the id of a relation whose "<field>_id" key is absent.
	MissingID = "undefined"

	// UnsupportedValue replaces multi_relation values, which are not
	// rehydrated.
	UnsupportedValue = "Unsupported type"
)

// Record is a processed record keyed by field name.
type Record map[string]any

// UnfetchedRelation points at a related record that has not been loaded.
type UnfetchedRelation struct {
	Target schema.Target
	ID     string
}

// HasID reports whether the raw record carried an id for the relation.
func (u UnfetchedRelation) HasID() bool {
	return u.ID != "" && u.ID != MissingID
}

// MarshalJSON writes the relation as {"_collection": <target>, "id": <id>}.
func (u UnfetchedRelation) MarshalJSON() ([]byte, error) {
	var target string
	if u.Target != nil {
		target = u.Target.TargetName()
	}
	return json.Marshal(struct {
		Collection string `json:"_collection"`
		ID         string `json:"id"`
	}{target, u.ID})
}

// PostProcess builds a Record from raw following the fields of c.
//
// A relation field f reads raw[f+"_id"] and becomes an UnfetchedRelation.
// A multi_relation field becomes UnsupportedValue. Every other field is
// copied unchanged, and absent keys give nil entries. Private fields are
// skipped, as they are on export.
func PostProcess(c *schema.Collection, raw map[string]any) Record {
	out := Record{}
	if c == nil {
		return out
	}

	c.Schema.Each(func(name string, f schema.Field) {
		if schema.IsPrivate(name) {
			return
		}
		switch f.Type() {
		case schema.FieldTypeMultiRelation:
			out[name] = UnsupportedValue
		case schema.FieldTypeRelation:
			out[name] = UnfetchedRelation{
				Target: f.RelatesTo(),
				ID:     relationID(raw[name+"_id"]),
			}
		default:
			out[name] = raw[name]
		}
	})

	return out
}

// Relations returns the unfetched relations of r in field order of c.
func Relations(c *schema.Collection, r Record) []UnfetchedRelation {
	if c == nil {
		return nil
	}
	var out []UnfetchedRelation
	for _, name := range c.Schema.Names() {
		if rel, ok := r[name].(UnfetchedRelation); ok {
			out = append(out, rel)
		}
	}
	return out
}

func relationID(v any) string {
	switch id := v.(type) {
	case nil:
		return MissingID
	case string:
		if id == "" {
			return MissingID
		}
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	default:
		return fmt.Sprint(id)
	}
}

// ID is a record id. The API sends ids as numbers or strings; both decode to
// the string form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*id = ""
	case string:
		*id = ID(v)
	case json.Number:
		*id = ID(v.String())
	default:
		return fmt.Errorf("id must be a string or a number, got %T", v)
	}
	return nil
}

// User is a record of the user builtin.
type User struct {
	ID        ID        `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Media is a record of the media builtin.
type Media struct {
	ID           ID        `json:"id"`
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
	Size         int64     `json:"size"`
	UploadedByID ID        `json:"uploaded_by_id"`
	URL          string    `json:"url"`
}
