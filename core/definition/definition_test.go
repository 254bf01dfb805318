package definition

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mimsy-cms/mimsy/core/registry"
	"github.com/mimsy-cms/mimsy/core/schema"
	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

const blogYAML = `
collections:
  - name: posts
    fields:
      title: { type: string, label: Title, constraints: { required: true, maxLength: 120 } }
      author: { type: relation, relatesTo: User }
      tags: { type: multi_relation, relatesTo: tags }
      parent: { type: relation, relatesTo: posts }
      cover: { type: media, placeholder: "Pick an image" }
      views: { type: number, constraints: { min: 0 } }
      _draft: { type: checkbox }
  - name: tags
    fields:
      name: { type: string, description: The name, constraints: { minLength: 2, maxLength: 50 } }
  - name: settings
    global: true
    fields:
      siteTitle: { type: string }
`

func newRegistry() *registry.Registry {
	return registry.New(zerolog.Nop())
}

func TestLoadBytes(t *testing.T) {
	r := newRegistry()

	collections, err := LoadBytes(r, []byte(blogYAML))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	if len(collections) != 3 {
		t.Fatalf("len(collections) = %d, want 3", len(collections))
	}

	var names []string
	for _, c := range r.All() {
		names = append(names, c.Name)
	}
	if want := []string{"posts", "tags", "settings"}; !reflect.DeepEqual(names, want) {
		t.Errorf("registry order = %v, want %v", names, want)
	}

	posts, _ := r.Get("posts")
	wantFields := []string{"title", "author", "tags", "parent", "cover", "views", "_draft"}
	if got := posts.Schema.Names(); !reflect.DeepEqual(got, wantFields) {
		t.Errorf("posts fields = %v, want %v", got, wantFields)
	}

	settings, _ := r.Get("settings")
	if !settings.IsGlobal {
		t.Error("settings should be a global")
	}
}

func TestLoadBytesResolvesTargets(t *testing.T) {
	r := newRegistry()
	if _, err := LoadBytes(r, []byte(blogYAML)); err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	posts, _ := r.Get("posts")
	tags, _ := r.Get("tags")

	tests := []struct {
		field string
		want  schema.Target
	}{
		{"author", schema.User},
		{"tags", tags},
		{"parent", posts},
		{"cover", schema.Media},
	}
	for _, tt := range tests {
		f, _ := posts.Schema.Get(tt.field)
		if f.RelatesTo() != tt.want {
			t.Errorf("%s relates to %v, want %v", tt.field, f.RelatesTo(), tt.want)
		}
	}
}

func TestLoadBytesFieldOptions(t *testing.T) {
	r := newRegistry()
	if _, err := LoadBytes(r, []byte(blogYAML)); err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	posts, _ := r.Get("posts")
	title, _ := posts.Schema.Get("title")
	if !title.IsRequired() || title.Label() != "Title" {
		t.Errorf("title = %+v", title.Options())
	}
	sc, ok := title.Constraints().(schema.StringConstraints)
	if !ok || sc.MaxLength == nil || *sc.MaxLength != 120 {
		t.Errorf("title constraints = %#v", title.Constraints())
	}

	cover, _ := posts.Schema.Get("cover")
	if cover.Type() != schema.FieldTypeRelation {
		t.Errorf("cover type = %s, want relation", cover.Type())
	}
	if cover.Extra()["placeholder"] != "Pick an image" {
		t.Errorf("cover extra = %v", cover.Extra())
	}

	views, _ := posts.Schema.Get("views")
	nc, ok := views.Constraints().(schema.NumberConstraints)
	if !ok || nc.Min == nil || *nc.Min != 0 {
		t.Errorf("views constraints = %#v", views.Constraints())
	}
}

func TestLoadBytesJSON(t *testing.T) {
	r := newRegistry()
	input := `{"collections": [{"name": "pages", "fields": {"slug": {"type": "string"}, "body": {"type": "rich_text"}}}]}`

	if _, err := LoadBytes(r, []byte(input)); err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	pages, ok := r.Get("pages")
	if !ok {
		t.Fatal("pages not registered")
	}
	if got := pages.Schema.Names(); !reflect.DeepEqual(got, []string{"slug", "body"}) {
		t.Errorf("fields = %v", got)
	}
}

func TestLoadBytesRelatesToRegistry(t *testing.T) {
	r := newRegistry()
	authors, _ := r.Collection("authors", schema.NewSchema())

	_, err := LoadBytes(r, []byte(`
collections:
  - name: books
    fields:
      author: { type: relation, relatesTo: authors }
`))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	books, _ := r.Get("books")
	f, _ := books.Schema.Get("author")
	if f.RelatesTo() != authors {
		t.Error("author should relate to the registered collection")
	}
}

func TestExtraOptionsWithNonStringKeysExport(t *testing.T) {
	r := newRegistry()
	_, err := LoadBytes(r, []byte(`
collections:
  - name: posts
    fields:
      title: { type: string, widget: { 1: a, rows: [ { 2: b } ] } }
`))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	posts, _ := r.Get("posts")
	f, _ := posts.Schema.Get("title")
	want := map[string]any{"1": "a", "rows": []any{map[string]any{"2": "b"}}}
	if got := f.Extra()["widget"]; !reflect.DeepEqual(got, want) {
		t.Errorf("widget = %#v, want %#v", got, want)
	}

	data, err := schemadoc.Marshal(r.ExportSchema(), false)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"widget":{"1":"a","rows":[{"2":"b"}]}`) {
		t.Errorf("export = %s", data)
	}
}

func TestLocalCollectionShadowsBuiltinName(t *testing.T) {
	r := newRegistry()
	_, err := LoadBytes(r, []byte(`
collections:
  - name: User
    fields:
      handle: { type: string }
  - name: posts
    fields:
      owner: { type: relation, relatesTo: User }
      account: { type: relation, relatesTo: "<builtins.user>" }
`))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	local, _ := r.Get("User")
	posts, _ := r.Get("posts")
	if f, _ := posts.Schema.Get("owner"); f.RelatesTo() != local {
		t.Errorf("owner relates to %v, want the declared User collection", f.RelatesTo())
	}
	if f, _ := posts.Schema.Get("account"); f.RelatesTo() != schema.User {
		t.Errorf("account relates to %v, want the builtin", f.RelatesTo())
	}
}

func TestValidationCollectsProblems(t *testing.T) {
	input := `
collections:
  - name: "2bad"
    fields:
      a: { type: strng }
      b: { type: relation }
      c: { type: checkbox, relatesTo: User }
      d: { type: number, constraints: { minLength: 3, min: 5, max: 1 } }
      e: { type: string, constraints: { minLength: 9, maxLength: 2 } }
  - fields:
      x: { type: date }
`
	r := newRegistry()
	_, err := LoadBytes(r, []byte(input))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("LoadBytes() error = %v, want ValidationError", err)
	}

	wantFragments := []string{
		`"2bad" is not a valid identifier`,
		`unknown field type "strng"`,
		"relation field requires relatesTo",
		"relatesTo is not allowed on checkbox fields",
		"minLength and maxLength are only allowed on string fields",
		"min 5 is greater than max 1",
		"minLength 9 is greater than maxLength 2",
		"collections[1].name is required",
	}
	msg := err.Error()
	for _, frag := range wantFragments {
		if !strings.Contains(msg, frag) {
			t.Errorf("error missing %q:\n%s", frag, msg)
		}
	}
	if !strings.HasPrefix(msg, "validation errors:\n  - ") {
		t.Errorf("unexpected message format:\n%s", msg)
	}
	if r.Len() != 0 {
		t.Error("nothing should be registered on validation failure")
	}
}

func TestUnresolvedTarget(t *testing.T) {
	r := newRegistry()
	_, err := LoadBytes(r, []byte(`
collections:
  - name: ok
    fields:
      a: { type: string }
  - name: posts
    fields:
      owner: { type: relation, relatesTo: people }
`))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if !strings.Contains(err.Error(), `posts.owner: relatesTo "people" does not name a collection or builtin`) {
		t.Errorf("unexpected message: %v", err)
	}
	if r.Len() != 0 {
		t.Error("nothing should be registered when a target is unresolved")
	}
}

func TestDuplicateDeclarations(t *testing.T) {
	_, err := LoadBytes(newRegistry(), []byte(`
collections:
  - name: posts
    fields:
      a: { type: string }
      a: { type: number }
  - name: posts
    fields: {}
`))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestReservedNamePropagates(t *testing.T) {
	r := newRegistry()
	_, err := LoadBytes(r, []byte(`
collections:
  - name: posts
    fields: {}
  - name: media
    global: true
    fields: {}
`))

	var reserved *registry.ReservedNameError
	if !errors.As(err, &reserved) {
		t.Fatalf("error = %v, want ReservedNameError", err)
	}
	if err.Error() != "Global name 'media' is reserved" {
		t.Errorf("Error() = %q", err.Error())
	}
	if r.Len() != 0 {
		t.Error("nothing should be registered when a name is reserved")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("collections: [")); err == nil {
		t.Error("invalid yaml should fail")
	}
	if _, err := Parse([]byte("collections:\n  - name: x\n    fields: [a, b]\n")); err == nil {
		t.Error("fields as a sequence should fail")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	write("a_authors.yaml", "collections:\n  - name: authors\n    fields:\n      name: { type: string }\n")
	write("b_books.yml", "collections:\n  - name: books\n    fields:\n      author: { type: relation, relatesTo: authors }\n")
	write("nested/c_pages.json", `{"collections": [{"name": "pages", "fields": {}}]}`)
	write("notes.txt", "not a definition")

	r := newRegistry()
	collections, err := LoadDir(r, dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(collections) != 3 {
		t.Errorf("len(collections) = %d, want 3", len(collections))
	}
	if _, ok := r.Get("pages"); !ok {
		t.Error("nested file should be loaded")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(newRegistry(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail on a missing file")
	}
}
