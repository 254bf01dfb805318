package schema

// Wire names of the builtin relation targets.
const (
	UserBuiltinName  = "<builtins.user>"
	MediaBuiltinName = "<builtins.media>"
)

// builtinMarker is only reachable from this package, so a Builtin built
// with a struct literal elsewhere never passes IsBuiltin.
type builtinMarker struct{ _ byte }

var builtinSentinel = &builtinMarker{}

// Builtin is a pseudo-collection owned by the content API itself. It can be
// used as a relation target but has no declared schema.
type Builtin struct {
	marker *builtinMarker
	name   string
}

var (
	// User is the builtin account type.
	User = &Builtin{marker: builtinSentinel, name: UserBuiltinName}

	// Media is the builtin uploaded-file type.
	Media = &Builtin{marker: builtinSentinel, name: MediaBuiltinName}
)

// NewBuiltin declares an additional builtin target. The HTTP client only
// knows how to fetch User and Media; relations to anything else fail with
// an unknown builtin error.
//
// A value from NewBuiltin passes IsBuiltin, so the marker only rules out
// struct literals and look-alike values, not callers of this function.
// Prefer User and Media; declare new builtins only for targets the content
// API serves itself.
func NewBuiltin(name string) *Builtin {
	return &Builtin{marker: builtinSentinel, name: name}
}

// Name returns the stable identifier used in the schema document.
func (b *Builtin) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// TargetName implements Target.
func (b *Builtin) TargetName() string {
	return b.Name()
}

func (*Builtin) target() {}

// IsBuiltin reports whether v is a builtin created by this package.
func IsBuiltin(v any) bool {
	b, ok := v.(*Builtin)
	return ok && b != nil && b.marker == builtinSentinel
}

// BuiltinByName resolves the declaration names ("User", "Media") and the wire
// names ("<builtins.user>", "<builtins.media>") to the builtin values.
func BuiltinByName(name string) (*Builtin, bool) {
	switch name {
	case "User", UserBuiltinName:
		return User, true
	case "Media", MediaBuiltinName:
		return Media, true
	default:
		return nil, false
	}
}
