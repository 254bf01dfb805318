// Package registry holds the collections and globals declared in a process.
// Registration order is kept: it is the order of the exported schema
// document, so snapshots diff cleanly.
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mimsy-cms/mimsy/core/schema"
	"github.com/mimsy-cms/mimsy/core/serializer"
	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

// Registry manages declared collections and globals.
type Registry struct {
	mu     sync.RWMutex
	logger zerolog.Logger

	// entries by name
	entries map[string]*schema.Collection

	// names in registration order
	order []string
}

// New creates an empty registry that reports overwrites to logger.
func New(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		entries: make(map[string]*schema.Collection),
	}
}

// Register adds c as a collection or a global depending on c.IsGlobal.
// Reserved names are rejected before anything changes. Registering a name
// twice logs a warning and replaces the entry in its original position.
func (r *Registry) Register(c *schema.Collection) error {
	if c == nil {
		return fmt.Errorf("register: nil collection")
	}
	if schema.IsReserved(c.Name) {
		return &ReservedNameError{Kind: c.Kind(), Name: c.Name}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[c.Name]; exists {
		r.logger.Warn().
			Str("name", c.Name).
			Str("kind", c.Kind()).
			Msgf("A %s with the name %q is already registered. It will be overwritten.", c.Kind(), c.Name)
	} else {
		r.order = append(r.order, c.Name)
	}
	r.entries[c.Name] = c

	return nil
}

// RegisterCollection registers c as a collection.
func (r *Registry) RegisterCollection(c *schema.Collection) error {
	if c == nil {
		return fmt.Errorf("register: nil collection")
	}
	c.IsGlobal = false
	return r.Register(c)
}

// RegisterGlobal registers c as a global.
func (r *Registry) RegisterGlobal(c *schema.Collection) error {
	if c == nil {
		return fmt.Errorf("register: nil global")
	}
	c.IsGlobal = true
	return r.Register(c)
}

// Collection declares and registers a collection.
func (r *Registry) Collection(name string, s *schema.Schema) (*schema.Collection, error) {
	c := &schema.Collection{Name: name, Schema: s}
	if err := r.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Global declares and registers a global.
func (r *Registry) Global(name string, s *schema.Schema) (*schema.Collection, error) {
	c := &schema.Collection{Name: name, Schema: s, IsGlobal: true}
	if err := r.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a registered entry by name.
func (r *Registry) Get(name string) (*schema.Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.entries[name]
	return c, ok
}

// All returns every entry, collections and globals, in registration order.
func (r *Registry) All() []*schema.Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*schema.Collection, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.entries[name])
	}
	return result
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*schema.Collection)
	r.order = nil
}

// ExportSchema serializes the registry at the current time.
func (r *Registry) ExportSchema() schemadoc.Document {
	return serializer.Export(r.All(), time.Now())
}

// ReservedNameError is returned when a collection or global uses a name the
// content API keeps for itself.
type ReservedNameError struct {
	Kind string
	Name string
}

// Error returns the error message.
func (e *ReservedNameError) Error() string {
	kind := "Collection"
	if e.Kind == "global" {
		kind = "Global"
	}
	return fmt.Sprintf("%s name '%s' is reserved", kind, e.Name)
}

var defaultRegistry = New(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())

// Default returns the process-wide registry used by the package functions.
func Default() *Registry {
	return defaultRegistry
}

// SetLogger changes the logger of the process-wide registry.
func SetLogger(logger zerolog.Logger) {
	r := Default()
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Collection declares a collection in the process-wide registry.
func Collection(name string, s *schema.Schema) (*schema.Collection, error) {
	return Default().Collection(name, s)
}

// MustCollection is like Collection but panics on a reserved name. It is
// meant for package-level declarations.
func MustCollection(name string, s *schema.Schema) *schema.Collection {
	c, err := Collection(name, s)
	if err != nil {
		panic(err)
	}
	return c
}

// Global declares a global in the process-wide registry.
func Global(name string, s *schema.Schema) (*schema.Collection, error) {
	return Default().Global(name, s)
}

// MustGlobal is like Global but panics on a reserved name.
func MustGlobal(name string, s *schema.Schema) *schema.Collection {
	c, err := Global(name, s)
	if err != nil {
		panic(err)
	}
	return c
}

// Get looks up an entry in the process-wide registry.
func Get(name string) (*schema.Collection, bool) {
	return Default().Get(name)
}

// All returns the entries of the process-wide registry.
func All() []*schema.Collection {
	return Default().All()
}

// Clear empties the process-wide registry.
func Clear() {
	Default().Clear()
}

// ExportSchema serializes the process-wide registry.
func ExportSchema() schemadoc.Document {
	return Default().ExportSchema()
}
