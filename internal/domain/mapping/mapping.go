package mapping

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/jinzhu/inflection"
)

// Always-known pseudo fields usable in sort and term clauses.
const (
	FieldID    = "_id"
	FieldScore = "_score"
)

// MaxFields bounds mapped plus computed fields per collection.
const MaxFields = 256

var indexNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Mapping describes which document fields are indexed and how (immutable value object).
type Mapping struct {
	collection string
	index      string
	fields     []Field
	byName     map[string]int
	computed   []Computed
	includeAll bool
}

// Option customizes a Mapping.
type Option func(*Mapping)

// WithIndexName overrides the derived index name.
func WithIndexName(name string) Option {
	return func(m *Mapping) { m.index = name }
}

// WithComputed adds computed fields evaluated after mapped fields.
func WithComputed(c ...Computed) Option {
	return func(m *Mapping) { m.computed = append(m.computed, c...) }
}

// IncludeAll emits every document field, mapped or not.
// Unmapped values are passed through untouched.
func IncludeAll() Option {
	return func(m *Mapping) { m.includeAll = true }
}

// New validates and creates a Mapping for a store collection.
func New(collection string, fields []Field, opts ...Option) (Mapping, error) {
	if collection == "" {
		return Mapping{}, fmt.Errorf("collection name is required")
	}
	m := Mapping{
		collection: collection,
		fields:     slices.Clone(fields),
		byName:     make(map[string]int, len(fields)),
	}
	for _, o := range opts {
		o(&m)
	}
	if m.index == "" {
		m.index = IndexName(collection)
	}
	if !indexNameRegex.MatchString(m.index) {
		return Mapping{}, fmt.Errorf("invalid index name %q", m.index)
	}
	if len(m.fields)+len(m.computed) > MaxFields {
		return Mapping{}, fmt.Errorf("too many fields (max %d)", MaxFields)
	}
	if len(m.fields) == 0 && len(m.computed) == 0 && !m.includeAll {
		return Mapping{}, fmt.Errorf("mapping for %q has no fields", collection)
	}
	for i, f := range m.fields {
		if _, dup := m.byName[f.Name()]; dup {
			return Mapping{}, fmt.Errorf("duplicate field name: %s", f.Name())
		}
		m.byName[f.Name()] = i
	}
	for _, c := range m.computed {
		if _, dup := m.byName[c.Name()]; dup {
			return Mapping{}, fmt.Errorf("computed field %q shadows a mapped field", c.Name())
		}
	}
	return m, nil
}

// IndexName derives the index name for a collection: the lower-cased English
// plural of its name (Bond -> bonds, Category -> categories).
func IndexName(collection string) string {
	return strings.ToLower(inflection.Plural(collection))
}

// Collection returns the store collection name.
func (m Mapping) Collection() string { return m.collection }

// IndexName returns the engine index name.
func (m Mapping) IndexName() string { return m.index }

// Fields returns mapped fields in declaration order.
func (m Mapping) Fields() []Field { return m.fields }

// Computed returns the computed fields.
func (m Mapping) Computed() []Computed { return m.computed }

// IncludesAll reports whether unmapped fields are emitted too.
func (m Mapping) IncludesAll() bool { return m.includeAll }

// Field looks up a mapped field by name.
func (m Mapping) Field(name string) (Field, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// Touches reports whether an update that changed the given top-level fields
// can alter the indexed payload. An empty list means "unknown" and counts as
// touching. Computed fields and include-all mappings always count.
func (m Mapping) Touches(changed []string) bool {
	if len(changed) == 0 || m.includeAll || len(m.computed) > 0 {
		return true
	}
	for _, name := range changed {
		if f, ok := m.Field(name); ok && !f.IsExcluded() {
			return true
		}
	}
	return false
}

// KnownFields lists every name valid in sort and aggregation requests.
func (m Mapping) KnownFields() []string {
	out := []string{FieldID, FieldScore}
	for _, f := range m.fields {
		if f.IsExcluded() {
			continue
		}
		out = append(out, f.Name())
		if f.HasKeyword() {
			out = append(out, f.Name()+KeywordSuffix)
		}
	}
	for _, c := range m.computed {
		out = append(out, c.Name())
	}
	return out
}

// IsKnown reports whether name is a valid sort/aggregation target.
// Include-all mappings accept any name.
func (m Mapping) IsKnown(name string) bool {
	if m.includeAll {
		return true
	}
	return slices.Contains(m.KnownFields(), name)
}
