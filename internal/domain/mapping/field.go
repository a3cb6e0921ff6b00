package mapping

import (
	"fmt"
	"strings"
)

// Type is the cast type of a mapped field.
type Type string

// Field type constants.
const (
	Text     Type = "text"
	Keyword  Type = "keyword"
	Number   Type = "number"
	Date     Type = "date"
	Boolean  Type = "boolean"
	GeoPoint Type = "geo_point"
)

// IsValid checks if the field type is supported.
func (t Type) IsValid() bool {
	switch t {
	case Text, Keyword, Number, Date, Boolean, GeoPoint:
		return true
	}
	return false
}

// Sortable reports whether the engine can sort or aggregate on the raw field.
// Text fields need their keyword sub-field instead.
func (t Type) Sortable() bool {
	return t != Text && t != GeoPoint
}

// KeywordSuffix names the exact-value sub-field of a text field.
const KeywordSuffix = ".keyword"

// MaxFieldNameLength bounds field names.
const MaxFieldNameLength = 128

// Field is an immutable value object describing one mapped field.
type Field struct {
	name      string
	fieldType Type
	analyzer  string
	keyword   bool
	excluded  bool
}

// FieldOption customizes a Field.
type FieldOption func(*Field)

// WithAnalyzer sets the engine analyzer for a text field.
func WithAnalyzer(name string) FieldOption {
	return func(f *Field) { f.analyzer = name }
}

// WithKeyword adds a `<name>.keyword` exact-value sub-field to a text field.
func WithKeyword() FieldOption {
	return func(f *Field) { f.keyword = true }
}

// Excluded keeps the field in the mapping but never emits it in payloads.
func Excluded() FieldOption {
	return func(f *Field) { f.excluded = true }
}

// NewField validates and creates a Field.
// Name must be non-empty, max 128 chars, not start with an underscore and
// not end in ".keyword". Options that only apply to text fields are rejected
// on other types.
func NewField(name string, ft Type, opts ...FieldOption) (Field, error) {
	if err := validateFieldName(name); err != nil {
		return Field{}, err
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	f := Field{name: name, fieldType: ft}
	for _, o := range opts {
		o(&f)
	}
	if ft != Text && (f.keyword || f.analyzer != "") {
		return Field{}, fmt.Errorf("field %q: analyzer and keyword sub-field require type text", name)
	}
	return f, nil
}

// MustField calls NewField and panics on error.
func MustField(name string, ft Type, opts ...FieldOption) Field {
	f, err := NewField(name, ft, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func validateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name is required")
	}
	if len(name) > MaxFieldNameLength {
		return fmt.Errorf("field name %q too long (max %d)", name, MaxFieldNameLength)
	}
	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("field name %q is reserved (leading underscore)", name)
	}
	if strings.HasSuffix(name, KeywordSuffix) {
		return fmt.Errorf("field name %q clashes with keyword sub-field naming", name)
	}
	return nil
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the cast type.
func (f Field) FieldType() Type { return f.fieldType }

// Analyzer returns the text analyzer, empty for the engine default.
func (f Field) Analyzer() string { return f.analyzer }

// HasKeyword reports whether a `.keyword` sub-field is indexed.
func (f Field) HasKeyword() bool { return f.keyword }

// IsExcluded reports whether the field is left out of payloads.
func (f Field) IsExcluded() bool { return f.excluded }

// ComputeFunc derives a value from a read-only copy of the document fields.
// It must be deterministic and free of side effects.
type ComputeFunc func(fields map[string]any) (any, error)

// Computed is a field whose value is derived at serialization time.
type Computed struct {
	name      string
	fieldType Type
	fn        ComputeFunc
}

// NewComputed validates and creates a computed field.
func NewComputed(name string, ft Type, fn ComputeFunc) (Computed, error) {
	if err := validateFieldName(name); err != nil {
		return Computed{}, err
	}
	if !ft.IsValid() {
		return Computed{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	if fn == nil {
		return Computed{}, fmt.Errorf("computed field %q has no function", name)
	}
	return Computed{name: name, fieldType: ft, fn: fn}, nil
}

// Name returns the computed field name.
func (c Computed) Name() string { return c.name }

// FieldType returns the declared result type.
func (c Computed) FieldType() Type { return c.fieldType }
