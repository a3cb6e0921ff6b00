package db

import (
	"strconv"
	"strings"
)

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, Shards: 1}}
}

// Shards sets the primary shard count.
func (b *IndexBuilder) Shards(n int) *IndexBuilder {
	b.def.Shards = n
	return b
}

// Replicas sets the replica count.
func (b *IndexBuilder) Replicas(n int) *IndexBuilder {
	b.def.Replicas = n
	return b
}

// Dynamic lets the engine index unmapped fields.
func (b *IndexBuilder) Dynamic() *IndexBuilder {
	b.def.Dynamic = true
	return b
}

// Text adds an analyzed text field.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldText})
}

// TextWithOpts adds a text field with an analyzer and optional keyword sub-field.
func (b *IndexBuilder) TextWithOpts(name, analyzer string, keyword bool) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldText, Analyzer: analyzer, Keyword: keyword})
}

// Keyword adds an exact-value field.
func (b *IndexBuilder) Keyword(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldKeyword})
}

// Double adds a numeric field.
func (b *IndexBuilder) Double(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldDouble})
}

// Date adds a date field.
func (b *IndexBuilder) Date(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldDate})
}

// Boolean adds a boolean field.
func (b *IndexBuilder) Boolean(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldBoolean})
}

// GeoPoint adds a lat/lon field.
func (b *IndexBuilder) GeoPoint(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldGeoPoint})
}

// Field adds a pre-built field.
func (b *IndexBuilder) Field(f IndexField) *IndexBuilder {
	return b.add(f)
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	def.Fields = append([]IndexField(nil), b.def.Fields...)
	return &def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a compact debug representation of the mapping.
func (idx *IndexDefinition) String() string {
	parts := []string{"INDEX", idx.Name, "shards=" + strconv.Itoa(idx.Shards), "replicas=" + strconv.Itoa(idx.Replicas)}
	if idx.Dynamic {
		parts = append(parts, "DYNAMIC")
	}
	parts = append(parts, "FIELDS")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		p := f.Name + ":" + string(f.Type)
		if f.Analyzer != "" {
			p += "(" + f.Analyzer + ")"
		}
		if f.Keyword {
			p += "+keyword"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
