package syncdex

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	domdoc "github.com/kailas-cloud/syncdex/internal/domain/document"
	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

const tagKey = "syncdex"

var timeType = reflect.TypeFor[time.Time]()

// schemaMeta holds parsed struct tag metadata, cached per Model.
type schemaMeta struct {
	typ    reflect.Type // struct type for reconstruction
	idIdx  int
	fields []schemaField
}

type schemaField struct {
	structIdx int
	name      string
	fieldType mapping.Type
	keyword   bool
	excluded  bool
	analyzer  string
}

// parseSchema reflects on T and extracts syncdex struct tag metadata.
//
// Tag grammar: `syncdex:"name[,type][,keyword][,exclude][,analyzer=<name>]"`
// and `syncdex:"name,id"` for the store identifier. A missing type is
// inferred from the Go type. "keyword" after "text" adds a keyword sub-field;
// on its own it is the keyword type.
func parseSchema[T any]() (*schemaMeta, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("syncdex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("syncdex: tagged field %s is unexported", f.Name)
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("syncdex: no field with `syncdex:\"...,id\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's syncdex tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	parts := strings.Split(tag, ",")
	sf := schemaField{structIdx: idx, name: parts[0]}
	if sf.name == "" {
		sf.name = f.Name
	}

	for _, p := range parts[1:] {
		switch {
		case p == "id":
			if meta.idIdx != -1 {
				return fmt.Errorf("syncdex: duplicate id tag on field %s", f.Name)
			}
			if !isIDKind(f.Type.Kind()) {
				return fmt.Errorf("syncdex: id field %s must be a string or an integer", f.Name)
			}
			meta.idIdx = idx
			return nil
		case p == "keyword" && sf.fieldType == mapping.Text:
			sf.keyword = true
		case p == "exclude":
			sf.excluded = true
		case strings.HasPrefix(p, "analyzer="):
			sf.analyzer = strings.TrimPrefix(p, "analyzer=")
		case mapping.Type(p).IsValid():
			if sf.fieldType != "" {
				return fmt.Errorf("syncdex: field %s names two types (%s, %s)", f.Name, sf.fieldType, p)
			}
			sf.fieldType = mapping.Type(p)
		default:
			return fmt.Errorf("syncdex: unknown tag option %q on field %s", p, f.Name)
		}
	}

	if sf.fieldType == "" {
		ft, ok := inferType(f.Type)
		if !ok {
			return fmt.Errorf("syncdex: cannot infer index type of field %s (%s), name it in the tag", f.Name, f.Type)
		}
		sf.fieldType = ft
	}
	meta.fields = append(meta.fields, sf)
	return nil
}

func isIDKind(k reflect.Kind) bool {
	switch k {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func inferType(t reflect.Type) (mapping.Type, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return mapping.Date, true
	}
	switch t.Kind() {
	case reflect.String:
		return mapping.Text, true
	case reflect.Bool:
		return mapping.Boolean, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return mapping.Number, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "", false
		}
		return inferType(t.Elem())
	}
	return "", false
}

// mappingFields builds the index mapping fields in declaration order.
func (m *schemaMeta) mappingFields() ([]mapping.Field, error) {
	out := make([]mapping.Field, 0, len(m.fields))
	for _, sf := range m.fields {
		var opts []mapping.FieldOption
		if sf.keyword {
			opts = append(opts, mapping.WithKeyword())
		}
		if sf.excluded {
			opts = append(opts, mapping.Excluded())
		}
		if sf.analyzer != "" {
			opts = append(opts, mapping.WithAnalyzer(sf.analyzer))
		}
		f, err := mapping.NewField(sf.name, sf.fieldType, opts...)
		if err != nil {
			return nil, fmt.Errorf("syncdex: field %s: %w", sf.name, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// id returns the store identifier of item.
func (m *schemaMeta) id(item any) string {
	return fmt.Sprint(structValue(item).Field(m.idIdx).Interface())
}

// toDocument converts a typed struct to a store snapshot. Nil pointers are
// left out so the mapper omits them.
func (m *schemaMeta) toDocument(item any, version int64) (domdoc.Document, error) {
	v := structValue(item)
	fields := make(map[string]any, len(m.fields))
	for _, sf := range m.fields {
		fv := v.Field(sf.structIdx)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		fields[sf.name] = fv.Interface()
	}
	return domdoc.New(m.id(item), fields, version)
}

// fromSource rebuilds a typed struct from an index hit.
func (m *schemaMeta) fromSource(id string, source map[string]any) (any, error) {
	v := reflect.New(m.typ).Elem()

	if err := setID(v.Field(m.idIdx), id); err != nil {
		return nil, fmt.Errorf("syncdex: id %q: %w", id, err)
	}
	for _, sf := range m.fields {
		raw, ok := source[sf.name]
		if !ok || raw == nil {
			continue
		}
		if err := assign(v.Field(sf.structIdx), raw); err != nil {
			return nil, fmt.Errorf("syncdex: field %q: %w", sf.name, err)
		}
	}
	return v.Interface(), nil
}

func structValue(item any) reflect.Value {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}

func setID(dst reflect.Value, id string) error {
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(id)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(id, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetInt(n)
	default:
		n, err := strconv.ParseUint(id, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetUint(n)
	}
	return nil
}

// assign stores a projected source value (string, int64, float64, bool,
// map or slice) into dst, converting where the Go type asks for it.
func assign(dst reflect.Value, v any) error {
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}

	if dst.Type() == timeType {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cannot use %T as time", v)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(ts))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		if s, ok := v.(string); ok {
			dst.SetString(s)
			return nil
		}
		dst.SetString(fmt.Sprint(v))
		return nil
	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot use %T as bool", v)
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch n := v.(type) {
		case int64:
			dst.SetInt(n)
			return nil
		case float64:
			if n == float64(int64(n)) {
				dst.SetInt(int64(n))
				return nil
			}
		}
		return fmt.Errorf("cannot use %v (%T) as %s", v, v, dst.Type())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := v.(int64); ok && n >= 0 {
			dst.SetUint(uint64(n))
			return nil
		}
		return fmt.Errorf("cannot use %v (%T) as %s", v, v, dst.Type())
	case reflect.Float32, reflect.Float64:
		switch n := v.(type) {
		case int64:
			dst.SetFloat(float64(n))
			return nil
		case float64:
			dst.SetFloat(n)
			return nil
		}
		return fmt.Errorf("cannot use %v (%T) as %s", v, v, dst.Type())
	}

	// Structs, maps and slices go through their JSON form.
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst.Addr().Interface())
}
