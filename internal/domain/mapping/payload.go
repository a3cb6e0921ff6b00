package mapping

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/document"
)

// ToIndexPayload serializes a document snapshot into the indexed payload.
//
// Mapped fields are cast to their declared types; excluded and nil fields are
// omitted. With IncludeAll, unmapped fields are passed through except store
// metadata (leading underscore). Computed fields run last on a deep copy of
// the document fields.
func ToIndexPayload(doc document.Document, m Mapping) (map[string]any, error) {
	fields := doc.Fields()
	out := make(map[string]any, len(m.fields)+len(m.computed))

	if m.includeAll {
		for name, v := range fields {
			if v == nil || strings.HasPrefix(name, "_") {
				continue
			}
			if _, mapped := m.Field(name); mapped {
				continue
			}
			out[name] = v
		}
	}

	for _, f := range m.fields {
		if f.IsExcluded() {
			continue
		}
		v, ok := fields[f.Name()]
		if !ok || v == nil {
			continue
		}
		cv, err := Cast(f.Name(), f.FieldType(), v)
		if err != nil {
			return nil, err
		}
		if cv != nil {
			out[f.Name()] = cv
		}
	}

	for _, c := range m.computed {
		v, err := c.fn(deepCopy(fields).(map[string]any))
		if err != nil {
			return nil, fmt.Errorf("%w: computed field %q: %v", domain.ErrValidation, c.Name(), err)
		}
		cv, err := Cast(c.Name(), c.FieldType(), v)
		if err != nil {
			return nil, err
		}
		if cv != nil {
			out[c.Name()] = cv
		}
	}

	return out, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = deepCopy(e)
		}
		return c
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = deepCopy(e)
		}
		return c
	default:
		return v
	}
}
