package document

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	fields := map[string]any{"name": "Bail", "price": 20000}

	doc, err := New("b-1", fields, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "b-1" {
		t.Errorf("ID() = %q", doc.ID())
	}
	if doc.Version() != 3 {
		t.Errorf("Version() = %d", doc.Version())
	}
	if v, ok := doc.Field("price"); !ok || v != 20000 {
		t.Errorf("Field(price) = %v, %v", v, ok)
	}
	if doc.Len() != 2 {
		t.Errorf("Len() = %d, want 2", doc.Len())
	}
}

func TestNew_ClonesFields(t *testing.T) {
	fields := map[string]any{"name": "Bail"}

	doc, _ := New("b-1", fields, 0)

	fields["name"] = "mutated"
	if v, _ := doc.Field("name"); v != "Bail" {
		t.Error("field mutation leaked into document")
	}

	out := doc.Fields()
	out["name"] = "mutated"
	if v, _ := doc.Field("name"); v != "Bail" {
		t.Error("Fields() returned the internal map")
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		version int64
		wantErr string
	}{
		{"empty id", "", 0, "required"},
		{"id too long", strings.Repeat("a", MaxIDLength+1), 0, "too long"},
		{"negative version", "x", -1, "version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, nil, tt.version)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestFieldNames_Sorted(t *testing.T) {
	doc := Reconstruct("x", map[string]any{"type": "A", "name": "B", "price": 1}, 0)
	got := strings.Join(doc.FieldNames(), ",")
	if got != "name,price,type" {
		t.Errorf("FieldNames() = %q", got)
	}
}
