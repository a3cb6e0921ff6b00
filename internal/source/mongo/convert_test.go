package mongo

import (
	"slices"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dec, err := primitive.ParseDecimal128("10000.50")
	if err != nil {
		t.Fatalf("decimal: %v", err)
	}

	doc, err := toDocument(bson.M{
		"_id":    oid,
		"__v":    int32(3),
		"name":   "Bail",
		"price":  dec,
		"qty":    int32(7),
		"issued": primitive.NewDateTimeFromTime(issued),
		"issuer": bson.D{{Key: "name", Value: "Treasury"}, {Key: "ref", Value: oid}},
		"tags":   bson.A{"gov", int32(1)},
		"note":   primitive.Null{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.ID() != oid.Hex() {
		t.Errorf("ID() = %q, want %q", doc.ID(), oid.Hex())
	}
	if doc.Version() != 3 {
		t.Errorf("Version() = %d, want 3", doc.Version())
	}
	if _, ok := doc.Field("__v"); ok {
		t.Error("version key must not be a field")
	}
	if _, ok := doc.Field("_id"); ok {
		t.Error("_id must not be a field")
	}

	checks := map[string]any{
		"name":  "Bail",
		"price": "10000.50",
		"qty":   int64(7),
	}
	for name, want := range checks {
		if got, _ := doc.Field(name); got != want {
			t.Errorf("%s = %#v, want %#v", name, got, want)
		}
	}
	if got, _ := doc.Field("issued"); got != issued {
		t.Errorf("issued = %#v, want %v", got, issued)
	}
	issuer, _ := doc.Field("issuer")
	if m, ok := issuer.(map[string]any); !ok || m["name"] != "Treasury" || m["ref"] != oid.Hex() {
		t.Errorf("issuer = %#v", issuer)
	}
	tags, _ := doc.Field("tags")
	if a, ok := tags.([]any); !ok || len(a) != 2 || a[1] != int64(1) {
		t.Errorf("tags = %#v", tags)
	}
	if v, ok := doc.Field("note"); !ok || v != nil {
		t.Errorf("note = %#v, want nil", v)
	}
}

func TestToDocument_IDs(t *testing.T) {
	tests := []struct {
		name    string
		id      any
		want    string
		wantErr bool
	}{
		{"string", "b-1", "b-1", false},
		{"int32", int32(42), "42", false},
		{"int64", int64(42), "42", false},
		{"binary", primitive.Binary{Data: []byte{0xab, 0x01}}, "ab01", false},
		{"empty string", "", "", true},
		{"document", bson.M{"a": 1}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := toDocument(bson.M{"_id": tt.id})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.ID() != tt.want {
				t.Errorf("ID() = %q, want %q", doc.ID(), tt.want)
			}
		})
	}

	if _, err := toDocument(bson.M{"name": "x"}); err == nil {
		t.Error("expected error for missing _id")
	}
}

func TestChangedFields(t *testing.T) {
	got := changedFields(
		bson.M{"price": 1, "issuer.name": "x", "issuer.ref": "y", "__v": 4},
		[]string{"notes", "price"},
	)
	slices.Sort(got)
	want := []string{"issuer", "notes", "price"}
	if !slices.Equal(got, want) {
		t.Errorf("changedFields = %v, want %v", got, want)
	}
}
