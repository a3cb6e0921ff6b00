package mongo

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/syncdex/internal/domain/document"
)

// VersionKey is the mongoose document version field. It becomes the
// document version and is not indexed.
const VersionKey = "__v"

// toDocument converts a decoded MongoDB document into an indexable snapshot.
// _id becomes the document id; ObjectIDs are rendered as hex.
func toDocument(raw bson.M) (document.Document, error) {
	rawID, ok := raw["_id"]
	if !ok {
		return document.Document{}, fmt.Errorf("document without _id")
	}
	id, err := idString(rawID)
	if err != nil {
		return document.Document{}, err
	}

	fields := make(map[string]any, len(raw))
	var version int64
	for k, v := range raw {
		switch k {
		case "_id":
			continue
		case VersionKey:
			if n, ok := toInt64(v); ok && n >= 0 {
				version = n
			}
			continue
		}
		fields[k] = plain(v)
	}
	return document.New(id, fields, version)
}

func idString(v any) (string, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	case int32, int64, float64:
		return fmt.Sprint(id), nil
	case primitive.Binary:
		return fmt.Sprintf("%x", id.Data), nil
	default:
		return "", fmt.Errorf("unsupported _id type %T", v)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// plain converts BSON values into the plain Go values the mapper casts.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return int64(t.T)
	case primitive.Decimal128:
		return t.String()
	case int32:
		return int64(t)
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}

// changedFields reduces an update description to top-level field names.
func changedFields(updated bson.M, removed []string) []string {
	seen := make(map[string]struct{}, len(updated)+len(removed))
	var out []string
	add := func(path string) {
		top, _, _ := strings.Cut(path, ".")
		if top == VersionKey {
			return
		}
		if _, dup := seen[top]; !dup {
			seen[top] = struct{}{}
			out = append(out, top)
		}
	}
	for k := range updated {
		add(k)
	}
	for _, k := range removed {
		add(k)
	}
	return out
}
