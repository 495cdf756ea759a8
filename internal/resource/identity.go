package resource

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/pkg/redact"
	"github.com/chatadmin/admin-console/internal/pkg/validate"
)

// NativeIDString stringifies a store-native key.
func NativeIDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// PublicID returns the id a client uses to address doc.
// Application keys fall back to the native key when absent.
func PublicID(d Descriptor, doc bson.M) string {
	native := NativeIDString(doc["_id"])
	if d.KeyField == KeyNative || d.KeyField == "" {
		return native
	}
	if s, ok := doc[d.KeyField].(string); ok && s != "" {
		return s
	}
	return native
}

// Normalize shapes a stored document for a response: redacted fields are
// dropped, _id is stringified and id carries the public key.
func Normalize(d Descriptor, doc bson.M) map[string]any {
	out := redact.Fields(doc, d.Redact)
	out["_id"] = NativeIDString(doc["_id"])
	out["id"] = PublicID(d, doc)
	return out
}

// NormalizeAll applies Normalize to every document.
func NormalizeAll(d Descriptor, docs []bson.M) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Normalize(d, doc))
	}
	return out
}

// NativeFilter matches a native key given as a hex ObjectID or a raw string.
func NativeFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

// FilterForID is the inverse of PublicID. For application keys, a hex id also
// matches the native key so the fallback id round-trips.
func FilterForID(d Descriptor, id string) bson.M {
	if d.KeyField == KeyNative || d.KeyField == "" {
		return NativeFilter(id)
	}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$or": []bson.M{{d.KeyField: id}, {"_id": oid}}}
	}
	return bson.M{d.KeyField: id}
}

// ParseCompositeID splits a "<namespace>::<name>" pod or deployment id.
func ParseCompositeID(id string) (namespace, name string, err error) {
	ns, n, ok := validate.SplitComposite(id)
	if !ok {
		return "", "", apperr.Validation("invalid id %q: expected <namespace>::<name>", id)
	}
	return ns, n, nil
}

// CoerceObjectIDs converts 24-hex string values of d.ObjectIDFields to ObjectIDs in place.
func CoerceObjectIDs(d Descriptor, doc bson.M) {
	for _, f := range d.ObjectIDFields {
		s, ok := doc[f].(string)
		if !ok {
			continue
		}
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			doc[f] = oid
		}
	}
}
