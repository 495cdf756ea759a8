// Package redact keeps secret values out of API responses and the audit trail.
package redact

import (
	"slices"

	"go.mongodb.org/mongo-driver/bson"
)

// Fields returns a shallow copy of m without the listed keys.
// m itself is never modified.
func Fields(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if slices.Contains(keys, k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Details applies Fields to map-shaped values and returns anything else unchanged.
func Details(v any, keys []string) any {
	switch d := v.(type) {
	case bson.M:
		return Fields(d, keys)
	case map[string]any:
		return Fields(d, keys)
	default:
		return v
	}
}
