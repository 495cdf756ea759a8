// Package resource declares how each document-backed resource is keyed,
// sorted, defaulted and shaped for API responses.
package resource

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/chatadmin/admin-console/internal/repository"
)

// Key field names.
const (
	KeyNative       = "_id"
	KeyConversation = "conversationId"
	KeyAgent        = "id"
)

// Hook runs against the store before a write. doc is mutable.
type Hook func(ctx context.Context, store repository.Store, doc bson.M) error

// UpdateHook receives the current document and the $set patch; patch is mutable.
type UpdateHook func(ctx context.Context, store repository.Store, current, patch bson.M) error

type Hooks struct {
	BeforeCreate Hook
	BeforeUpdate UpdateHook
	// BeforeDelete receives the snapshot about to be removed; an error blocks the delete.
	BeforeDelete Hook
}

// Descriptor is the declarative definition of one resource.
type Descriptor struct {
	// Name is the route segment, e.g. "convos". It is also the audit resource label.
	Name string
	// Kind is the singular noun used in messages.
	Kind       string
	Collection string
	// KeyField selects the public id: KeyNative, KeyConversation or KeyAgent.
	KeyField     string
	DefaultSort  string
	DefaultOrder string // "asc" or "desc"
	// Defaults returns fields applied to a new document when absent.
	Defaults    func() bson.M
	UniqueField string
	Required    []string
	// Timestamps maintains createdAt and updatedAt.
	Timestamps bool
	// ObjectIDFields are stored as ObjectIDs when the client sends a 24-hex string.
	ObjectIDFields []string
	// Redact lists fields never returned to clients.
	Redact []string
	// FilterParams are query parameters applied as equality filters on list.
	FilterParams []string
	// ReadOnly resources accept list, get and delete only.
	ReadOnly bool
	// Unaudited resources never emit audit records.
	Unaudited bool
	Hooks     Hooks
}

// Registry holds descriptors by route name.
type Registry struct {
	byName map[string]Descriptor
}

func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{byName: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		r.byName[d.Name] = d
	}
	return r
}

func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns descriptors sorted by name.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
