package models

import "go.mongodb.org/mongo-driver/bson"

// Role names every deployment ships with.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// PermissionSchema is the fixed capability tree of a role, grouped by feature area.
// Every flag not supplied by a client defaults to false.
var PermissionSchema = map[string][]string{
	"BOOKMARKS":      {"USE"},
	"PROMPTS":        {"SHARED_GLOBAL", "USE", "CREATE"},
	"MEMORIES":       {"USE", "CREATE", "UPDATE", "READ", "OPT_OUT"},
	"AGENTS":         {"SHARED_GLOBAL", "USE", "CREATE"},
	"MULTI_CONVO":    {"USE"},
	"TEMPORARY_CHAT": {"USE"},
	"RUN_CODE":       {"USE"},
	"WEB_SEARCH":     {"USE"},
	"PEOPLE_PICKER":  {"VIEW_USERS", "VIEW_GROUPS", "VIEW_ROLES"},
	"MARKETPLACE":    {"USE"},
	"FILE_SEARCH":    {"USE"},
	"FILE_CITATIONS": {"USE"},
}

// Permissions is the nested area -> capability -> enabled tree.
type Permissions map[string]map[string]bool

// DefaultPermissions returns the full schema with every capability disabled.
func DefaultPermissions() Permissions {
	p := make(Permissions, len(PermissionSchema))
	for area, caps := range PermissionSchema {
		p[area] = make(map[string]bool, len(caps))
		for _, c := range caps {
			p[area][c] = false
		}
	}
	return p
}

// MergePermissions overlays the boolean flags found in raw (a decoded JSON
// object or stored document) on top of the all-false defaults.
func MergePermissions(raw map[string]any) Permissions {
	return DefaultPermissions().Overlay(raw)
}

// Overlay sets the flags found in raw on p and returns p. Unknown areas,
// unknown capabilities and non-boolean values are ignored.
func (p Permissions) Overlay(raw map[string]any) Permissions {
	for area, v := range raw {
		caps, ok := p[area]
		if !ok {
			continue
		}
		flags, ok := asObject(v)
		if !ok {
			continue
		}
		for c, fv := range flags {
			if _, known := caps[c]; !known {
				continue
			}
			if b, ok := fv.(bool); ok {
				caps[c] = b
			}
		}
	}
	return p
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case bson.M:
		return m, true
	}
	return nil, false
}

// ToDocument converts the tree into the generic document form stored by the repository.
func (p Permissions) ToDocument() map[string]any {
	out := make(map[string]any, len(p))
	for area, caps := range p {
		m := make(map[string]any, len(caps))
		for c, b := range caps {
			m[c] = b
		}
		out[area] = m
	}
	return out
}
