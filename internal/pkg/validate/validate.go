// Package validate provides input validation for API path, query and body parameters.
package validate

import (
	"regexp"
	"strconv"
	"strings"
)

// CompositeSeparator joins namespace and name in pod and deployment ids.
const CompositeSeparator = "::"

// K8s name regex: DNS subdomain (RFC 1123), lowercase alphanumeric, '-' or '.'.
var k8sNameRe = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?(\.[a-z0-9]([-a-z0-9]*[a-z0-9])?)*$`)

var objectIDRe = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Namespace validates a namespace: valid DNS label, 1-63 chars.
func Namespace(ns string) bool {
	if ns == "" || len(ns) > 63 {
		return false
	}
	return k8sNameRe.MatchString(ns) && !strings.Contains(ns, ".")
}

// Name validates resource name: valid DNS subdomain.
func Name(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}
	return k8sNameRe.MatchString(name)
}

// ObjectIDHex reports whether s looks like a 24-hex document key.
func ObjectIDHex(s string) bool {
	return objectIDRe.MatchString(s)
}

// SplitComposite splits "<namespace>::<name>". ok is false unless the split
// yields exactly two non-empty parts.
func SplitComposite(id string) (namespace, name string, ok bool) {
	parts := strings.Split(id, CompositeSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// JoinComposite is the inverse of SplitComposite.
func JoinComposite(namespace, name string) string {
	return namespace + CompositeSeparator + name
}

// PositiveInt parses s as an int >= 1, returning def when s is empty or invalid.
func PositiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Bool parses common truthy strings ("1", "true", "yes"); anything else is false.
func Bool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
