package entity

import (
	"fmt"
	"strings"
)

// DefaultNamespace is assumed when an entity or ref omits its namespace.
const DefaultNamespace = "default"

// Ref identifies an entity by kind, namespace, and name.
type Ref struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// NewRef builds a Ref, filling in the default namespace.
func NewRef(kind, namespace, name string) Ref {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Ref{Kind: kind, Namespace: namespace, Name: name}
}

// ParseRef parses "kind:namespace/name" or "kind:name".
func ParseRef(s string) (Ref, error) {
	kind, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || kind == "" || rest == "" {
		return Ref{}, fmt.Errorf("invalid entity ref %q: expected kind:[namespace/]name", s)
	}
	namespace, name, hasNamespace := strings.Cut(rest, "/")
	if !hasNamespace {
		name, namespace = namespace, ""
	}
	if name == "" || strings.Contains(name, "/") || (hasNamespace && namespace == "") {
		return Ref{}, fmt.Errorf("invalid entity ref %q: expected kind:[namespace/]name", s)
	}
	return NewRef(kind, namespace, name), nil
}

// String renders the ref as kind:namespace/name.
func (r Ref) String() string {
	namespace := r.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return fmt.Sprintf("%s:%s/%s", r.Kind, namespace, r.Name)
}

// Key is the case-insensitive identity used for storage and deduplication.
func (r Ref) Key() string {
	return strings.ToLower(r.String())
}
