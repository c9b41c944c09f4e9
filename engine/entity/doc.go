// Package entity defines the catalog Entity record and the codecs that move it
// between YAML, JSON, and the canonical map form consumed by kind validators.
//
// An entity is identified by its Ref (kind, namespace, name). The Spec field
// is kept as an untyped value so records whose spec is not a mapping can still
// be represented and rejected later by kind schemas.
package entity
