package processor

import (
	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/engine/kind"
)

const legacyGroupKind = "Group"

// Normalize backfills spec.ancestors and spec.descendants on v1alpha1 Group
// entities written before those fields became required. Either field that is
// absent or null is set to an empty list; any present value is kept as is.
// Every other entity is returned untouched.
//
// The entity is updated in place and the same pointer is returned.
//
// Deprecated: kept only until stored Group records carry both fields.
func (p *BuiltinKindsProcessor) Normalize(e *entity.Entity) *entity.Entity {
	if e == nil || e.APIVersion != kind.APIVersionV1alpha1 || e.Kind != legacyGroupKind {
		return e
	}
	spec, ok := e.SpecMap()
	if !ok || spec == nil {
		return e
	}
	for _, field := range []string{"ancestors", "descendants"} {
		if spec[field] == nil {
			spec[field] = []any{}
		}
	}
	return e
}
