package processor

import (
	"context"

	"github.com/compozy/catalog/engine/entity"
)

// Processor is a step of the ingestion pipeline.
//
// PreProcessEntity may rewrite the entity before validation and returns the
// entity to continue with. ValidateEntityKind reports whether the processor
// recognizes the entity's kind; false means "not mine", not "invalid".
type Processor interface {
	PreProcessEntity(ctx context.Context, e *entity.Entity) (*entity.Entity, error)
	ValidateEntityKind(ctx context.Context, e *entity.Entity) (bool, error)
}
