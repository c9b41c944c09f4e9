package processor

import (
	"context"

	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/engine/kind"
)

// BuiltinKindsProcessor recognizes the kinds the catalog ships with.
type BuiltinKindsProcessor struct {
	validators *kind.Set
}

var _ Processor = (*BuiltinKindsProcessor)(nil)

func NewBuiltinKindsProcessor() *BuiltinKindsProcessor {
	return NewKindsProcessor(kind.Builtin())
}

// NewKindsProcessor builds a processor over an arbitrary validator set. A nil
// set accepts nothing.
func NewKindsProcessor(validators *kind.Set) *BuiltinKindsProcessor {
	if validators == nil {
		validators = kind.NewSet()
	}
	return &BuiltinKindsProcessor{validators: validators}
}

func (p *BuiltinKindsProcessor) Validators() *kind.Set {
	return p.validators
}

func (p *BuiltinKindsProcessor) PreProcessEntity(_ context.Context, e *entity.Entity) (*entity.Entity, error) {
	return p.Normalize(e), nil
}

func (p *BuiltinKindsProcessor) ValidateEntityKind(ctx context.Context, e *entity.Entity) (bool, error) {
	return p.ValidateKind(ctx, e), nil
}

// ValidateKind reports whether any validator accepts the entity, checking
// them in order and stopping at the first match.
func (p *BuiltinKindsProcessor) ValidateKind(ctx context.Context, e *entity.Entity) bool {
	return p.validators.Any(ctx, e)
}
