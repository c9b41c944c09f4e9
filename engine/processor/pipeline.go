package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/catalog/engine/core"
	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/engine/kind"
	"github.com/compozy/catalog/pkg/logger"
)

const (
	ErrCodeUnknownKind     = "UNKNOWN_KIND"
	ErrCodeProcessorFailed = "PROCESSOR_FAILED"
)

var ErrUnknownKind = errors.New("no processor recognizes the entity kind")

// Pipeline runs processors over an entity and decides whether it is accepted.
type Pipeline struct {
	processors []Processor
	envelope   *entity.EnvelopeValidator
}

func NewPipeline(processors ...Processor) *Pipeline {
	return &Pipeline{
		processors: append([]Processor(nil), processors...),
		envelope:   entity.NewEnvelopeValidator(),
	}
}

// DefaultPipeline returns a pipeline with only the built-in kinds.
func DefaultPipeline() *Pipeline {
	return NewPipeline(NewBuiltinKindsProcessor())
}

// Process pre-processes e with every processor in order, checks the common
// envelope and then asks the processors whether the kind is known. The first
// processor that accepts the entity ends the search.
func (p *Pipeline) Process(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	if e == nil {
		return nil, core.NewError(errors.New("entity is nil"), entity.ErrCodeInvalid, nil)
	}
	log := logger.FromContext(ctx)
	current := e
	for i, proc := range p.processors {
		next, err := proc.PreProcessEntity(ctx, current)
		if err != nil {
			return nil, p.processorError(err, i, current)
		}
		if next != nil {
			current = next
		}
	}
	if err := p.envelope.Validate(current); err != nil {
		return nil, err
	}
	for i, proc := range p.processors {
		ok, err := proc.ValidateEntityKind(ctx, current)
		if err != nil {
			return nil, p.processorError(err, i, current)
		}
		if ok {
			log.Debug("entity accepted", "entity", current.Ref().String(), "processor", i)
			return current, nil
		}
	}
	details := map[string]any{
		"entity":     current.Ref().String(),
		"apiVersion": current.APIVersion,
		"kind":       current.Kind,
	}
	if violations := p.explain(ctx, current); len(violations) > 0 {
		details["violations"] = violations
	}
	return nil, core.NewError(
		fmt.Errorf("%w: %s %s", ErrUnknownKind, current.APIVersion, current.Kind),
		ErrCodeUnknownKind,
		details,
	)
}

func (p *Pipeline) explain(ctx context.Context, e *entity.Entity) []string {
	var out []string
	for _, proc := range p.processors {
		if source, ok := proc.(interface{ Validators() *kind.Set }); ok {
			out = append(out, source.Validators().Explain(ctx, e)...)
		}
	}
	return out
}

func (p *Pipeline) processorError(err error, index int, e *entity.Entity) error {
	var coded *core.Error
	if errors.As(err, &coded) {
		return coded
	}
	return core.NewError(err, ErrCodeProcessorFailed, map[string]any{
		"entity":    e.Ref().String(),
		"processor": fmt.Sprintf("%T", p.processors[index]),
	})
}
