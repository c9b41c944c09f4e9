package kind

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/pkg/logger"
	"github.com/kaptinlin/jsonschema"
)

// -----------------------------------------------------------------------------
// Validator interface
// -----------------------------------------------------------------------------

// Validator reports whether an entity is a well-formed instance of one
// apiVersion/kind pair. Check never fails: internal problems yield false.
type Validator interface {
	Kind() string
	APIVersion() string
	Check(ctx context.Context, e *entity.Entity) bool
}

// -----------------------------------------------------------------------------
// SchemaValidator
// -----------------------------------------------------------------------------

type SchemaValidator struct {
	apiVersion string
	kind       string
	raw        []byte
	cache      *SchemaCache

	once       sync.Once
	schema     *jsonschema.Schema
	compileErr error
}

var _ Validator = (*SchemaValidator)(nil)

type Option func(*SchemaValidator)

// WithCache compiles the schema through the given cache instead of the
// process-wide one.
func WithCache(cache *SchemaCache) Option {
	return func(v *SchemaValidator) {
		if cache != nil {
			v.cache = cache
		}
	}
}

func NewSchemaValidator(apiVersion, kind string, schema []byte, opts ...Option) *SchemaValidator {
	v := &SchemaValidator{
		apiVersion: apiVersion,
		kind:       kind,
		raw:        append([]byte(nil), schema...),
		cache:      defaultCache,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *SchemaValidator) Kind() string       { return v.kind }
func (v *SchemaValidator) APIVersion() string { return v.apiVersion }

func (v *SchemaValidator) Check(ctx context.Context, e *entity.Entity) bool {
	start := time.Now()
	violations, err := v.evaluate(ctx, e)
	ok := err == nil && len(violations) == 0
	if err != nil {
		logger.FromContext(ctx).Debug("kind check failed", "kind", v.kind, "error", err)
	}
	recordCheck(ctx, v.kind, ok, time.Since(start))
	return ok
}

// Explain returns the schema violations for an entity of this validator's
// kind. It returns nil when the entity is accepted or is of another kind.
func (v *SchemaValidator) Explain(ctx context.Context, e *entity.Entity) []string {
	if !v.matches(e) {
		return nil
	}
	violations, err := v.evaluate(ctx, e)
	if err != nil {
		return []string{err.Error()}
	}
	return violations
}

func (v *SchemaValidator) matches(e *entity.Entity) bool {
	return e != nil && e.APIVersion == v.apiVersion && e.Kind == v.kind
}

func (v *SchemaValidator) compiled(ctx context.Context) (*jsonschema.Schema, error) {
	v.once.Do(func() {
		v.schema, v.compileErr = v.cache.Compile(ctx, v.raw)
	})
	return v.schema, v.compileErr
}

func (v *SchemaValidator) evaluate(ctx context.Context, e *entity.Entity) ([]string, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if !v.matches(e) {
		return []string{fmt.Sprintf("not a %s %s", v.apiVersion, v.kind)}, nil
	}
	schema, err := v.compiled(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := e.Document()
	if err != nil {
		return nil, err
	}
	result := schema.Validate(doc)
	if result.Valid {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors))
	for keyword, evalErr := range result.Errors {
		violations = append(violations, fmt.Sprintf("%s: %s", keyword, evalErr.Error()))
	}
	sort.Strings(violations)
	if len(violations) == 0 {
		violations = append(violations, "entity does not match schema")
	}
	return violations, nil
}

// -----------------------------------------------------------------------------
// Set
// -----------------------------------------------------------------------------

// Set is an immutable ordered collection of validators.
type Set struct {
	validators []Validator
}

// NewSet keeps the given order. Nil validators, including typed nil
// pointers, are dropped.
func NewSet(validators ...Validator) *Set {
	list := make([]Validator, 0, len(validators))
	for _, v := range validators {
		if !isNil(v) {
			list = append(list, v)
		}
	}
	return &Set{validators: list}
}

func isNil(v Validator) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Any evaluates validators in registration order and stops at the first
// acceptance. An empty set accepts nothing.
func (s *Set) Any(ctx context.Context, e *entity.Entity) bool {
	_, ok := s.Matching(ctx, e)
	return ok
}

func (s *Set) Matching(ctx context.Context, e *entity.Entity) (Validator, bool) {
	if s == nil {
		return nil, false
	}
	for _, v := range s.validators {
		if v.Check(ctx, e) {
			return v, true
		}
	}
	return nil, false
}

// Explain collects the violations reported by validators declared for the
// entity's apiVersion and kind.
func (s *Set) Explain(ctx context.Context, e *entity.Entity) []string {
	if s == nil || e == nil {
		return nil
	}
	var out []string
	for _, v := range s.validators {
		if v.APIVersion() != e.APIVersion || v.Kind() != e.Kind {
			continue
		}
		if explainer, ok := v.(interface {
			Explain(context.Context, *entity.Entity) []string
		}); ok {
			out = append(out, explainer.Explain(ctx, e)...)
		}
	}
	return out
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.validators)
}

func (s *Set) Validators() []Validator {
	if s == nil {
		return nil
	}
	return append([]Validator(nil), s.validators...)
}
