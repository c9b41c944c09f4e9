package kind

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/catalog/engine/entity"
)

func newEntity(kind string, spec any) *entity.Entity {
	return &entity.Entity{
		APIVersion: APIVersionV1alpha1,
		Kind:       kind,
		Metadata:   entity.Metadata{Name: "sample"},
		Spec:       spec,
	}
}

type stubValidator struct {
	kind   string
	accept bool
	calls  int
}

func (s *stubValidator) Kind() string       { return s.kind }
func (s *stubValidator) APIVersion() string { return APIVersionV1alpha1 }
func (s *stubValidator) Check(context.Context, *entity.Entity) bool {
	s.calls++
	return s.accept
}

func TestSet(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reject everything when empty", func(t *testing.T) {
		set := NewSet()
		assert.False(t, set.Any(ctx, newEntity("Group", map[string]any{})))
		assert.False(t, set.Any(ctx, nil))
		assert.Equal(t, 0, set.Len())
	})

	t.Run("Should treat a nil set as empty", func(t *testing.T) {
		var set *Set
		assert.False(t, set.Any(ctx, newEntity("Group", nil)))
	})

	t.Run("Should stop at the first accepting validator", func(t *testing.T) {
		first := &stubValidator{kind: "A"}
		second := &stubValidator{kind: "B", accept: true}
		third := &stubValidator{kind: "C", accept: true}
		set := NewSet(first, second, third)
		v, ok := set.Matching(ctx, newEntity("B", nil))
		require.True(t, ok)
		assert.Equal(t, "B", v.Kind())
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
		assert.Equal(t, 0, third.calls)
	})

	t.Run("Should not be affected by changes to the source slice", func(t *testing.T) {
		validators := []Validator{&stubValidator{kind: "A"}}
		set := NewSet(validators...)
		validators[0] = &stubValidator{kind: "Z", accept: true}
		assert.False(t, set.Any(ctx, newEntity("Z", nil)))
		assert.Equal(t, "A", set.Validators()[0].Kind())
	})

	t.Run("Should drop typed nil validators", func(t *testing.T) {
		var missing *SchemaValidator
		var stub *stubValidator
		set := NewSet(missing, &stubValidator{kind: "A", accept: true}, stub, nil)
		assert.Equal(t, 1, set.Len())
		assert.NotPanics(t, func() {
			assert.True(t, set.Any(ctx, newEntity("A", nil)))
		})
	})
}

func TestSchemaValidator(t *testing.T) {
	ctx := context.Background()
	schema := []byte(`{
		"type": "object",
		"required": ["spec"],
		"properties": {
			"kind": {"const": "Widget"},
			"spec": {"type": "object", "required": ["size"]}
		}
	}`)

	t.Run("Should accept a matching entity", func(t *testing.T) {
		v := NewSchemaValidator(APIVersionV1alpha1, "Widget", schema)
		assert.True(t, v.Check(ctx, newEntity("Widget", map[string]any{"size": 2})))
		assert.Empty(t, v.Explain(ctx, newEntity("Widget", map[string]any{"size": 2})))
	})

	t.Run("Should reject entities of another kind or version", func(t *testing.T) {
		v := NewSchemaValidator(APIVersionV1alpha1, "Widget", schema)
		assert.False(t, v.Check(ctx, newEntity("Gadget", map[string]any{"size": 2})))
		other := newEntity("Widget", map[string]any{"size": 2})
		other.APIVersion = "example.com/v2"
		assert.False(t, v.Check(ctx, other))
		assert.Nil(t, v.Explain(ctx, other))
	})

	t.Run("Should reject an entity that breaks the schema", func(t *testing.T) {
		v := NewSchemaValidator(APIVersionV1alpha1, "Widget", schema)
		e := newEntity("Widget", map[string]any{})
		assert.False(t, v.Check(ctx, e))
		assert.NotEmpty(t, v.Explain(ctx, e))
	})

	t.Run("Should reject a nil entity", func(t *testing.T) {
		v := NewSchemaValidator(APIVersionV1alpha1, "Widget", schema)
		assert.False(t, v.Check(ctx, nil))
	})

	t.Run("Should return false when the schema does not compile", func(t *testing.T) {
		v := NewSchemaValidator(APIVersionV1alpha1, "Widget", []byte(`{not json`))
		assert.False(t, v.Check(ctx, newEntity("Widget", map[string]any{"size": 1})))
	})

	t.Run("Should return false on a canceled context", func(t *testing.T) {
		v := NewSchemaValidator(APIVersionV1alpha1, "Widget", schema)
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.False(t, v.Check(canceled, newEntity("Widget", map[string]any{"size": 1})))
	})

	t.Run("Should share compiled schemas through the cache", func(t *testing.T) {
		cache, err := NewSchemaCache(4)
		require.NoError(t, err)
		a := NewSchemaValidator(APIVersionV1alpha1, "Widget", schema, WithCache(cache))
		b := NewSchemaValidator(APIVersionV1alpha1, "Widget", schema, WithCache(cache))
		e := newEntity("Widget", map[string]any{"size": 1})
		assert.True(t, a.Check(ctx, e))
		assert.True(t, b.Check(ctx, e))
		assert.Equal(t, 1, cache.Len())
	})
}

func TestSet_ConcurrentAny(t *testing.T) {
	ctx := context.Background()
	schema := []byte(`{"type": "object", "properties": {"spec": {"type": "object", "required": ["size"]}}}`)

	t.Run("Should give the same answers from concurrent callers", func(t *testing.T) {
		custom := NewSet(
			NewSchemaValidator(APIVersionV1alpha1, "Widget", schema),
			NewSchemaValidator(APIVersionV1alpha1, "Gadget", schema),
		)
		group := map[string]any{"type": "team", "children": []any{}, "ancestors": []any{}, "descendants": []any{}}
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.True(t, custom.Any(ctx, newEntity("Widget", map[string]any{"size": i})))
				assert.False(t, custom.Any(ctx, newEntity("Gadget", map[string]any{})))
				assert.False(t, custom.Any(ctx, newEntity("Group", group)))
				assert.True(t, Builtin().Any(ctx, newEntity("Group", group)))
				assert.False(t, Builtin().Any(ctx, newEntity("Group", map[string]any{"type": "team"})))
				assert.False(t, Builtin().Any(ctx, newEntity("Widget", map[string]any{"size": i})))
			}()
		}
		wg.Wait()
	})
}
