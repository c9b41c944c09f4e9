package entity

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/catalog/engine/core"
)

const groupYAML = `apiVersion: backstage.io/v1alpha1
kind: Group
metadata:
  name: team-a
  namespace: platform
  labels:
    tier: core
  owner-hint: infra
spec:
  type: team
  children: []
  members: 3
---
---
apiVersion: backstage.io/v1alpha1
kind: Component
metadata:
  name: billing
spec:
  type: service
  lifecycle: production
  owner: team-a
`

func TestDecodeYAML(t *testing.T) {
	t.Run("Should decode every non-empty document", func(t *testing.T) {
		entities, err := DecodeYAML(strings.NewReader(groupYAML))
		require.NoError(t, err)
		require.Len(t, entities, 2)

		group := entities[0]
		assert.Equal(t, "backstage.io/v1alpha1", group.APIVersion)
		assert.Equal(t, "Group", group.Kind)
		assert.Equal(t, "team-a", group.Metadata.Name)
		assert.Equal(t, "platform", group.Metadata.Namespace)
		assert.Equal(t, map[string]string{"tier": "core"}, group.Metadata.Labels)
		assert.Equal(t, "infra", group.Metadata.Extra["owner-hint"])
		spec, ok := group.SpecMap()
		require.True(t, ok)
		assert.Equal(t, "team", spec["type"])

		assert.Equal(t, "component:default/billing", entities[1].Ref().Key())
	})

	t.Run("Should report the failing document index", func(t *testing.T) {
		_, err := DecodeYAML(strings.NewReader("kind: Group\n---\nkind: [unclosed\n"))
		require.Error(t, err)
		var coded *core.Error
		require.ErrorAs(t, err, &coded)
		assert.Equal(t, ErrCodeDecode, coded.Code)
		assert.Equal(t, 1, coded.Details["document"])
	})
}

func TestEntity_SpecMap(t *testing.T) {
	t.Run("Should report absent spec", func(t *testing.T) {
		_, ok := (&Entity{}).SpecMap()
		assert.False(t, ok)
	})

	t.Run("Should report a scalar spec as not a mapping", func(t *testing.T) {
		_, ok := (&Entity{Spec: "legacy"}).SpecMap()
		assert.False(t, ok)
	})
}

func TestEntity_Document(t *testing.T) {
	t.Run("Should normalize values into JSON types", func(t *testing.T) {
		e := &Entity{
			APIVersion: "backstage.io/v1alpha1",
			Kind:       "User",
			Metadata: Metadata{
				Name:  "jdoe",
				Tags:  []string{"admin"},
				Extra: map[string]any{"links": []any{}},
			},
			Spec: map[string]any{"memberOf": []string{"team-a"}, "level": 3},
		}
		doc, err := e.Document()
		require.NoError(t, err)
		metadata := doc["metadata"].(map[string]any)
		assert.Equal(t, []any{"admin"}, metadata["tags"])
		assert.Equal(t, []any{}, metadata["links"])
		spec := doc["spec"].(map[string]any)
		assert.Equal(t, []any{"team-a"}, spec["memberOf"])
		assert.Equal(t, float64(3), spec["level"])
	})

	t.Run("Should omit an absent spec", func(t *testing.T) {
		doc, err := (&Entity{Kind: "Location", Metadata: Metadata{Name: "root"}}).Document()
		require.NoError(t, err)
		assert.NotContains(t, doc, "spec")
	})
}

func TestEntity_JSON(t *testing.T) {
	t.Run("Should keep extra metadata and relations through a JSON round trip", func(t *testing.T) {
		in := `{"apiVersion":"backstage.io/v1alpha1","kind":"Group","metadata":{"name":"a","custom":true},` +
			`"spec":{"type":"team"},"relations":[{"type":"childOf","targetRef":"group:default/b"}]}`
		var e Entity
		require.NoError(t, json.Unmarshal([]byte(in), &e))
		assert.Equal(t, true, e.Metadata.Extra["custom"])
		require.Len(t, e.Relations, 1)
		assert.Equal(t, "group:default/b", e.Relations[0].Target)

		out, err := json.Marshal(e)
		require.NoError(t, err)
		assert.JSONEq(t, in, string(out))
	})
}

func TestEntity_Clone(t *testing.T) {
	t.Run("Should not share spec with the original", func(t *testing.T) {
		e := &Entity{Kind: "Group", Spec: map[string]any{"children": []any{"x"}}}
		cp, err := e.Clone()
		require.NoError(t, err)
		spec, _ := cp.SpecMap()
		spec["children"] = []any{}
		orig, _ := e.SpecMap()
		assert.Equal(t, []any{"x"}, orig["children"])
	})
}

func TestFromMap(t *testing.T) {
	t.Run("Should reject a nil record", func(t *testing.T) {
		_, err := FromMap(nil)
		require.Error(t, err)
	})

	t.Run("Should reject mistyped metadata", func(t *testing.T) {
		_, err := FromMap(map[string]any{"kind": "Group", "metadata": "oops"})
		var coded *core.Error
		require.ErrorAs(t, err, &coded)
		assert.Equal(t, ErrCodeInvalid, coded.Code)
	})
}
