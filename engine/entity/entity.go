package entity

import (
	"fmt"
	"maps"

	"github.com/goccy/go-json"

	"github.com/compozy/catalog/engine/core"
)

// Entity is a catalog record tagged with an apiVersion and kind.
type Entity struct {
	APIVersion string     `mapstructure:"apiVersion"`
	Kind       string     `mapstructure:"kind"`
	Metadata   Metadata   `mapstructure:"metadata"`
	Spec       any        `mapstructure:"spec"`
	Relations  []Relation `mapstructure:"relations"`
}

// Metadata holds the common entity metadata. Keys without a dedicated field
// are kept in Extra and written back on encode.
type Metadata struct {
	Name        string            `mapstructure:"name"`
	Namespace   string            `mapstructure:"namespace"`
	UID         string            `mapstructure:"uid"`
	Etag        string            `mapstructure:"etag"`
	Title       string            `mapstructure:"title"`
	Description string            `mapstructure:"description"`
	Labels      map[string]string `mapstructure:"labels"`
	Annotations map[string]string `mapstructure:"annotations"`
	Tags        []string          `mapstructure:"tags"`
	Extra       map[string]any    `mapstructure:",remain"`
}

// Relation is a directed edge from the entity to another entity.
type Relation struct {
	Type   string `mapstructure:"type"`
	Target string `mapstructure:"targetRef"`
}

// SpecMap returns the spec as a mapping. ok is false when the spec is absent
// or has any other shape.
func (e *Entity) SpecMap() (map[string]any, bool) {
	if e == nil || e.Spec == nil {
		return nil, false
	}
	m, ok := e.Spec.(map[string]any)
	return m, ok
}

// Ref returns the reference identifying e.
func (e *Entity) Ref() Ref {
	return NewRef(e.Kind, e.Metadata.Namespace, e.Metadata.Name)
}

// Object returns the map form of e. Values are shared with e, not copied.
func (e *Entity) Object() map[string]any {
	obj := map[string]any{
		"apiVersion": e.APIVersion,
		"kind":       e.Kind,
		"metadata":   e.Metadata.object(),
	}
	if e.Spec != nil {
		obj["spec"] = e.Spec
	}
	if len(e.Relations) > 0 {
		relations := make([]any, 0, len(e.Relations))
		for _, r := range e.Relations {
			relations = append(relations, map[string]any{"type": r.Type, "targetRef": r.Target})
		}
		obj["relations"] = relations
	}
	return obj
}

// Document returns the JSON-normalized map form of e: numbers become float64,
// typed maps and slices become map[string]any and []any.
func (e *Entity) Document() (map[string]any, error) {
	bs, err := json.Marshal(e.Object())
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(bs, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode entity document: %w", err)
	}
	return doc, nil
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() (*Entity, error) {
	if e == nil {
		return nil, nil
	}
	cp, err := core.DeepCopy(e)
	if err != nil {
		return nil, fmt.Errorf("failed to clone entity %s: %w", e.Ref(), err)
	}
	return cp, nil
}

func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Object())
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromMap(raw)
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}

func (m *Metadata) object() map[string]any {
	out := make(map[string]any, len(m.Extra)+9)
	maps.Copy(out, m.Extra)
	out["name"] = m.Name
	setString(out, "namespace", m.Namespace)
	setString(out, "uid", m.UID)
	setString(out, "etag", m.Etag)
	setString(out, "title", m.Title)
	setString(out, "description", m.Description)
	if len(m.Labels) > 0 {
		out["labels"] = stringMap(m.Labels)
	}
	if len(m.Annotations) > 0 {
		out["annotations"] = stringMap(m.Annotations)
	}
	if len(m.Tags) > 0 {
		tags := make([]any, len(m.Tags))
		for i, t := range m.Tags {
			tags[i] = t
		}
		out["tags"] = tags
	}
	return out
}

func setString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func stringMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
