package entity

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/compozy/catalog/engine/core"
)

const (
	ErrCodeDecode  = "ENTITY_DECODE_FAILED"
	ErrCodeInvalid = "INVALID_ENTITY"
)

// FromMap decodes a raw record into an Entity. Unknown metadata keys are
// preserved; unknown top-level keys are ignored.
func FromMap(raw map[string]any) (*Entity, error) {
	if raw == nil {
		return nil, core.NewError(errors.New("entity is empty"), ErrCodeInvalid, nil)
	}
	var e Entity
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &e,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build entity decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, core.NewError(err, ErrCodeInvalid, map[string]any{
			"kind": raw["kind"],
		})
	}
	return &e, nil
}

// DecodeYAML reads every document in r. Empty documents are skipped.
func DecodeYAML(r io.Reader) ([]*Entity, error) {
	dec := yaml.NewDecoder(r)
	var out []*Entity
	for index := 0; ; index++ {
		var raw map[string]any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, core.NewError(err, ErrCodeDecode, map[string]any{"document": index})
		}
		if raw == nil {
			continue
		}
		e, err := FromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", index, err)
		}
		out = append(out, e)
	}
}

// DecodeJSON reads a single JSON entity from r.
func DecodeJSON(r io.Reader) (*Entity, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, core.NewError(err, ErrCodeDecode, nil)
	}
	return FromMap(raw)
}
