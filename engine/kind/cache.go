package kind

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/catalog/engine/core"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaptinlin/jsonschema"
)

const DefaultCacheSize = 64

var defaultCache = mustSchemaCache(DefaultCacheSize)

// SchemaCache keeps compiled schemas keyed by the hash of their source.
type SchemaCache struct {
	cache *lru.Cache[string, *jsonschema.Schema]
}

func NewSchemaCache(size int) (*SchemaCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *jsonschema.Schema](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}
	return &SchemaCache{cache: cache}, nil
}

func mustSchemaCache(size int) *SchemaCache {
	cache, err := NewSchemaCache(size)
	if err != nil {
		panic(err)
	}
	return cache
}

func (c *SchemaCache) Compile(ctx context.Context, raw []byte) (*jsonschema.Schema, error) {
	key := core.ETagFromBytes(raw)
	if schema, ok := c.cache.Get(key); ok {
		recordCompile(ctx, 0, true)
		return schema, nil
	}
	start := time.Now()
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	c.cache.Add(key, schema)
	recordCompile(ctx, time.Since(start), false)
	return schema, nil
}

func (c *SchemaCache) Len() int {
	return c.cache.Len()
}
