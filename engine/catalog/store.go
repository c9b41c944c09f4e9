package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/compozy/catalog/engine/core"
	"github.com/compozy/catalog/engine/entity"
)

// Store persists accepted entities keyed by their case-insensitive reference.
// Implementations must be safe for concurrent use and must not share entity
// values with callers.
type Store interface {
	// Put inserts or replaces an entity and returns its ETag. A missing
	// metadata.uid reuses the uid already stored under the same ref, or a new
	// one is assigned. metadata.etag is overwritten.
	Put(ctx context.Context, e *entity.Entity) (etag string, err error)

	// Get returns a copy of the stored entity or ErrNotFound.
	Get(ctx context.Context, ref entity.Ref) (*entity.Entity, string, error)

	// Delete removes an entity. Deleting a missing entity is not an error.
	Delete(ctx context.Context, ref entity.Ref) error

	// List returns the refs of stored entities of a kind, sorted by key. An
	// empty kind lists everything.
	List(ctx context.Context, kind string) ([]entity.Ref, error)

	Close() error
}

var (
	ErrNotFound = errors.New("entity not found")
	ErrClosed   = errors.New("store is closed")
)

// prepare validates e and returns the copy that gets stored. The copy still
// needs seal before it is written.
func prepare(e *entity.Entity) (*entity.Entity, error) {
	if e == nil {
		return nil, fmt.Errorf("nil entity is not allowed")
	}
	if e.Metadata.Name == "" || e.Kind == "" {
		return nil, fmt.Errorf("entity kind and metadata.name are required")
	}
	cp, err := e.Clone()
	if err != nil {
		return nil, fmt.Errorf("deep copy failed: %w", err)
	}
	return cp, nil
}

// seal sets the uid and etag of cp. An entity without a uid keeps the one
// already stored under its ref so re-ingestion does not change identity.
func seal(cp *entity.Entity, storedUID string) (string, error) {
	switch {
	case cp.Metadata.UID != "":
	case storedUID != "":
		cp.Metadata.UID = storedUID
	default:
		cp.Metadata.UID = uuid.NewString()
	}
	cp.Metadata.Etag = ""
	etag, err := core.ETagFromAny(cp.Object())
	if err != nil {
		return "", err
	}
	cp.Metadata.Etag = etag
	return etag, nil
}

func matchesKind(ref entity.Ref, kind string) bool {
	return kind == "" || strings.EqualFold(ref.Kind, kind)
}

func sortRefs(refs []entity.Ref) {
	slices.SortFunc(refs, func(a, b entity.Ref) int {
		return strings.Compare(a.Key(), b.Key())
	})
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	return nil
}
