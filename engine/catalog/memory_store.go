package catalog

import (
	"context"
	"sync"

	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/pkg/logger"
)

// MemoryStore keeps entities in process memory. It backs dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]storedEntity
	closed bool
}

type storedEntity struct {
	entity *entity.Entity
	etag   string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]storedEntity)}
}

func (s *MemoryStore) Put(ctx context.Context, e *entity.Entity) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	cp, err := prepare(e)
	if err != nil {
		return "", err
	}
	key := cp.Ref().Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	var storedUID string
	if prev, ok := s.items[key]; ok {
		storedUID = prev.entity.Metadata.UID
	}
	etag, err := seal(cp, storedUID)
	if err != nil {
		return "", err
	}
	s.items[key] = storedEntity{entity: cp, etag: etag}
	logger.FromContext(ctx).Debug("entity stored", "entity", cp.Ref().String(), "etag", etag)
	return etag, nil
}

func (s *MemoryStore) Get(ctx context.Context, ref entity.Ref) (*entity.Entity, string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, "", ErrClosed
	}
	stored, ok := s.items[ref.Key()]
	if !ok {
		return nil, "", ErrNotFound
	}
	cp, err := stored.entity.Clone()
	if err != nil {
		return nil, "", err
	}
	return cp, stored.etag, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ref entity.Ref) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.items, ref.Key())
	return nil
}

func (s *MemoryStore) List(ctx context.Context, kind string) ([]entity.Ref, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	refs := make([]entity.Ref, 0, len(s.items))
	for _, stored := range s.items {
		if ref := stored.entity.Ref(); matchesKind(ref, kind) {
			refs = append(refs, ref)
		}
	}
	sortRefs(refs)
	return refs, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
