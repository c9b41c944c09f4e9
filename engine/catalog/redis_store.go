package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/pkg/logger"
)

const (
	defaultRedisPrefix = "catalog"
	scanBatchSize      = 256
	maxPutAttempts     = 5
)

// RedisStore keeps entities as JSON documents in Redis under
// <prefix>:entity:<kind>:<namespace>/<name>, all lowercase.
type RedisStore struct {
	r      redis.UniversalClient
	prefix string
	closed atomic.Bool
}

var _ Store = (*RedisStore)(nil)

type RedisStoreOption func(*RedisStore)

// WithPrefix sets the key prefix (default "catalog").
func WithPrefix(p string) RedisStoreOption {
	return func(s *RedisStore) {
		if p != "" {
			s.prefix = p
		}
	}
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{r: client, prefix: defaultRedisPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RedisStore) Put(ctx context.Context, e *entity.Entity) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	if s.closed.Load() {
		return "", ErrClosed
	}
	cp, err := prepare(e)
	if err != nil {
		return "", err
	}
	key := s.keyFor(cp.Ref())
	ownUID := cp.Metadata.UID
	var etag string
	put := func(tx *redis.Tx) error {
		storedUID, err := s.storedUID(ctx, tx, key)
		if err != nil {
			return err
		}
		cp.Metadata.UID = ownUID
		etag, err = seal(cp, storedUID)
		if err != nil {
			return err
		}
		bs, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, bs, 0)
			return nil
		})
		return err
	}
	for attempt := 0; ; attempt++ {
		err = s.r.Watch(ctx, put, key)
		if !errors.Is(err, redis.TxFailedErr) || attempt >= maxPutAttempts-1 {
			break
		}
	}
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx).Debug("entity stored", "entity", cp.Ref().String(), "etag", etag)
	return etag, nil
}

// storedUID reads the uid of the document currently stored at key, if any.
func (s *RedisStore) storedUID(ctx context.Context, tx *redis.Tx, key string) (string, error) {
	bs, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	prev, err := decodeStored(bs)
	if err != nil {
		logger.FromContext(ctx).Warn("replacing undecodable entity", "key", key, "error", err)
		return "", nil
	}
	return prev.Metadata.UID, nil
}

func (s *RedisStore) Get(ctx context.Context, ref entity.Ref) (*entity.Entity, string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, "", err
	}
	if s.closed.Load() {
		return nil, "", ErrClosed
	}
	bs, err := s.r.Get(ctx, s.keyFor(ref)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	e, err := decodeStored(bs)
	if err != nil {
		return nil, "", err
	}
	return e, e.Metadata.Etag, nil
}

func (s *RedisStore) Delete(ctx context.Context, ref entity.Ref) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	return s.r.Del(ctx, s.keyFor(ref)).Err()
}

// List walks the keyspace with SCAN and reads the stored documents back to
// recover the original casing of each ref.
func (s *RedisStore) List(ctx context.Context, kind string) ([]entity.Ref, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	log := logger.FromContext(ctx)
	pattern := s.keyspace() + "*"
	if kind != "" {
		pattern = s.keyspace() + strings.ToLower(kind) + ":*"
	}
	refs := make([]entity.Ref, 0, 64)
	var cursor uint64
	for {
		keys, next, err := s.r.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			values, err := s.r.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, err
			}
			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					continue
				}
				e, err := decodeStored([]byte(raw))
				if err != nil {
					log.Warn("skipping undecodable entity", "key", keys[i], "error", err)
					continue
				}
				if ref := e.Ref(); matchesKind(ref, kind) {
					refs = append(refs, ref)
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sortRefs(refs)
	return refs, nil
}

func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.r.Close()
}

func (s *RedisStore) keyspace() string {
	return s.prefix + ":entity:"
}

func (s *RedisStore) keyFor(ref entity.Ref) string {
	return s.keyspace() + ref.Key()
}

func decodeStored(bs []byte) (*entity.Entity, error) {
	var e entity.Entity
	if err := json.Unmarshal(bs, &e); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &e, nil
}
