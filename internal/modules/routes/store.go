// README: Selection stores: Redis for deployments, in-memory for tests and local runs.
package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"saferoute/internal/types"
)

const selectionKeyPrefix = "routes:selection:"

// RedisStore keeps each selection as a JSON document with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func selectionKey(id types.ID) string {
	return selectionKeyPrefix + string(id)
}

func (s *RedisStore) Save(ctx context.Context, sel *Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encoding selection: %w", err)
	}
	return s.rdb.Set(ctx, selectionKey(sel.ID), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id types.ID) (*Selection, error) {
	data, err := s.rdb.Get(ctx, selectionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSelectionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("decoding selection %s: %w", id, err)
	}
	return &sel, nil
}

// MemoryStore is an in-process Store with the same TTL semantics as RedisStore.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[types.ID]memoryEntry
}

type memoryEntry struct {
	sel     Selection
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[types.ID]memoryEntry),
	}
}

func (s *MemoryStore) Save(_ context.Context, sel *Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.items[sel.ID] = memoryEntry{sel: cloneSelection(sel), expires: expires}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, ErrSelectionNotFound
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.items, id)
		return nil, ErrSelectionNotFound
	}
	sel := cloneSelection(&e.sel)
	return &sel, nil
}

// cloneSelection copies the candidate slices so callers cannot mutate stored state.
func cloneSelection(sel *Selection) Selection {
	out := *sel
	out.Candidates = make([]Candidate, len(sel.Candidates))
	for i, c := range sel.Candidates {
		c.Steps = append(c.Steps[:0:0], c.Steps...)
		c.Polyline = append(c.Polyline[:0:0], c.Polyline...)
		out.Candidates[i] = c
	}
	return out
}
