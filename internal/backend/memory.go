package backend

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore implementa Store sobre go-cache.
// go-cache maneja TTL y expiración, pero no tiene un primitivo get-and-delete;
// el mutex externo cubre Take para mantener la atomicidad a nivel de clave.
type memoryStore struct {
	prefix string
	c      *gocache.Cache
	mu     sync.Mutex
}

// NewMemory crea un Store in-process. Útil para desarrollo y testing.
func NewMemory(prefix string) *memoryStore {
	return &memoryStore{
		prefix: prefix,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (s *memoryStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *memoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(s.key(key), value, ttl)
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(s.key(key))
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

func (s *memoryStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	v, ok := s.c.Get(k)
	if !ok {
		return "", ErrNotFound
	}
	s.c.Delete(k)
	return v.(string), nil
}

func (s *memoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	_, ok := s.c.Get(k)
	if ok {
		s.c.Delete(k)
	}
	return ok, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }
