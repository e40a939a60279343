package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore implementa Store usando Redis.
// Take usa GETDEL, que es atómico server-side: el invariante de un solo
// canjeador queda garantizado entre procesos.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis crea un Store Redis y verifica la conexión.
func NewRedis(cfg Config) (*redisStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("backend: redis ping failed: %w", err)
	}

	return &redisStore{client: rdb, prefix: cfg.Prefix}, nil
}

func (s *redisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *redisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", wrapUnavailable(err)
	}
	return val, nil
}

func (s *redisStore) Take(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetDel(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", wrapUnavailable(err)
	}
	return val, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return n > 0, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
