// Package cache кэш поиска ссылок по коду и защита от повторных кликов.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache хранилище ключ-значение с TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent записывает значение, только если ключа ещё нет.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Memory кэш в процессе на ristretto.
type Memory struct {
	client *ristretto.Cache
	// ristretto не умеет атомарный SetNX
	mutex sync.Mutex
}

func NewMemory(maxItems int64) (*Memory, error) {
	if maxItems <= 0 {
		maxItems = 100_000
	}
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{client: client}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.client.SetWithTTL(key, value, 1, ttl)
	m.client.Wait()
	return nil
}

func (m *Memory) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.client.Get(key); ok {
		return false, nil
	}
	m.client.SetWithTTL(key, value, 1, ttl)
	m.client.Wait()
	return true, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, k := range keys {
		m.client.Del(k)
	}
	return nil
}

func (m *Memory) Close() error {
	m.client.Close()
	return nil
}

// Redis общий кэш для нескольких экземпляров сервиса.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop кэш выключен.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (Noop) SetIfAbsent(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) Close() error                            { return nil }

// New создаёт кэш по имени бэкенда: "ristretto", "redis" или "none".
func New(ctx context.Context, backend, redisAddr, redisPassword string, logger *zap.Logger) (Cache, error) {
	switch backend {
	case "redis":
		c, err := NewRedis(ctx, redisAddr, redisPassword)
		if err != nil {
			return nil, err
		}
		logger.Info("Redis cache connected", zap.String("addr", redisAddr))
		return c, nil
	case "none", "":
		return Noop{}, nil
	default:
		c, err := NewMemory(0)
		if err != nil {
			return nil, err
		}
		logger.Info("In-memory cache initialized")
		return c, nil
	}
}
