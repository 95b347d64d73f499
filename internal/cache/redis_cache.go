package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/bedrock-server/internal/logging"
)

// RedisCache реализует Repo поверх Redis. Общий Redis позволяет нескольким
// узлам отдавать одни и те же payload колонок.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(config Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}

	logging.GetCacheLogger().Info("🔌 Redis кэш подключен: %s", config.RedisURL)
	return newRedisCache(rdb), nil
}

func newRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, keyPrefix: "bedrock:"}
}

// Get получает значение по ключу
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}
	return val, nil
}

// Set сохраняет значение с TTL
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	return nil
}

// Delete удаляет ключ
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}
