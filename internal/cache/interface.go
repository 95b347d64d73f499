// Package cache кэширует сетевые payload колонок между запросами LevelChunk.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss возвращается, если ключ не найден или истёк.
var ErrCacheMiss = errors.New("cache: miss")

// Repo - байтовый кэш с TTL.
//
// Использование:
//
//	repo := NewMemoryCache()
//	err := repo.Set(ctx, "key", data, 30*time.Second)
//	data, err := repo.Get(ctx, "key")
type Repo interface {
	// Get возвращает ErrCacheMiss, если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение. TTL = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Close() error
}

// Invalidator рассылает инвалидации ключей другим узлам.
type Invalidator interface {
	PublishInvalidation(ctx context.Context, key string) error
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error
	Close() error
}

// InvalidationHandler обрабатывает уведомления об инвалидации кеша.
type InvalidationHandler func(key string) error

// Config содержит конфигурацию кеша.
type Config struct {
	// Backend: memory или redis
	Backend string `yaml:"backend"`

	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// TTL записи колонки
	TTL time.Duration `yaml:"ttl"`

	// NATSURL включает рассылку инвалидаций, если не пуст
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"nats_subject"`
}

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
