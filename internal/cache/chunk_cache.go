package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/annel0/bedrock-server/internal/logging"
	"github.com/annel0/bedrock-server/internal/observability"
	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

// ErrCorruptEntry - запись кэша не разбирается или хэш секции не совпал.
var ErrCorruptEntry = errors.New("cache: corrupt chunk entry")

// Entry - сетевые секции колонки вместе с их blob id.
type Entry struct {
	SubChunks [][]byte
	BlobIDs   []uint64
}

// BlobID возвращает идентификатор блоба секции.
func BlobID(b []byte) uint64 { return xxhash.Sum64(b) }

// NewEntry вычисляет blob id для каждой секции.
func NewEntry(subChunks [][]byte) *Entry {
	e := &Entry{SubChunks: subChunks, BlobIDs: make([]uint64, len(subChunks))}
	for i, sc := range subChunks {
		e.BlobIDs[i] = BlobID(sc)
	}
	return e
}

// Payload склеивает секции для пакета LevelChunk.
func (e *Entry) Payload() []byte {
	n := 0
	for _, sc := range e.SubChunks {
		n += len(sc)
	}
	out := make([]byte, 0, n)
	for _, sc := range e.SubChunks {
		out = append(out, sc...)
	}
	return out
}

func (e *Entry) encode() []byte {
	c := wire.NewWriter(16 + len(e.SubChunks)*16)
	c.WriteUVarint32(uint32(len(e.SubChunks)))
	for i, sc := range e.SubChunks {
		c.WriteUint64(e.BlobIDs[i], wire.LittleEndian)
		c.WriteByteSlice(sc)
	}
	return c.Bytes()
}

func decodeEntry(b []byte) (*Entry, error) {
	c := wire.NewReader(b)
	n, err := c.ReadUVarint32()
	if err != nil {
		return nil, err
	}
	// Каждая секция занимает минимум 9 байт
	if int(n) > c.Remaining()/9 {
		return nil, fmt.Errorf("%d sections in %d bytes: %w", n, c.Remaining(), ErrCorruptEntry)
	}
	e := &Entry{SubChunks: make([][]byte, n), BlobIDs: make([]uint64, n)}
	for i := range e.SubChunks {
		if e.BlobIDs[i], err = c.ReadUint64(wire.LittleEndian); err != nil {
			return nil, err
		}
		if e.SubChunks[i], err = c.ReadByteSlice(); err != nil {
			return nil, err
		}
		if BlobID(e.SubChunks[i]) != e.BlobIDs[i] {
			return nil, fmt.Errorf("section %d: %w", i, ErrCorruptEntry)
		}
	}
	if c.Remaining() != 0 {
		return nil, ErrCorruptEntry
	}
	return e, nil
}

// ChunkKey возвращает ключ кэша колонки.
func ChunkKey(x, z int32) string {
	return fmt.Sprintf("lc:%d:%d", x, z)
}

func parseChunkKey(key string) (x, z int32, ok bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "lc" {
		return 0, 0, false
	}
	xv, err1 := strconv.ParseInt(parts[1], 10, 32)
	zv, err2 := strconv.ParseInt(parts[2], 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return int32(xv), int32(zv), true
}

// ChunkCache хранит Entry колонок в Repo и рассылает инвалидации.
type ChunkCache struct {
	repo        Repo
	invalidator Invalidator
	ttl         time.Duration
	metrics     *observability.Metrics
	log         *logging.Logger
}

// NewChunkCache создаёт кэш колонок. invalidator и metrics могут быть nil.
func NewChunkCache(repo Repo, invalidator Invalidator, ttl time.Duration, metrics *observability.Metrics) *ChunkCache {
	return &ChunkCache{
		repo:        repo,
		invalidator: invalidator,
		ttl:         ttl,
		metrics:     metrics,
		log:         logging.GetCacheLogger(),
	}
}

// Get возвращает запись колонки. Испорченная запись удаляется и считается промахом.
func (c *ChunkCache) Get(ctx context.Context, x, z int32) (*Entry, bool) {
	key := ChunkKey(x, z)
	b, err := c.repo.Get(ctx, key)
	if err != nil {
		if !IsCacheMiss(err) {
			c.log.Warn("⚠️ Ошибка чтения кэша %s: %v", key, err)
		}
		c.metrics.CacheMiss()
		return nil, false
	}
	e, err := decodeEntry(b)
	if err != nil {
		c.log.Warn("⚠️ Испорченная запись кэша %s: %v", key, err)
		_ = c.repo.Delete(ctx, key)
		c.metrics.CacheMiss()
		return nil, false
	}
	c.metrics.CacheHit()
	return e, true
}

// Put сохраняет запись колонки
func (c *ChunkCache) Put(ctx context.Context, x, z int32, e *Entry) error {
	return c.repo.Set(ctx, ChunkKey(x, z), e.encode(), c.ttl)
}

// Invalidate удаляет запись колонки и уведомляет другие узлы.
func (c *ChunkCache) Invalidate(ctx context.Context, x, z int32) error {
	key := ChunkKey(x, z)
	if err := c.repo.Delete(ctx, key); err != nil {
		return err
	}
	if c.invalidator != nil {
		return c.invalidator.PublishInvalidation(ctx, key)
	}
	return nil
}

// Listen удаляет записи по инвалидациям других узлов до отмены ctx.
func (c *ChunkCache) Listen(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.SubscribeInvalidations(ctx, func(key string) error {
		if _, _, ok := parseChunkKey(key); !ok {
			return fmt.Errorf("неизвестный ключ %q", key)
		}
		return c.repo.Delete(context.Background(), key)
	})
}

// Close закрывает репозиторий и инвалидатор.
func (c *ChunkCache) Close() error {
	var errs []error
	if c.invalidator != nil {
		errs = append(errs, c.invalidator.Close())
	}
	errs = append(errs, c.repo.Close())
	return errors.Join(errs...)
}
