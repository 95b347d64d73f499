package network

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bedrock-server/internal/cache"
	"github.com/annel0/bedrock-server/internal/protocol/packet"
	"github.com/annel0/bedrock-server/internal/world"
	"github.com/annel0/bedrock-server/internal/world/chunk"
)

// editingRepo меняет мир перед первой записью в кэш, как параллельная сессия
type editingRepo struct {
	*cache.MemoryCache
	once sync.Once
	edit func()
}

func (r *editingRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.once.Do(r.edit)
	return r.MemoryCache.Set(ctx, key, value, ttl)
}

func TestLevelChunkDropsStaleCacheEntry(t *testing.T) {
	reg, err := packet.NewRegistry()
	require.NoError(t, err)
	w, err := world.NewManager(world.Config{
		Range:     chunk.Range{MinSection: 0, MaxSection: 1},
		Mode:      chunk.RuntimeIDs,
		Generator: stoneFloor{},
	})
	require.NoError(t, err)

	repo := &editingRepo{MemoryCache: cache.NewMemoryCache()}
	repo.edit = func() { require.NoError(t, w.SetBlock(3, 0, 4, 0, 0)) }
	chunks := cache.NewChunkCache(repo, nil, time.Minute, nil)
	srv, err := NewServer(Config{MaxChunkRadius: 2}, reg, w, chunks, nil)
	require.NoError(t, err)

	ctx := context.Background()
	stale, err := srv.levelChunk(ctx, world.ChunkPos{})
	require.NoError(t, err)
	_, ok := chunks.Get(ctx, 0, 0)
	assert.False(t, ok, "payload до правки не должен остаться в кэше")

	fresh, err := srv.levelChunk(ctx, world.ChunkPos{})
	require.NoError(t, err)
	assert.NotEqual(t, stale.RawPayload, fresh.RawPayload)

	var want []byte
	require.NoError(t, w.WithChunk(world.ChunkPos{}, func(c *chunk.Chunk) error {
		want, _ = c.NetworkPayload()
		return nil
	}))
	assert.Equal(t, want, fresh.RawPayload)

	cached, ok := chunks.Get(ctx, 0, 0)
	require.True(t, ok, "актуальный payload кэшируется")
	assert.Equal(t, want, cached.Payload())
}

func TestServerRetainsChunksInView(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := connect(t, srv)
	client.handshake()

	client.send(&packet.RequestChunkRadius{ChunkRadius: 1})
	require.Eventually(t, func() bool {
		s := srv.Sessions()
		return len(s) == 1 && s[0].ChunkRadius() == 1
	}, time.Second, 10*time.Millisecond)

	assert.True(t, srv.inView(world.ChunkPos{X: 0, Z: 1}))
	assert.False(t, srv.inView(world.ChunkPos{X: 1, Z: 1}), "угол вне круга радиуса 1")
	assert.False(t, srv.inView(world.ChunkPos{X: 10, Z: 10}))
}
