package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bedrock-server/internal/protocol/packet"
)

const sample = `
server:
  raknet_addr: 127.0.0.1:19132
  transports: [RakNet, " kcp "]
  max_players: 5
world:
  seed: 1234
  min_section: 0
  max_section: 15
  save_interval: 30s
  storage: memory
network:
  compression_threshold: 512
  compression_algorithm: snappy
  max_chunk_radius: 4
cache:
  backend: redis
  redis_url: localhost:6379
  ttl: 10m
  nats_url: nats://localhost:4222
logging:
  level: debug
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:19132", cfg.Server.GetRakNetAddr())
	assert.Equal(t, []string{"raknet", "kcp"}, cfg.Server.GetTransports())
	assert.Equal(t, 5, cfg.Server.GetMaxPlayers())

	assert.Equal(t, int64(1234), cfg.World.GetSeed())
	minSection, maxSection := cfg.World.GetSectionRange()
	assert.Equal(t, 0, minSection)
	assert.Equal(t, 15, maxSection)
	assert.Equal(t, 30*time.Second, cfg.World.GetSaveInterval())
	assert.Equal(t, "memory", cfg.World.GetStorage())

	assert.Equal(t, uint16(512), cfg.Network.GetCompressionThreshold())
	algo, err := cfg.Network.GetCompressionAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, packet.CompressionSnappy, algo)
	assert.Equal(t, int32(4), cfg.Network.GetMaxChunkRadius())

	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "nats://localhost:4222", cfg.Cache.NATSURL)
	assert.Equal(t, "DEBUG", cfg.Logging.GetLevel())
}

func TestDefaults(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg, "без файла возвращается пустой конфиг")

	assert.Equal(t, "0.0.0.0:19132", cfg.Server.GetRakNetAddr())
	assert.Equal(t, []string{"raknet"}, cfg.Server.GetTransports())
	assert.Equal(t, 20, cfg.Server.GetMaxPlayers())
	minSection, maxSection := cfg.World.GetSectionRange()
	assert.Equal(t, -4, minSection)
	assert.Equal(t, 19, maxSection)
	assert.Equal(t, 5*time.Minute, cfg.World.GetSaveInterval())
	assert.Equal(t, "badger", cfg.World.GetStorage())
	assert.Equal(t, uint16(256), cfg.Network.GetCompressionThreshold())
	algo, err := cfg.Network.GetCompressionAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, packet.CompressionFlate, algo)
	assert.Equal(t, int32(8), cfg.Network.GetMaxChunkRadius())
	assert.Equal(t, "INFO", cfg.Logging.GetLevel())
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("GAME_RAKNET_ADDR", ":20000")
	t.Setenv("GAME_TRANSPORTS", "kcp")
	t.Setenv("GAME_MAX_PLAYERS", "abc")
	t.Setenv("GAME_WORLD_SEED", "-7")
	t.Setenv("GAME_COMPRESSION", "none")

	cfg := &Config{}
	assert.Equal(t, ":20000", cfg.Server.GetRakNetAddr())
	assert.Equal(t, []string{"kcp"}, cfg.Server.GetTransports())
	assert.Equal(t, 20, cfg.Server.GetMaxPlayers(), "некорректное значение env игнорируется")
	assert.Equal(t, int64(-7), cfg.World.GetSeed())
	algo, err := cfg.Network.GetCompressionAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, packet.CompressionNone, algo)

	cfg.Server.RakNetAddr = ":1"
	assert.Equal(t, ":1", cfg.Server.GetRakNetAddr(), "значение из файла важнее env")
}

func TestUnknownCompression(t *testing.T) {
	n := NetworkConfig{CompressionAlgorithm: "lz4"}
	_, err := n.GetCompressionAlgorithm()
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
