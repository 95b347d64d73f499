package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bedrock-server/internal/world/chunk"
)

func generate(t *testing.T, g *PerlinGenerator, pos ChunkPos) *chunk.Chunk {
	t.Helper()
	c := chunk.NewChunk(chunk.Overworld, 0, chunk.RuntimeIDs)
	require.NoError(t, g.Generate(pos, c))
	return c
}

func TestPerlinGeneratorDeterministic(t *testing.T) {
	a := generate(t, NewPerlinGenerator(1234, DefaultBlockSet), ChunkPos{3, -7})
	b := generate(t, NewPerlinGenerator(1234, DefaultBlockSet), ChunkPos{3, -7})
	assert.Equal(t, a.Encode(), b.Encode(), "одинаковый сид даёт одинаковые колонки")
}

func TestPerlinGeneratorColumns(t *testing.T) {
	g := NewPerlinGenerator(99, DefaultBlockSet)
	for _, pos := range []ChunkPos{{0, 0}, {-5, 2}, {40, 40}} {
		c := generate(t, g, pos)
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				bottom, err := c.State(x, chunk.Overworld.MinY(), z, 0)
				require.NoError(t, err)
				assert.Equal(t, DefaultBlockSet.Bedrock, bottom, "дно колонки - коренная порода")

				top, ok := c.HighestBlock(x, z)
				require.True(t, ok)
				if top < g.SeaLevel {
					t.Fatalf("колонка %d,%d ниже уровня моря: %d", x, z, top)
				}
			}
		}
	}
}

func TestPerlinGeneratorWaterlogsSeabed(t *testing.T) {
	g := NewPerlinGenerator(5, DefaultBlockSet)
	g.SeaLevel = 200 // всё под водой

	c := generate(t, g, ChunkPos{0, 0})
	top, ok := c.HighestBlock(0, 0)
	require.True(t, ok)
	assert.Equal(t, 200, top)

	state, err := c.State(0, 200, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockSet.Water, state)

	// Ищем дно: первый блок сверху с водой во втором слое
	found := false
	for y := 199; y > chunk.Overworld.MinY(); y-- {
		s, err := c.State(0, y, 0, 1)
		require.NoError(t, err)
		if s == DefaultBlockSet.Water {
			found = true
			break
		}
	}
	assert.True(t, found, "дно под водой должно быть затоплено во втором слое")
}

func TestBiomeFor(t *testing.T) {
	assert.Equal(t, BiomeDeepWater, biomeFor(0.1, 0.5))
	assert.Equal(t, BiomeWater, biomeFor(0.25, 0.5))
	assert.Equal(t, BiomeMountains, biomeFor(0.9, 0.5))
	assert.Equal(t, BiomeDesert, biomeFor(0.5, 0.1))
	assert.Equal(t, BiomeForest, biomeFor(0.5, 0.9))
	assert.Equal(t, BiomePlains, biomeFor(0.5, 0.5))
}
