package world

import (
	"math/rand"

	"github.com/annel0/bedrock-server/internal/util"
	"github.com/annel0/bedrock-server/internal/world/chunk"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
	BiomeDeepWater
)

// Пороги высоты шума для генерации
const (
	DeepWaterMax    = 0.20 // Ниже - глубокая вода
	ShallowWaterMax = 0.30 // Ниже - мелководье
	ActiveStart     = 0.60 // Выше - холмы
	MountainStart   = 0.80 // Выше - горы
)

// Generator заполняет пустую колонку блоками.
type Generator interface {
	Generate(pos ChunkPos, c *chunk.Chunk) error
}

// BlockSet - состояния блоков, которыми пользуется генератор.
// Значения зависят от режима палитры: runtime id либо хэши состояний.
type BlockSet struct {
	Bedrock uint32
	Stone   uint32
	Dirt    uint32
	Grass   uint32
	Sand    uint32
	Water   uint32
	Log     uint32
	Leaves  uint32
}

// DefaultBlockSet - runtime id блоков по умолчанию.
var DefaultBlockSet = BlockSet{
	Bedrock: 1,
	Stone:   2,
	Dirt:    3,
	Grass:   4,
	Sand:    5,
	Water:   6,
	Log:     7,
	Leaves:  8,
}

// PerlinGenerator генерирует ландшафт по шуму Перлина
type PerlinGenerator struct {
	Seed          int64   // Сид для генерации шума
	NoiseScale    float64 // Масштаб основного шума (высота)
	BiomeScale    float64 // Масштаб шума биомов
	ForestDensity float64 // Вероятность дерева на колонку в лесу
	SeaLevel      int     // Уровень моря
	HeightRange   float64 // Разброс высоты поверхности в блоках
	Blocks        BlockSet

	height *util.Noise
	biome  *util.Noise
}

// NewPerlinGenerator создаёт генератор с параметрами по умолчанию
func NewPerlinGenerator(seed int64, blocks BlockSet) *PerlinGenerator {
	return &PerlinGenerator{
		Seed:          seed,
		NoiseScale:    0.05,
		BiomeScale:    0.02,
		ForestDensity: 0.05,
		SeaLevel:      62,
		HeightRange:   64,
		Blocks:        blocks,
		height:        util.NewNoise(seed),
		biome:         util.NewNoise(seed + 42),
	}
}

// Generate заполняет колонку pos. Результат зависит только от сида и координат.
func (g *PerlinGenerator) Generate(pos ChunkPos, c *chunk.Chunk) error {
	// Локальный генератор случайных чисел со своим сидом для каждого чанка
	chunkSeed := g.Seed + int64(pos.X)*31 + int64(pos.Z)*17
	rng := rand.New(rand.NewSource(chunkSeed))

	r := c.Range()
	baseX, baseZ := int(pos.X)<<4, int(pos.Z)<<4

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			wx, wz := float64(baseX+x), float64(baseZ+z)
			height := g.height.Sample2D(wx*g.NoiseScale, wz*g.NoiseScale)
			biome := biomeFor(height, g.biome.Sample2D(wx*g.BiomeScale, wz*g.BiomeScale))

			surface := g.SeaLevel + int((height-ShallowWaterMax)*g.HeightRange)
			surface = clamp(surface, r.MinY()+1, r.MaxY())

			if err := g.fillColumn(c, x, z, surface, biome); err != nil {
				return err
			}

			if biome == BiomeForest && x >= 2 && x <= 13 && z >= 2 && z <= 13 && rng.Float64() < g.ForestDensity {
				if err := g.placeTree(c, x, surface+1, z); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// fillColumn ставит коренную породу, камень, грунт и воду выше поверхности.
func (g *PerlinGenerator) fillColumn(c *chunk.Chunk, x, z, surface int, biome BiomeType) error {
	r := c.Range()
	if err := c.SetState(x, r.MinY(), z, 0, g.Blocks.Bedrock); err != nil {
		return err
	}

	top, filler := g.surfaceBlocks(biome)
	for y := r.MinY() + 1; y <= surface; y++ {
		state := g.Blocks.Stone
		switch {
		case y == surface:
			state = top
		case y > surface-4:
			state = filler
		}
		if err := c.SetState(x, y, z, 0, state); err != nil {
			return err
		}
	}

	if surface >= g.SeaLevel {
		return nil
	}
	// Дно под водой затоплено: вода во втором слое
	if err := c.SetState(x, surface, z, 1, g.Blocks.Water); err != nil {
		return err
	}
	for y := surface + 1; y <= g.SeaLevel && y <= r.MaxY(); y++ {
		if err := c.SetState(x, y, z, 0, g.Blocks.Water); err != nil {
			return err
		}
	}
	return nil
}

// surfaceBlocks возвращает верхний блок и блок под ним для биома
func (g *PerlinGenerator) surfaceBlocks(biome BiomeType) (top, filler uint32) {
	switch biome {
	case BiomeDesert:
		return g.Blocks.Sand, g.Blocks.Sand
	case BiomeMountains:
		return g.Blocks.Stone, g.Blocks.Stone
	case BiomeWater, BiomeDeepWater:
		return g.Blocks.Dirt, g.Blocks.Dirt
	default:
		return g.Blocks.Grass, g.Blocks.Dirt
	}
}

// placeTree ставит ствол высотой 4 и крону 3x3.
func (g *PerlinGenerator) placeTree(c *chunk.Chunk, x, y, z int) error {
	if y+5 > c.Range().MaxY() {
		return nil
	}
	for dy := 0; dy < 4; dy++ {
		if err := c.SetState(x, y+dy, z, 0, g.Blocks.Log); err != nil {
			return err
		}
	}
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for dy := 3; dy <= 4; dy++ {
				if dx == 0 && dz == 0 && dy == 3 {
					continue
				}
				if err := c.SetState(x+dx, y+dy, z+dz, 0, g.Blocks.Leaves); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// biomeFor определяет тип биома на основе значений шума
func biomeFor(height, biomeValue float64) BiomeType {
	// Водные биомы в низинах
	if height < DeepWaterMax {
		return BiomeDeepWater
	}
	if height < ShallowWaterMax {
		return BiomeWater
	}
	// Горные биомы на возвышенностях
	if height > MountainStart {
		return BiomeMountains
	}
	// Для средних высот биом выбирается по второму шуму
	switch {
	case biomeValue < 0.35:
		return BiomeDesert
	case biomeValue > 0.65 || height > ActiveStart:
		return BiomeForest
	}
	return BiomePlains
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
