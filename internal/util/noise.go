package util

import (
	"github.com/aquilax/go-perlin"
)

// Noise - детерминированный шум Перлина для одного сида.
// После создания только читается, поэтому безопасен для параллельного использования.
type Noise struct {
	seed int64
	p    *perlin.Perlin
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Noise{seed: seed, p: perlin.NewPerlin(alpha, beta, n, seed)}
}

// Seed возвращает сид генератора.
func (n *Noise) Seed() int64 { return n.seed }

// Sample2D возвращает значение шума для координат в диапазоне от 0 до 1
func (n *Noise) Sample2D(x, y float64) float64 {
	// Значение шума лежит примерно в диапазоне от -1 до 1
	v := (n.p.Noise2D(x, y) + 1.0) / 2.0
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
