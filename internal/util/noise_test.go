package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseDeterministic(t *testing.T) {
	a := NewNoise(42)
	b := NewNoise(42)
	for i := 0; i < 50; i++ {
		x, y := float64(i)*0.37, float64(i)*-0.11
		assert.Equal(t, a.Sample2D(x, y), b.Sample2D(x, y), "один сид - один шум")
	}
	assert.Equal(t, int64(42), a.Seed())
}

func TestNoiseRange(t *testing.T) {
	n := NewNoise(7)
	for x := -20; x < 20; x++ {
		for y := -20; y < 20; y++ {
			v := n.Sample2D(float64(x)*0.05, float64(y)*0.05)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}
