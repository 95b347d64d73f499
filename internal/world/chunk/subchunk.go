package chunk

import "fmt"

// Версии формата саб-чанка.
const (
	SubChunkVersion8 uint8 = 8
	SubChunkVersion9 uint8 = 9
	// DefaultSubChunkVersion используется для новых саб-чанков.
	DefaultSubChunkVersion = SubChunkVersion8
)

// SubChunk - куб 16x16x16 из нескольких слоёв. Слой 0 - основные блоки,
// слой 1 обычно содержит воду для затопленных блоков.
type SubChunk struct {
	version uint8
	mode    PaletteMode
	air     uint32
	layers  []*BlockStorage
}

// NewSubChunk создает пустой саб-чанк без слоёв
func NewSubChunk(air uint32, mode PaletteMode) *SubChunk {
	return &SubChunk{version: DefaultSubChunkVersion, mode: mode, air: air}
}

// Version возвращает версию формата.
func (sc *SubChunk) Version() uint8 { return sc.version }

// Mode возвращает режим палитры для новых слоёв.
func (sc *SubChunk) Mode() PaletteMode { return sc.mode }

// Air возвращает состояние по умолчанию.
func (sc *SubChunk) Air() uint32 { return sc.air }

// Layers возвращает существующие слои. Срез может быть пустым.
func (sc *SubChunk) Layers() []*BlockStorage { return sc.layers }

// Layer возвращает слой k, создавая недостающие слои 0..k.
func (sc *SubChunk) Layer(k int) (*BlockStorage, error) {
	if k < 0 || k >= MaxLayers {
		return nil, fmt.Errorf("layer %d: %w", k, ErrLayerOutOfRange)
	}
	for len(sc.layers) <= k {
		sc.layers = append(sc.layers, NewBlockStorage(sc.air, sc.mode))
	}
	return sc.layers[k], nil
}

// State возвращает состояние блока в слое. Отсутствующий слой не создаётся,
// для него возвращается состояние по умолчанию.
func (sc *SubChunk) State(x, y, z, layer int) (uint32, error) {
	if layer < 0 || layer >= MaxLayers {
		return 0, fmt.Errorf("layer %d: %w", layer, ErrLayerOutOfRange)
	}
	if layer >= len(sc.layers) {
		if _, err := blockIndex(x, y, z); err != nil {
			return 0, err
		}
		return sc.air, nil
	}
	return sc.layers[layer].State(x, y, z)
}

// SetState записывает состояние блока в слой, создавая слой при необходимости.
func (sc *SubChunk) SetState(x, y, z, layer int, state uint32) error {
	if _, err := blockIndex(x, y, z); err != nil {
		return err
	}
	s, err := sc.Layer(layer)
	if err != nil {
		return err
	}
	return s.SetState(x, y, z, state)
}

// StateAt читает слой 0.
func (sc *SubChunk) StateAt(x, y, z int) (uint32, error) {
	return sc.State(x, y, z, 0)
}

// SetStateAt пишет в слой 0.
func (sc *SubChunk) SetStateAt(x, y, z int, state uint32) error {
	return sc.SetState(x, y, z, 0, state)
}

// IsEmpty сообщает, что все слои пусты. Саб-чанк без слоёв пуст.
func (sc *SubChunk) IsEmpty() bool {
	for _, l := range sc.layers {
		if !l.IsEmpty() {
			return false
		}
	}
	return true
}

// onlyAir сообщает, что во всех слоях только воздух.
func (sc *SubChunk) onlyAir() bool {
	for _, l := range sc.layers {
		if !l.onlyDefault(sc.air) {
			return false
		}
	}
	return true
}

// Compact уплотняет палитры слоёв и отбрасывает пустые слои в конце,
// чтобы номера оставшихся слоёв не сдвинулись.
func (sc *SubChunk) Compact() {
	for _, l := range sc.layers {
		l.Compact()
	}
	n := len(sc.layers)
	for n > 0 && sc.layers[n-1].onlyDefault(sc.air) {
		n--
	}
	sc.layers = sc.layers[:n]
}
