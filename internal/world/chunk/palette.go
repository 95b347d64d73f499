// Package chunk хранит блоки в формате Bedrock: палитра состояний и
// упакованные индексы на каждый слой саб-чанка, саб-чанки собираются в
// колонку Chunk. Пакет не синхронизирован, доступ сериализует владелец чанка.
package chunk

// PaletteMode определяет, как записываются состояния палитры.
type PaletteMode uint8

const (
	// HashedIDs - постоянные хэшированные id, пишутся как int32 little-endian.
	HashedIDs PaletteMode = iota
	// RuntimeIDs - сетевые runtime id, пишутся как zigzag varint32.
	RuntimeIDs
)

// Palette - упорядоченный список уникальных состояний блоков.
// Индекс 0 всегда состояние по умолчанию (обычно воздух).
type Palette struct {
	mode   PaletteMode
	states []uint32
	lookup map[uint32]int
}

func newPalette(mode PaletteMode, states ...uint32) *Palette {
	p := &Palette{
		mode:   mode,
		states: make([]uint32, 0, len(states)),
		lookup: make(map[uint32]int, len(states)),
	}
	for _, s := range states {
		p.add(s)
	}
	return p
}

// Mode возвращает режим палитры.
func (p *Palette) Mode() PaletteMode { return p.mode }

// Len возвращает количество состояний.
func (p *Palette) Len() int { return len(p.states) }

// State возвращает состояние по индексу.
func (p *Palette) State(i int) uint32 { return p.states[i] }

// States возвращает копию списка состояний.
func (p *Palette) States() []uint32 {
	out := make([]uint32, len(p.states))
	copy(out, p.states)
	return out
}

// Index ищет индекс состояния.
func (p *Palette) Index(state uint32) (int, bool) {
	i, ok := p.lookup[state]
	return i, ok
}

// add добавляет состояние в конец и возвращает его индекс. Повторное
// состояние сохраняется в списке, но поиск всегда отдаёт первый индекс.
func (p *Palette) add(state uint32) int {
	i := len(p.states)
	p.states = append(p.states, state)
	if _, exists := p.lookup[state]; !exists {
		p.lookup[state] = i
	}
	return i
}
