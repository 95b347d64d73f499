package chunk

import (
	"fmt"

	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

// Range - диапазон секций по вертикали, обе границы включительно.
type Range struct {
	MinSection int
	MaxSection int
}

// Overworld - диапазон верхнего мира: y от -64 до 319.
var Overworld = Range{MinSection: -4, MaxSection: 19}

// Sections возвращает количество секций.
func (r Range) Sections() int { return r.MaxSection - r.MinSection + 1 }

// MinY возвращает нижнюю мировую координату y.
func (r Range) MinY() int { return r.MinSection << 4 }

// MaxY возвращает верхнюю мировую координату y.
func (r Range) MaxY() int { return r.MaxSection<<4 | 15 }

// Chunk - колонка саб-чанков 16 x высота x 16. Отсутствующие секции
// считаются заполненными воздухом и создаются при первой записи.
type Chunk struct {
	r    Range
	air  uint32
	mode PaletteMode
	sub  []*SubChunk
}

// NewChunk создает пустую колонку
func NewChunk(r Range, air uint32, mode PaletteMode) *Chunk {
	if r.MaxSection < r.MinSection {
		r.MaxSection = r.MinSection
	}
	return &Chunk{r: r, air: air, mode: mode, sub: make([]*SubChunk, r.Sections())}
}

// Range возвращает диапазон секций.
func (ch *Chunk) Range() Range { return ch.r }

// Air возвращает состояние по умолчанию.
func (ch *Chunk) Air() uint32 { return ch.air }

// sectionIndex переводит мировую y в индекс среза sub.
func (ch *Chunk) sectionIndex(y int) (int, error) {
	section := y >> 4
	if section < ch.r.MinSection || section > ch.r.MaxSection {
		return 0, fmt.Errorf("y %d outside %d..%d: %w", y, ch.r.MinY(), ch.r.MaxY(), ErrCoordinateOutOfRange)
	}
	return section - ch.r.MinSection, nil
}

// SubChunk возвращает секцию с номером section, создавая её при необходимости.
func (ch *Chunk) SubChunk(section int) (*SubChunk, error) {
	if section < ch.r.MinSection || section > ch.r.MaxSection {
		return nil, fmt.Errorf("section %d: %w", section, ErrCoordinateOutOfRange)
	}
	i := section - ch.r.MinSection
	if ch.sub[i] == nil {
		ch.sub[i] = NewSubChunk(ch.air, ch.mode)
	}
	return ch.sub[i], nil
}

// SubChunks возвращает все секции снизу вверх; nil означает пустую секцию.
func (ch *Chunk) SubChunks() []*SubChunk { return ch.sub }

// State возвращает состояние блока. y - мировая координата, x и z - 0..15.
func (ch *Chunk) State(x, y, z, layer int) (uint32, error) {
	i, err := ch.sectionIndex(y)
	if err != nil {
		return 0, err
	}
	sc := ch.sub[i]
	if sc == nil {
		if _, err := blockIndex(x, y&15, z); err != nil {
			return 0, err
		}
		return ch.air, nil
	}
	return sc.State(x, y&15, z, layer)
}

// SetState записывает состояние блока.
func (ch *Chunk) SetState(x, y, z, layer int, state uint32) error {
	i, err := ch.sectionIndex(y)
	if err != nil {
		return err
	}
	if _, err := blockIndex(x, y&15, z); err != nil {
		return err
	}
	sc, err := ch.SubChunk(i + ch.r.MinSection)
	if err != nil {
		return err
	}
	return sc.SetState(x, y&15, z, layer, state)
}

// HighestBlock возвращает мировую y самого высокого не-воздушного блока
// слоя 0 в столбце x, z. ok=false, если столбец пуст.
func (ch *Chunk) HighestBlock(x, z int) (y int, ok bool) {
	if uint(x) > 15 || uint(z) > 15 {
		return 0, false
	}
	for i := len(ch.sub) - 1; i >= 0; i-- {
		sc := ch.sub[i]
		if sc == nil || len(sc.layers) == 0 || sc.layers[0].onlyDefault(ch.air) {
			continue
		}
		for ly := 15; ly >= 0; ly-- {
			if state, _ := sc.layers[0].State(x, ly, z); state != ch.air {
				return (i+ch.r.MinSection)<<4 | ly, true
			}
		}
	}
	return 0, false
}

// IsEmpty сообщает, что во всех секциях только состояние по умолчанию.
func (ch *Chunk) IsEmpty() bool {
	for _, sc := range ch.sub {
		if sc != nil && !sc.IsEmpty() {
			return false
		}
	}
	return true
}

// Compact уплотняет все секции и удаляет пустые.
func (ch *Chunk) Compact() {
	for i, sc := range ch.sub {
		if sc == nil {
			continue
		}
		sc.Compact()
		if len(sc.layers) == 0 {
			ch.sub[i] = nil
		}
	}
}

// highestSection возвращает индекс самой высокой непустой секции или -1.
func (ch *Chunk) highestSection() int {
	for i := len(ch.sub) - 1; i >= 0; i-- {
		if ch.sub[i] != nil && !ch.sub[i].onlyAir() {
			return i
		}
	}
	return -1
}

// NetworkSubChunks возвращает сериализованные секции снизу вверх до самой
// высокой непустой. Пустые секции ниже неё кодируются без слоёв.
func (ch *Chunk) NetworkSubChunks() [][]byte {
	top := ch.highestSection()
	out := make([][]byte, 0, top+1)
	for i := 0; i <= top; i++ {
		sc := ch.sub[i]
		if sc == nil {
			sc = NewSubChunk(ch.air, ch.mode)
		}
		out = append(out, sc.Encode())
	}
	return out
}

// NetworkPayload склеивает NetworkSubChunks для пакета LevelChunk и
// возвращает количество секций.
func (ch *Chunk) NetworkPayload() ([]byte, uint32) {
	subs := ch.NetworkSubChunks()
	c := wire.NewWriter(64)
	for _, b := range subs {
		c.WriteBytes(b)
	}
	return c.Bytes(), uint32(len(subs))
}
