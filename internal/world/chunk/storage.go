package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrCoordinateOutOfRange - координата вне 0..15 или секция вне диапазона колонки.
	ErrCoordinateOutOfRange = errors.New("chunk: coordinate out of range")
	// ErrLayerOutOfRange - номер слоя вне 0..MaxLayers-1.
	ErrLayerOutOfRange = errors.New("chunk: layer out of range")
)

const (
	// BlocksPerStorage - количество блоков в саб-чанке 16x16x16.
	BlocksPerStorage = 4096
	// MaxLayers ограничен байтом количества слоёв в формате.
	MaxLayers = 255
	// maxPaletteSize - ёмкость палитры при наибольшей ширине 16.
	maxPaletteSize = 1 << 16
)

// bitWidths - допустимые ширины индекса в битах по возрастанию.
var bitWidths = [...]uint8{1, 2, 3, 4, 5, 6, 8, 16}

// validBitWidth проверяет, что ширина входит в bitWidths.
func validBitWidth(w uint8) bool {
	for _, v := range bitWidths {
		if v == w {
			return true
		}
	}
	return false
}

// minBitWidth возвращает наименьшую ширину, адресующую n состояний.
func minBitWidth(n int) uint8 {
	for _, w := range bitWidths {
		if n <= 1<<w {
			return w
		}
	}
	return bitWidths[len(bitWidths)-1]
}

// wordsFor - количество 64-битных слов для 4096 индексов ширины w.
func wordsFor(w uint8) int {
	return BlocksPerStorage * int(w) / 64
}

// BlockStorage - один слой саб-чанка: палитра и 4096 индексов, упакованных
// плотно по w бит. Индекс может пересекать границу слова.
type BlockStorage struct {
	bitWidth uint8
	words    []uint64
	palette  *Palette
}

// NewBlockStorage создает слой, заполненный состоянием по умолчанию
func NewBlockStorage(defaultState uint32, mode PaletteMode) *BlockStorage {
	return &BlockStorage{
		bitWidth: 1,
		words:    make([]uint64, wordsFor(1)),
		palette:  newPalette(mode, defaultState),
	}
}

// BitWidth возвращает текущую ширину индекса.
func (s *BlockStorage) BitWidth() uint8 { return s.bitWidth }

// Palette возвращает палитру слоя.
func (s *BlockStorage) Palette() *Palette { return s.palette }

// blockIndex переводит локальные координаты в линейный индекс (y<<8)|(z<<4)|x.
func blockIndex(x, y, z int) (int, error) {
	if uint(x) > 15 || uint(y) > 15 || uint(z) > 15 {
		return 0, fmt.Errorf("(%d, %d, %d): %w", x, y, z, ErrCoordinateOutOfRange)
	}
	return y<<8 | z<<4 | x, nil
}

// State возвращает состояние блока.
func (s *BlockStorage) State(x, y, z int) (uint32, error) {
	i, err := blockIndex(x, y, z)
	if err != nil {
		return 0, err
	}
	return s.palette.State(s.index(i)), nil
}

// SetState записывает состояние блока. Новое состояние добавляется в палитру;
// если палитра перестала помещаться в 2^w, все индексы перепаковываются со
// следующей шириной. Заполненная палитра ширины 16 сначала уплотняется.
func (s *BlockStorage) SetState(x, y, z int, state uint32) error {
	i, err := blockIndex(x, y, z)
	if err != nil {
		return err
	}
	pi, ok := s.palette.Index(state)
	if !ok {
		if s.palette.Len() >= maxPaletteSize {
			s.Compact()
			if s.palette.Len() >= maxPaletteSize {
				return fmt.Errorf("state %d: %w", state, ErrPaletteOverflow)
			}
		}
		pi = s.palette.add(state)
		if s.palette.Len() > 1<<s.bitWidth {
			s.repack(minBitWidth(s.palette.Len()))
		}
	}
	s.setIndex(i, pi)
	return nil
}

// IsEmpty сообщает, что все индексы указывают на состояние по умолчанию.
func (s *BlockStorage) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// onlyDefault сообщает, что хранилище целиком заполнено состоянием def.
func (s *BlockStorage) onlyDefault(def uint32) bool {
	return s.IsEmpty() && s.palette.State(0) == def
}

// Compact удаляет неиспользуемые состояния палитры, сохраняя индекс 0,
// и перепаковывает индексы с минимальной шириной.
func (s *BlockStorage) Compact() {
	used := make([]bool, s.palette.Len())
	used[0] = true
	for i := 0; i < BlocksPerStorage; i++ {
		used[s.index(i)] = true
	}

	remap := make([]int, s.palette.Len())
	compacted := newPalette(s.palette.mode)
	for old, state := range s.palette.states {
		if !used[old] {
			continue
		}
		if existing, dup := compacted.Index(state); dup {
			remap[old] = existing
			continue
		}
		remap[old] = compacted.add(state)
	}

	indices := s.indices()
	s.palette = compacted
	s.bitWidth = minBitWidth(compacted.Len())
	s.words = make([]uint64, wordsFor(s.bitWidth))
	for i, old := range indices {
		s.setIndex(i, remap[old])
	}
}

// repack переписывает все индексы с новой шириной.
func (s *BlockStorage) repack(width uint8) {
	indices := s.indices()
	s.bitWidth = width
	s.words = make([]uint64, wordsFor(width))
	for i, v := range indices {
		s.setIndex(i, v)
	}
}

func (s *BlockStorage) indices() []int {
	out := make([]int, BlocksPerStorage)
	for i := range out {
		out[i] = s.index(i)
	}
	return out
}

// index читает i-й упакованный индекс.
func (s *BlockStorage) index(i int) int {
	w := uint(s.bitWidth)
	bit := uint(i) * w
	word, shift := bit>>6, bit&63
	mask := uint64(1)<<w - 1

	v := s.words[word] >> shift
	if shift+w > 64 {
		v |= s.words[word+1] << (64 - shift)
	}
	return int(v & mask)
}

// setIndex записывает i-й упакованный индекс.
func (s *BlockStorage) setIndex(i, value int) {
	w := uint(s.bitWidth)
	bit := uint(i) * w
	word, shift := bit>>6, bit&63
	mask := uint64(1)<<w - 1
	v := uint64(value) & mask

	s.words[word] = s.words[word]&^(mask<<shift) | v<<shift
	if shift+w > 64 {
		rem := 64 - shift
		s.words[word+1] = s.words[word+1]&^(mask>>rem) | v>>rem
	}
}
