package chunk

import (
	"errors"
	"fmt"

	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

var (
	// ErrTruncatedBuffer - данных меньше, чем требует формат.
	ErrTruncatedBuffer = wire.ErrTruncatedBuffer
	// ErrUnsupportedVersion - неизвестная версия саб-чанка или колонки.
	ErrUnsupportedVersion = errors.New("chunk: unsupported version")
	// ErrInvalidBitWidth - ширина индекса не из {1,2,3,4,5,6,8,16}.
	ErrInvalidBitWidth = errors.New("chunk: invalid bit width")
	// ErrPaletteOverflow - палитра пуста, больше 2^w или не вмещает новое состояние.
	ErrPaletteOverflow = errors.New("chunk: palette overflow")
	// ErrIndexOutOfPalette - упакованный индекс указывает за конец палитры.
	ErrIndexOutOfPalette = errors.New("chunk: index out of palette")
	// ErrTrailingData - после саб-чанка или колонки остались байты.
	ErrTrailingData = errors.New("chunk: trailing data")
)

// packedBytes - размер упакованного массива индексов: ceil(4096*w/8).
func packedBytes(w uint8) int {
	return (BlocksPerStorage*int(w) + 7) / 8
}

// ===== BlockStorage =====

// EncodeTo пишет слой: заголовок (w<<1)|runtime, палитру с префиксом
// количества, упакованные индексы ceil(4096*w/8) байт.
func (s *BlockStorage) EncodeTo(c *wire.Cursor) {
	header := s.bitWidth << 1
	if s.palette.mode == RuntimeIDs {
		header |= 1
	}
	c.WriteUint8(header)

	c.WriteUVarint32(uint32(s.palette.Len()))
	for _, state := range s.palette.states {
		if s.palette.mode == RuntimeIDs {
			c.WriteZigZag32(int32(state))
		} else {
			c.WriteInt32(int32(state), wire.LittleEndian)
		}
	}

	// Плотная упаковка в порядке бит little-endian совпадает с
	// little-endian записью 64-битных слов.
	for _, w := range s.words {
		c.WriteUint64(w, wire.LittleEndian)
	}
}

// readBlockStorage читает слой, записанный EncodeTo.
func readBlockStorage(c *wire.Cursor) (*BlockStorage, error) {
	header, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}
	width := header >> 1
	mode := HashedIDs
	if header&1 == 1 {
		mode = RuntimeIDs
	}
	if !validBitWidth(width) {
		return nil, fmt.Errorf("width %d: %w", width, ErrInvalidBitWidth)
	}

	count, err := c.ReadUVarint32()
	if err != nil {
		return nil, err
	}
	if count == 0 || uint64(count) > 1<<width {
		return nil, fmt.Errorf("%d entries for width %d: %w", count, width, ErrPaletteOverflow)
	}
	if uint64(count) > uint64(c.Remaining()) {
		return nil, ErrTruncatedBuffer
	}

	palette := newPalette(mode)
	for i := uint32(0); i < count; i++ {
		var state int32
		if mode == RuntimeIDs {
			state, err = c.ReadZigZag32()
		} else {
			state, err = c.ReadInt32(wire.LittleEndian)
		}
		if err != nil {
			return nil, err
		}
		palette.add(uint32(state))
	}

	if c.Remaining() < packedBytes(width) {
		return nil, ErrTruncatedBuffer
	}
	words := make([]uint64, wordsFor(width))
	for i := range words {
		words[i], _ = c.ReadUint64(wire.LittleEndian)
	}

	s := &BlockStorage{bitWidth: width, words: words, palette: palette}
	for i := 0; i < BlocksPerStorage; i++ {
		if idx := s.index(i); idx >= palette.Len() {
			return nil, fmt.Errorf("index %d at %d, palette size %d: %w", idx, i, palette.Len(), ErrIndexOutOfPalette)
		}
	}
	return s, nil
}

// ===== SubChunk =====

// EncodeTo пишет саб-чанк: версия, количество слоёв, слои.
func (sc *SubChunk) EncodeTo(c *wire.Cursor) {
	c.WriteUint8(sc.version)
	c.WriteUint8(uint8(len(sc.layers)))
	for _, l := range sc.layers {
		l.EncodeTo(c)
	}
}

// Encode возвращает сериализованный саб-чанк.
func (sc *SubChunk) Encode() []byte {
	c := wire.NewWriter(2 + len(sc.layers)*(1+packedBytes(1)+2))
	sc.EncodeTo(c)
	return c.Bytes()
}

// DecodeSubChunk читает саб-чанк, занимающий весь буфер b.
func DecodeSubChunk(b []byte, air uint32) (*SubChunk, error) {
	c := wire.NewReader(b)
	sc, err := ReadSubChunk(c, air)
	if err != nil {
		return nil, err
	}
	if c.Remaining() > 0 {
		return nil, fmt.Errorf("%d bytes after sub chunk: %w", c.Remaining(), ErrTrailingData)
	}
	return sc, nil
}

// ReadSubChunk читает один саб-чанк из курсора.
func ReadSubChunk(c *wire.Cursor, air uint32) (*SubChunk, error) {
	version, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != SubChunkVersion8 && version != SubChunkVersion9 {
		return nil, fmt.Errorf("sub chunk version %d: %w", version, ErrUnsupportedVersion)
	}
	count, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}

	sc := &SubChunk{version: version, air: air, mode: HashedIDs, layers: make([]*BlockStorage, 0, count)}
	for i := 0; i < int(count); i++ {
		l, err := readBlockStorage(c)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if i == 0 {
			sc.mode = l.palette.mode
		}
		sc.layers = append(sc.layers, l)
	}
	return sc, nil
}

// ===== Chunk =====

// ChunkFormatVersion - версия формата колонки на диске.
const ChunkFormatVersion uint8 = 1

// Encode сериализует колонку: версия формата, минимальная секция,
// количество секций, для каждой секции байт присутствия и саб-чанк.
func (ch *Chunk) Encode() []byte {
	c := wire.NewWriter(64)
	c.WriteUint8(ChunkFormatVersion)
	c.WriteZigZag32(int32(ch.r.MinSection))
	c.WriteUVarint32(uint32(len(ch.sub)))
	for _, sc := range ch.sub {
		if sc == nil {
			c.WriteBool(false)
			continue
		}
		c.WriteBool(true)
		sc.EncodeTo(c)
	}
	return c.Bytes()
}

// DecodeChunk читает колонку, записанную Encode.
func DecodeChunk(b []byte, air uint32) (*Chunk, error) {
	c := wire.NewReader(b)
	version, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != ChunkFormatVersion {
		return nil, fmt.Errorf("chunk format %d: %w", version, ErrUnsupportedVersion)
	}
	minSection, err := c.ReadZigZag32()
	if err != nil {
		return nil, err
	}
	count, err := c.ReadUVarint32()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("empty section range: %w", ErrCoordinateOutOfRange)
	}
	// Каждой секции нужен минимум байт присутствия.
	if uint64(count) > uint64(c.Remaining()) {
		return nil, ErrTruncatedBuffer
	}

	ch := NewChunk(Range{MinSection: int(minSection), MaxSection: int(minSection) + int(count) - 1}, air, HashedIDs)
	modeSet := false
	for i := 0; i < int(count); i++ {
		present, err := c.ReadBool()
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		sc, err := ReadSubChunk(c, air)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", int(minSection)+i, err)
		}
		if !modeSet && len(sc.layers) > 0 {
			ch.mode, modeSet = sc.mode, true
		}
		ch.sub[i] = sc
	}
	if c.Remaining() > 0 {
		return nil, fmt.Errorf("%d bytes after chunk: %w", c.Remaining(), ErrTrailingData)
	}
	for _, sc := range ch.sub {
		if sc != nil && len(sc.layers) == 0 {
			sc.mode = ch.mode
		}
	}
	return ch, nil
}
