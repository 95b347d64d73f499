package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

const (
	air   uint32 = 0
	stone uint32 = 17
	water uint32 = 42
)

func TestStorageDefaultState(t *testing.T) {
	s := NewBlockStorage(air, RuntimeIDs)
	assert.Equal(t, uint8(1), s.BitWidth())
	assert.True(t, s.IsEmpty())

	state, err := s.State(15, 15, 15)
	require.NoError(t, err)
	assert.Equal(t, air, state)
}

func TestStorageSetGet(t *testing.T) {
	s := NewBlockStorage(air, RuntimeIDs)
	require.NoError(t, s.SetState(3, 5, 9, stone))

	state, err := s.State(3, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, stone, state)

	// Линейный индекс (y<<8)|(z<<4)|x
	assert.Equal(t, 1, s.index(5<<8|9<<4|3))
	assert.Equal(t, []uint32{air, stone}, s.Palette().States())
	assert.False(t, s.IsEmpty())

	// Остальные блоки не изменились
	other, err := s.State(9, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, air, other)
}

func TestStorageCoordinateOutOfRange(t *testing.T) {
	s := NewBlockStorage(air, RuntimeIDs)
	_, err := s.State(16, 0, 0)
	assert.ErrorIs(t, err, ErrCoordinateOutOfRange)
	assert.ErrorIs(t, s.SetState(0, -1, 0, stone), ErrCoordinateOutOfRange)
}

func TestPaletteGrowth(t *testing.T) {
	s := NewBlockStorage(air, RuntimeIDs)

	// Ширина после добавления n-го различного состояния
	expected := map[int]uint8{2: 1, 3: 2, 4: 2, 5: 3, 9: 4, 17: 5, 33: 6, 65: 8, 256: 8, 257: 16, 300: 16}
	for n := 2; n <= 300; n++ {
		i := n - 2
		require.NoError(t, s.SetState(i&15, i>>8, (i>>4)&15, uint32(1000+n)))
		if w, ok := expected[n]; ok {
			assert.Equal(t, w, s.BitWidth(), "ширина для %d состояний", n)
		}
		assert.LessOrEqual(t, s.Palette().Len(), 1<<s.BitWidth())
	}

	// После всех перепаковок значения сохранились
	for n := 2; n <= 300; n++ {
		i := n - 2
		state, err := s.State(i&15, i>>8, (i>>4)&15)
		require.NoError(t, err)
		assert.Equal(t, uint32(1000+n), state)
	}
}

func TestStorageStraddlingWidths(t *testing.T) {
	// Ширины 3, 5 и 6 не делят 64, индексы пересекают границы слов
	for _, states := range []int{5, 17, 33} {
		s := NewBlockStorage(air, HashedIDs)
		for i := 0; i < BlocksPerStorage; i++ {
			require.NoError(t, s.SetState(i&15, i>>8, (i>>4)&15, uint32(i%states)))
		}
		for i := 0; i < BlocksPerStorage; i++ {
			state, err := s.State(i&15, i>>8, (i>>4)&15)
			require.NoError(t, err)
			require.Equal(t, uint32(i%states), state, "блок %d при %d состояниях", i, states)
		}
	}
}

func TestStorageCompact(t *testing.T) {
	s := NewBlockStorage(air, RuntimeIDs)
	for i := 1; i <= 20; i++ {
		require.NoError(t, s.SetState(i%16, 0, i/16, uint32(i)))
	}
	assert.Equal(t, uint8(5), s.BitWidth())

	// Перезаписываем всё, кроме одного блока
	for i := 1; i <= 20; i++ {
		if i != 7 {
			require.NoError(t, s.SetState(i%16, 0, i/16, air))
		}
	}
	assert.Equal(t, 21, s.Palette().Len(), "палитра не уменьшается сама")

	s.Compact()
	assert.Equal(t, []uint32{air, 7}, s.Palette().States())
	assert.Equal(t, uint8(1), s.BitWidth())

	state, err := s.State(7, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), state)
}

func TestStorageFullPaletteCompacts(t *testing.T) {
	s := NewBlockStorage(air, RuntimeIDs)
	// Каждое новое состояние вытесняет предыдущее, палитра растёт до 2^16
	for state := uint32(1); state <= maxPaletteSize; state++ {
		require.NoError(t, s.SetState(0, 0, 0, state))
		require.LessOrEqual(t, s.Palette().Len(), 1<<s.BitWidth())
	}

	state, err := s.State(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(maxPaletteSize), state)
	assert.Equal(t, []uint32{air, maxPaletteSize - 1, maxPaletteSize}, s.Palette().States(),
		"заполненная палитра уплотнена перед добавлением")
	assert.Equal(t, uint8(2), s.BitWidth())

	sc := &SubChunk{version: DefaultSubChunkVersion, mode: RuntimeIDs, air: air, layers: []*BlockStorage{s}}
	decoded, err := DecodeSubChunk(sc.Encode(), air)
	require.NoError(t, err)
	state, err = decoded.StateAt(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(maxPaletteSize), state)
}

func TestSubChunkLazyLayers(t *testing.T) {
	sc := NewSubChunk(air, RuntimeIDs)
	assert.True(t, sc.IsEmpty())
	assert.Len(t, sc.Layers(), 0)

	// Чтение несуществующего слоя не создаёт его
	state, err := sc.State(0, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, air, state)
	assert.Len(t, sc.Layers(), 0)

	_, err = sc.State(0, 16, 0, 1)
	assert.ErrorIs(t, err, ErrCoordinateOutOfRange)

	// Запись в слой 1 создаёт слои 0 и 1
	require.NoError(t, sc.SetState(1, 2, 3, 1, water))
	require.Len(t, sc.Layers(), 2)
	assert.True(t, sc.Layers()[0].IsEmpty())
	assert.False(t, sc.IsEmpty())

	state, err = sc.State(1, 2, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, water, state)

	_, err = sc.Layer(MaxLayers)
	assert.ErrorIs(t, err, ErrLayerOutOfRange)
}

func TestSubChunkIsEmptyAfterReset(t *testing.T) {
	sc := NewSubChunk(air, RuntimeIDs)
	require.NoError(t, sc.SetStateAt(4, 4, 4, stone))
	assert.False(t, sc.IsEmpty())
	require.NoError(t, sc.SetStateAt(4, 4, 4, air))
	assert.True(t, sc.IsEmpty())

	sc.Compact()
	assert.Len(t, sc.Layers(), 0)
}

func TestSubChunkRoundTrip(t *testing.T) {
	for _, mode := range []PaletteMode{RuntimeIDs, HashedIDs} {
		sc := NewSubChunk(air, mode)
		require.NoError(t, sc.SetStateAt(3, 5, 9, stone))
		require.NoError(t, sc.SetState(3, 5, 9, 1, water))
		require.NoError(t, sc.SetStateAt(0, 0, 0, 0xFFFFFFF0))

		encoded := sc.Encode()
		// версия, слои, заголовок слоя 0 с шириной 2, палитра из трёх состояний
		assert.Equal(t, DefaultSubChunkVersion, encoded[0])
		assert.Equal(t, byte(2), encoded[1])
		header := byte(2 << 1)
		if mode == RuntimeIDs {
			header |= 1
		}
		assert.Equal(t, header, encoded[2])
		assert.Equal(t, byte(3), encoded[3])

		decoded, err := DecodeSubChunk(encoded, air)
		require.NoError(t, err)
		assert.Equal(t, mode, decoded.Mode())

		got, err := decoded.State(3, 5, 9, 0)
		require.NoError(t, err)
		assert.Equal(t, stone, got)
		got, err = decoded.StateAt(0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xFFFFFFF0), got)

		// Повторная сериализация идемпотентна
		assert.Equal(t, encoded, decoded.Encode())
	}
}

func TestSubChunkRoundTripEveryBlock(t *testing.T) {
	for _, mode := range []PaletteMode{RuntimeIDs, HashedIDs} {
		sc := NewSubChunk(air, mode)
		// 20 состояний в слое 0 дают ширину 5, индексы пересекают границы слов
		for i := 0; i < BlocksPerStorage; i++ {
			require.NoError(t, sc.SetState(i&15, i>>8, (i>>4)&15, 0, uint32(i%20)))
			if i%3 == 0 {
				require.NoError(t, sc.SetState(i&15, i>>8, (i>>4)&15, 1, water+uint32(i%5)))
			}
		}
		require.Equal(t, uint8(5), sc.Layers()[0].BitWidth())

		decoded, err := DecodeSubChunk(sc.Encode(), air)
		require.NoError(t, err)
		require.Len(t, decoded.Layers(), 2)

		for layer := 0; layer < 2; layer++ {
			for y := 0; y < 16; y++ {
				for z := 0; z < 16; z++ {
					for x := 0; x < 16; x++ {
						want, err := sc.State(x, y, z, layer)
						require.NoError(t, err)
						got, err := decoded.State(x, y, z, layer)
						require.NoError(t, err)
						require.Equal(t, want, got, "блок %d %d %d слой %d", x, y, z, layer)
					}
				}
			}
		}
	}
}

func TestSubChunkScenario(t *testing.T) {
	sc := NewSubChunk(air, RuntimeIDs)
	require.NoError(t, sc.SetState(3, 5, 9, 0, 17))

	decoded, err := DecodeSubChunk(sc.Encode(), air)
	require.NoError(t, err)
	state, err := decoded.State(3, 5, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(17), state)
}

func TestSubChunkPackedSize(t *testing.T) {
	sc := NewSubChunk(air, HashedIDs)
	for i := 0; i < 5; i++ {
		require.NoError(t, sc.SetStateAt(i, 0, 0, uint32(i+1)))
	}
	s, err := sc.Layer(0)
	require.NoError(t, err)
	require.Equal(t, uint8(3), s.BitWidth())

	// 2 байта заголовка, 1 байт ширины, 1 байт количества, 6*4 байт палитры, 1536 байт индексов
	encoded := sc.Encode()
	assert.Len(t, encoded, 2+1+1+6*4+4096*3/8)
	assert.Equal(t, byte(6), encoded[3], "палитра идёт перед индексами")
	assert.Equal(t, []byte{1, 0, 0, 0}, encoded[4+4:4+8], "второе состояние палитры int32 LE")
}

func TestDecodeSubChunkErrors(t *testing.T) {
	sc := NewSubChunk(air, RuntimeIDs)
	require.NoError(t, sc.SetStateAt(0, 0, 0, stone))
	valid := sc.Encode()

	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{0, 1, 2, 3, 100, len(valid) - 1} {
			_, err := DecodeSubChunk(valid[:n], air)
			assert.ErrorIs(t, err, ErrTruncatedBuffer, "длина %d", n)
		}
	})

	t.Run("version", func(t *testing.T) {
		bad := append([]byte{7}, valid[1:]...)
		_, err := DecodeSubChunk(bad, air)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)

		v9 := append([]byte{SubChunkVersion9}, valid[1:]...)
		decoded, err := DecodeSubChunk(v9, air)
		require.NoError(t, err)
		assert.Equal(t, SubChunkVersion9, decoded.Version())
	})

	t.Run("bit width", func(t *testing.T) {
		bad := append([]byte(nil), valid...)
		bad[2] = 7<<1 | 1
		_, err := DecodeSubChunk(bad, air)
		assert.ErrorIs(t, err, ErrInvalidBitWidth)

		bad[2] = 0
		_, err = DecodeSubChunk(bad, air)
		assert.ErrorIs(t, err, ErrInvalidBitWidth)
	})

	// valid: версия, слои, заголовок, палитра [2, air, stone], 512 байт индексов
	require.Equal(t, []byte{2, 0, byte(stone << 1)}, valid[3:6])
	require.Len(t, valid, 6+512)

	t.Run("palette overflow", func(t *testing.T) {
		bad := append([]byte(nil), valid[:3]...)
		bad = append(bad, 3, 0, 2, 4)
		_, err := DecodeSubChunk(bad, air)
		assert.ErrorIs(t, err, ErrPaletteOverflow)
	})

	t.Run("index out of palette", func(t *testing.T) {
		bad := append([]byte(nil), valid[:3]...)
		bad = append(bad, 1, 0)
		bad = append(bad, valid[6:]...)
		_, err := DecodeSubChunk(bad, air)
		assert.ErrorIs(t, err, ErrIndexOutOfPalette)
	})

	t.Run("trailing", func(t *testing.T) {
		_, err := DecodeSubChunk(append(append([]byte(nil), valid...), 0), air)
		assert.ErrorIs(t, err, ErrTrailingData)
	})
}

func TestChunkWorldCoordinates(t *testing.T) {
	ch := NewChunk(Overworld, air, RuntimeIDs)
	assert.Equal(t, 24, ch.Range().Sections())
	assert.Equal(t, -64, ch.Range().MinY())
	assert.Equal(t, 319, ch.Range().MaxY())

	require.NoError(t, ch.SetState(3, -60, 9, 0, stone))
	require.NoError(t, ch.SetState(3, 100, 9, 1, water))

	state, err := ch.State(3, -60, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, stone, state)

	state, err = ch.State(3, 100, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, water, state)

	// Секция -4 создана, секция 0 - нет
	assert.NotNil(t, ch.SubChunks()[0])
	assert.Nil(t, ch.SubChunks()[4])

	_, err = ch.State(0, 320, 0, 0)
	assert.ErrorIs(t, err, ErrCoordinateOutOfRange)
	assert.ErrorIs(t, ch.SetState(0, -65, 0, 0, stone), ErrCoordinateOutOfRange)
	assert.ErrorIs(t, ch.SetState(16, 0, 0, 0, stone), ErrCoordinateOutOfRange)
	assert.Nil(t, ch.SubChunks()[4], "ошибочная запись не создаёт секцию")

	_, err = ch.SubChunk(20)
	assert.ErrorIs(t, err, ErrCoordinateOutOfRange)
}

func TestChunkHighestBlock(t *testing.T) {
	ch := NewChunk(Overworld, air, RuntimeIDs)
	_, ok := ch.HighestBlock(0, 0)
	assert.False(t, ok)

	require.NoError(t, ch.SetState(2, 70, 2, 0, stone))
	require.NoError(t, ch.SetState(2, -10, 2, 0, stone))
	y, ok := ch.HighestBlock(2, 2)
	require.True(t, ok)
	assert.Equal(t, 70, y)

	_, ok = ch.HighestBlock(3, 2)
	assert.False(t, ok)
}

func TestChunkRoundTrip(t *testing.T) {
	ch := NewChunk(Overworld, air, HashedIDs)
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			require.NoError(t, ch.SetState(x, -64, z, 0, 7))
			require.NoError(t, ch.SetState(x, 60+(x+z)%4, z, 0, stone))
		}
	}
	require.NoError(t, ch.SetState(5, 62, 5, 1, water))

	encoded := ch.Encode()
	decoded, err := DecodeChunk(encoded, air)
	require.NoError(t, err)
	assert.Equal(t, Overworld, decoded.Range())

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			for y := -64; y < 80; y++ {
				want, _ := ch.State(x, y, z, 0)
				got, err := decoded.State(x, y, z, 0)
				require.NoError(t, err)
				require.Equal(t, want, got, "блок %d %d %d", x, y, z)
			}
		}
	}
	got, err := decoded.State(5, 62, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, water, got)

	assert.Equal(t, encoded, decoded.Encode())
}

func TestDecodeChunkErrors(t *testing.T) {
	ch := NewChunk(Range{MinSection: 0, MaxSection: 1}, air, RuntimeIDs)
	require.NoError(t, ch.SetState(0, 0, 0, 0, stone))
	valid := ch.Encode()

	_, err := DecodeChunk(append([]byte{9}, valid[1:]...), air)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeChunk(valid[:len(valid)-1], air)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)

	_, err = DecodeChunk(append(append([]byte(nil), valid...), 1), air)
	assert.ErrorIs(t, err, ErrTrailingData)

	// Количество секций больше остатка буфера
	w := wire.NewWriter(8)
	w.WriteUint8(ChunkFormatVersion)
	w.WriteZigZag32(0)
	w.WriteUVarint32(1 << 20)
	_, err = DecodeChunk(w.Bytes(), air)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)
}

func TestChunkCompactAndNetworkPayload(t *testing.T) {
	ch := NewChunk(Range{MinSection: 0, MaxSection: 3}, air, RuntimeIDs)
	require.NoError(t, ch.SetState(0, 40, 0, 0, stone))
	require.NoError(t, ch.SetState(0, 60, 0, 0, stone))
	require.NoError(t, ch.SetState(0, 60, 0, 0, air))

	subs := ch.NetworkSubChunks()
	require.Len(t, subs, 3, "секции 0..2, секция 3 пуста")
	assert.Equal(t, []byte{DefaultSubChunkVersion, 0}, subs[0], "отсутствующая секция без слоёв")

	payload, count := ch.NetworkPayload()
	assert.Equal(t, uint32(3), count)
	assert.Len(t, payload, len(subs[0])+len(subs[1])+len(subs[2]))

	ch.Compact()
	assert.Nil(t, ch.SubChunks()[3])
	assert.NotNil(t, ch.SubChunks()[2])

	empty := NewChunk(Overworld, air, RuntimeIDs)
	assert.True(t, empty.IsEmpty())
	payload, count = empty.NetworkPayload()
	assert.Empty(t, payload)
	assert.Equal(t, uint32(0), count)
}
