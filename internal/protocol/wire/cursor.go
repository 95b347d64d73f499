// Package wire содержит примитивы бинарного кодирования: курсор чтения/записи
// поверх растущего буфера, varint/zigzag и числа фиксированной ширины с явным
// порядком байт.
package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"
)

var (
	// ErrTruncatedBuffer возвращается, когда в буфере меньше байт, чем требует тип.
	ErrTruncatedBuffer = errors.New("wire: truncated buffer")
	// ErrVarintOverflow возвращается, когда varint длиннее допустимой ширины.
	ErrVarintOverflow = errors.New("wire: varint overflow")
	// ErrInvalidWidth возвращается для ширины фиксированного поля не из {1,2,4,8}.
	ErrInvalidWidth = errors.New("wire: invalid fixed width")
	// ErrInvalidBool возвращается, когда байт bool не равен 0 или 1.
	ErrInvalidBool = errors.New("wire: invalid bool value")
)

// Максимальная длина varint в байтах.
const (
	MaxVarintLen32 = 5
	MaxVarintLen64 = 10
)

// Endianness задаёт порядок байт для полей фиксированной ширины.
// Нулевое значение - BigEndian.
type Endianness uint8

const (
	BigEndian Endianness = iota
	LittleEndian
)

// String возвращает строковое представление порядка байт
func (e Endianness) String() string {
	if e == LittleEndian {
		return "little"
	}
	return "big"
}

func (e Endianness) order() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Cursor читает и пишет примитивы поверх одного буфера.
// Запись всегда дописывает в конец, чтение двигает отдельную позицию.
// Cursor не потокобезопасен: один курсор на один вызов кодека.
type Cursor struct {
	buf []byte
	off int
}

// NewReader создаёт курсор для чтения готового payload.
func NewReader(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// NewWriter создаёт пустой курсор для записи с заданной ёмкостью.
func NewWriter(capacity int) *Cursor {
	return &Cursor{buf: make([]byte, 0, capacity)}
}

// Bytes возвращает весь записанный буфер.
func (c *Cursor) Bytes() []byte { return c.buf }

// Len возвращает длину буфера.
func (c *Cursor) Len() int { return len(c.buf) }

// Offset возвращает текущую позицию чтения.
func (c *Cursor) Offset() int { return c.off }

// Remaining возвращает количество непрочитанных байт.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Reset очищает буфер, сохраняя выделенную память.
func (c *Cursor) Reset() {
	c.buf = c.buf[:0]
	c.off = 0
}

// next возвращает следующие n байт и сдвигает позицию чтения.
func (c *Cursor) next(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ErrTruncatedBuffer
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ===== Varint =====

// WriteUVarint пишет беззнаковый varint: 7 бит данных на байт, старший бит -
// признак продолжения, младшие группы первыми.
func (c *Cursor) WriteUVarint(v uint64) {
	for v >= 0x80 {
		c.buf = append(c.buf, byte(v)|0x80)
		v >>= 7
	}
	c.buf = append(c.buf, byte(v))
}

// ReadUVarint читает беззнаковый varint длиной не более 10 байт.
func (c *Cursor) ReadUVarint() (uint64, error) {
	var v uint64
	for i := 0; i < MaxVarintLen64; i++ {
		if c.off >= len(c.buf) {
			return 0, ErrTruncatedBuffer
		}
		b := c.buf[c.off]
		c.off++
		if i == MaxVarintLen64-1 && b > 1 {
			return 0, ErrVarintOverflow
		}
		v |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrVarintOverflow
}

// WriteUVarint32 пишет беззнаковый 32-битный varint.
func (c *Cursor) WriteUVarint32(v uint32) { c.WriteUVarint(uint64(v)) }

// ReadUVarint32 читает беззнаковый varint длиной не более 5 байт.
func (c *Cursor) ReadUVarint32() (uint32, error) {
	var v uint32
	for i := 0; i < MaxVarintLen32; i++ {
		if c.off >= len(c.buf) {
			return 0, ErrTruncatedBuffer
		}
		b := c.buf[c.off]
		c.off++
		if i == MaxVarintLen32-1 && b > 0x0f {
			return 0, ErrVarintOverflow
		}
		v |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrVarintOverflow
}

// ZigZag64 отображает знаковое число в беззнаковое: малые по модулю
// отрицательные значения остаются короткими.
func ZigZag64(n int64) uint64 { return uint64(n<<1) ^ uint64(n>>63) }

// UnZigZag64 обратное преобразование к ZigZag64.
func UnZigZag64(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

// WriteZigZag64 пишет знаковое 64-битное число как zigzag varint.
func (c *Cursor) WriteZigZag64(v int64) { c.WriteUVarint(ZigZag64(v)) }

// ReadZigZag64 читает знаковое 64-битное zigzag varint число.
func (c *Cursor) ReadZigZag64() (int64, error) {
	u, err := c.ReadUVarint()
	if err != nil {
		return 0, err
	}
	return UnZigZag64(u), nil
}

// WriteZigZag32 пишет знаковое 32-битное число как zigzag varint.
func (c *Cursor) WriteZigZag32(v int32) {
	c.WriteUVarint32(uint32(v<<1) ^ uint32(v>>31))
}

// ReadZigZag32 читает знаковое 32-битное zigzag varint число.
func (c *Cursor) ReadZigZag32() (int32, error) {
	u, err := c.ReadUVarint32()
	if err != nil {
		return 0, err
	}
	return int32(u>>1) ^ -int32(u&1), nil
}

// ===== Фиксированная ширина =====

// WriteFixed пишет целое шириной 1, 2, 4 или 8 байт в указанном порядке.
func (c *Cursor) WriteFixed(width int, order Endianness, v uint64) error {
	var tmp [8]byte
	switch width {
	case 1:
		c.buf = append(c.buf, byte(v))
		return nil
	case 2:
		order.order().PutUint16(tmp[:2], uint16(v))
	case 4:
		order.order().PutUint32(tmp[:4], uint32(v))
	case 8:
		order.order().PutUint64(tmp[:8], v)
	default:
		return ErrInvalidWidth
	}
	c.buf = append(c.buf, tmp[:width]...)
	return nil
}

// ReadFixed читает целое шириной 1, 2, 4 или 8 байт в указанном порядке.
func (c *Cursor) ReadFixed(width int, order Endianness) (uint64, error) {
	switch width {
	case 1, 2, 4, 8:
	default:
		return 0, ErrInvalidWidth
	}
	b, err := c.next(width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(order.order().Uint16(b)), nil
	case 4:
		return uint64(order.order().Uint32(b)), nil
	default:
		return order.order().Uint64(b), nil
	}
}

// WriteUint8 пишет один байт.
func (c *Cursor) WriteUint8(v uint8) { c.buf = append(c.buf, v) }

// ReadUint8 читает один байт.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteUint16 пишет uint16 в указанном порядке байт.
func (c *Cursor) WriteUint16(v uint16, order Endianness) { _ = c.WriteFixed(2, order, uint64(v)) }

// ReadUint16 читает uint16 в указанном порядке байт.
func (c *Cursor) ReadUint16(order Endianness) (uint16, error) {
	v, err := c.ReadFixed(2, order)
	return uint16(v), err
}

// WriteUint32 пишет uint32 в указанном порядке байт.
func (c *Cursor) WriteUint32(v uint32, order Endianness) { _ = c.WriteFixed(4, order, uint64(v)) }

// ReadUint32 читает uint32 в указанном порядке байт.
func (c *Cursor) ReadUint32(order Endianness) (uint32, error) {
	v, err := c.ReadFixed(4, order)
	return uint32(v), err
}

// WriteUint64 пишет uint64 в указанном порядке байт.
func (c *Cursor) WriteUint64(v uint64, order Endianness) { _ = c.WriteFixed(8, order, v) }

// ReadUint64 читает uint64 в указанном порядке байт.
func (c *Cursor) ReadUint64(order Endianness) (uint64, error) {
	return c.ReadFixed(8, order)
}

// WriteInt16 пишет int16 в указанном порядке байт.
func (c *Cursor) WriteInt16(v int16, order Endianness) { c.WriteUint16(uint16(v), order) }

// ReadInt16 читает int16 в указанном порядке байт.
func (c *Cursor) ReadInt16(order Endianness) (int16, error) {
	v, err := c.ReadUint16(order)
	return int16(v), err
}

// WriteInt32 пишет int32 в указанном порядке байт.
func (c *Cursor) WriteInt32(v int32, order Endianness) { c.WriteUint32(uint32(v), order) }

// ReadInt32 читает int32 в указанном порядке байт.
func (c *Cursor) ReadInt32(order Endianness) (int32, error) {
	v, err := c.ReadUint32(order)
	return int32(v), err
}

// WriteInt64 пишет int64 в указанном порядке байт.
func (c *Cursor) WriteInt64(v int64, order Endianness) { c.WriteUint64(uint64(v), order) }

// ReadInt64 читает int64 в указанном порядке байт.
func (c *Cursor) ReadInt64(order Endianness) (int64, error) {
	v, err := c.ReadUint64(order)
	return int64(v), err
}

// WriteFloat32 пишет float32 в указанном порядке байт.
func (c *Cursor) WriteFloat32(v float32, order Endianness) {
	c.WriteUint32(math.Float32bits(v), order)
}

// ReadFloat32 читает float32 в указанном порядке байт.
func (c *Cursor) ReadFloat32(order Endianness) (float32, error) {
	v, err := c.ReadUint32(order)
	return math.Float32frombits(v), err
}

// WriteFloat64 пишет float64 в указанном порядке байт.
func (c *Cursor) WriteFloat64(v float64, order Endianness) {
	c.WriteUint64(math.Float64bits(v), order)
}

// ReadFloat64 читает float64 в указанном порядке байт.
func (c *Cursor) ReadFloat64(order Endianness) (float64, error) {
	v, err := c.ReadUint64(order)
	return math.Float64frombits(v), err
}

// WriteBool пишет bool одним байтом.
func (c *Cursor) WriteBool(v bool) {
	if v {
		c.buf = append(c.buf, 1)
		return
	}
	c.buf = append(c.buf, 0)
}

// ReadBool читает bool; любые значения кроме 0 и 1 считаются ошибкой.
func (c *Cursor) ReadBool() (bool, error) {
	b, err := c.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

// ===== Строки и байты =====

// WriteBytes дописывает сырые байты без префикса длины.
func (c *Cursor) WriteBytes(b []byte) { c.buf = append(c.buf, b...) }

// ReadBytes читает n сырых байт. Возвращает копию.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// WriteByteSlice пишет байты с префиксом длины UVarint.
func (c *Cursor) WriteByteSlice(b []byte) {
	c.WriteUVarint32(uint32(len(b)))
	c.buf = append(c.buf, b...)
}

// ReadByteSlice читает байты с префиксом длины UVarint.
func (c *Cursor) ReadByteSlice() ([]byte, error) {
	n, err := c.ReadUVarint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(c.Remaining()) {
		return nil, ErrTruncatedBuffer
	}
	return c.ReadBytes(int(n))
}

// WriteString пишет строку UTF-8 с префиксом длины UVarint.
func (c *Cursor) WriteString(s string) {
	c.WriteUVarint32(uint32(len(s)))
	c.buf = append(c.buf, s...)
}

// ReadString читает строку с префиксом длины UVarint.
func (c *Cursor) ReadString() (string, error) {
	n, err := c.ReadUVarint32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(c.Remaining()) {
		return "", ErrTruncatedBuffer
	}
	b, _ := c.next(int(n))
	return string(b), nil
}

// WriteUUID пишет UUID в порядке Bedrock: старшие 8 байт как little-endian
// uint64, затем младшие 8 байт как little-endian uint64.
func (c *Cursor) WriteUUID(id uuid.UUID) {
	c.WriteUint64(binary.BigEndian.Uint64(id[:8]), LittleEndian)
	c.WriteUint64(binary.BigEndian.Uint64(id[8:]), LittleEndian)
}

// ReadUUID читает UUID, записанный WriteUUID.
func (c *Cursor) ReadUUID() (uuid.UUID, error) {
	var id uuid.UUID
	if c.Remaining() < 16 {
		return id, ErrTruncatedBuffer
	}
	msb, _ := c.ReadUint64(LittleEndian)
	lsb, _ := c.ReadUint64(LittleEndian)
	binary.BigEndian.PutUint64(id[:8], msb)
	binary.BigEndian.PutUint64(id[8:], lsb)
	return id, nil
}
