package codec

import (
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

// Encode пишет поля структуры v в порядке схемы. v - значение или указатель
// на структуру привязанного типа.
func (b *Binding) Encode(c *wire.Cursor, v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if !rv.IsValid() || rv.Type() != b.typ {
		return fmt.Errorf("encode %T with binding for %s: %w", v, b.typ, ErrKindMismatch)
	}
	return encodeFields(c, b.fields, rv)
}

// Decode читает поля в структуру, на которую указывает v.
func (b *Binding) Decode(c *wire.Cursor, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != b.typ {
		return fmt.Errorf("decode into %T with binding for %s: %w", v, b.typ, ErrKindMismatch)
	}
	return decodeFields(c, b.fields, rv.Elem())
}

func encodeFields(c *wire.Cursor, fields []node, v reflect.Value) error {
	for i := range fields {
		f := &fields[i]
		if err := encodeValue(c, f, v.FieldByIndex(f.index)); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

func decodeFields(c *wire.Cursor, fields []node, v reflect.Value) error {
	for i := range fields {
		f := &fields[i]
		if err := decodeValue(c, f, v.FieldByIndex(f.index)); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

func encodeValue(c *wire.Cursor, n *node, v reflect.Value) error {
	switch n.tag {
	case Bool:
		c.WriteBool(v.Bool())
	case Uint8:
		c.WriteUint8(uint8(v.Uint()))
	case Int8:
		c.WriteUint8(uint8(v.Int()))
	case Uint16, Uint32, Uint64:
		return c.WriteFixed(scalarSizes[n.tag], n.order, v.Uint())
	case Int16, Int32, Int64:
		return c.WriteFixed(scalarSizes[n.tag], n.order, uint64(v.Int()))
	case Float32:
		c.WriteFloat32(float32(v.Float()), n.order)
	case Float64:
		c.WriteFloat64(v.Float(), n.order)
	case UVarint32:
		c.WriteUVarint32(uint32(v.Uint()))
	case UVarint64:
		c.WriteUVarint(v.Uint())
	case ZigZag32:
		c.WriteZigZag32(int32(v.Int()))
	case ZigZag64:
		c.WriteZigZag64(v.Int())
	case String:
		c.WriteString(v.String())
	case ByteSlice:
		c.WriteByteSlice(v.Bytes())
	case UUID:
		c.WriteUUID(v.Interface().(uuid.UUID))
	case Vec3:
		vec := v.Interface().(mgl32.Vec3)
		for _, f := range vec {
			c.WriteFloat32(f, wire.LittleEndian)
		}
	case Vec2:
		vec := v.Interface().(mgl32.Vec2)
		for _, f := range vec {
			c.WriteFloat32(f, wire.LittleEndian)
		}
	case BlockPos:
		pos := v.Interface().(BlockPosition)
		c.WriteZigZag32(pos[0])
		c.WriteUVarint32(uint32(pos[1]))
		c.WriteZigZag32(pos[2])
	case Array:
		c.WriteUVarint32(uint32(v.Len()))
		for i := 0; i < v.Len(); i++ {
			if err := encodeValue(c, n.elem, v.Index(i)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case Optional:
		if v.IsNil() {
			c.WriteBool(false)
			return nil
		}
		c.WriteBool(true)
		return encodeValue(c, n.elem, v.Elem())
	case Composite:
		return encodeFields(c, n.fields, v)
	default:
		return fmt.Errorf("%s: %w", n.tag, ErrUnknownTag)
	}
	return nil
}

func decodeValue(c *wire.Cursor, n *node, v reflect.Value) error {
	switch n.tag {
	case Bool:
		b, err := c.ReadBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case Uint8:
		b, err := c.ReadUint8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(b))
	case Int8:
		b, err := c.ReadUint8()
		if err != nil {
			return err
		}
		v.SetInt(int64(int8(b)))
	case Uint16, Uint32, Uint64:
		u, err := c.ReadFixed(scalarSizes[n.tag], n.order)
		if err != nil {
			return err
		}
		v.SetUint(u)
	case Int16:
		u, err := c.ReadFixed(2, n.order)
		if err != nil {
			return err
		}
		v.SetInt(int64(int16(u)))
	case Int32:
		u, err := c.ReadFixed(4, n.order)
		if err != nil {
			return err
		}
		v.SetInt(int64(int32(u)))
	case Int64:
		u, err := c.ReadFixed(8, n.order)
		if err != nil {
			return err
		}
		v.SetInt(int64(u))
	case Float32:
		f, err := c.ReadFloat32(n.order)
		if err != nil {
			return err
		}
		v.SetFloat(float64(f))
	case Float64:
		f, err := c.ReadFloat64(n.order)
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case UVarint32:
		u, err := c.ReadUVarint32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(u))
	case UVarint64:
		u, err := c.ReadUVarint()
		if err != nil {
			return err
		}
		v.SetUint(u)
	case ZigZag32:
		i, err := c.ReadZigZag32()
		if err != nil {
			return err
		}
		v.SetInt(int64(i))
	case ZigZag64:
		i, err := c.ReadZigZag64()
		if err != nil {
			return err
		}
		v.SetInt(i)
	case String:
		s, err := c.ReadString()
		if err != nil {
			return err
		}
		v.SetString(s)
	case ByteSlice:
		b, err := c.ReadByteSlice()
		if err != nil {
			return err
		}
		if len(b) == 0 {
			b = nil
		}
		v.SetBytes(b)
	case UUID:
		id, err := c.ReadUUID()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(id))
	case Vec3:
		var vec mgl32.Vec3
		if err := readFloats(c, vec[:]); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(vec))
	case Vec2:
		var vec mgl32.Vec2
		if err := readFloats(c, vec[:]); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(vec))
	case BlockPos:
		var pos BlockPosition
		x, err := c.ReadZigZag32()
		if err != nil {
			return err
		}
		y, err := c.ReadUVarint32()
		if err != nil {
			return err
		}
		z, err := c.ReadZigZag32()
		if err != nil {
			return err
		}
		pos[0], pos[1], pos[2] = x, int32(y), z
		v.Set(reflect.ValueOf(pos))
	case Array:
		count, err := c.ReadUVarint32()
		if err != nil {
			return err
		}
		// Счётчик, который заведомо не поместится в остаток буфера,
		// отклоняется до выделения памяти.
		if uint64(count)*uint64(n.elem.minSize) > uint64(c.Remaining()) {
			return wire.ErrTruncatedBuffer
		}
		if count == 0 {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		slice := reflect.MakeSlice(v.Type(), int(count), int(count))
		for i := 0; i < int(count); i++ {
			if err := decodeValue(c, n.elem, slice.Index(i)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		v.Set(slice)
	case Optional:
		present, err := c.ReadBool()
		if err != nil {
			return err
		}
		if !present {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		ptr := reflect.New(v.Type().Elem())
		if err := decodeValue(c, n.elem, ptr.Elem()); err != nil {
			return err
		}
		v.Set(ptr)
	case Composite:
		return decodeFields(c, n.fields, v)
	default:
		return fmt.Errorf("%s: %w", n.tag, ErrUnknownTag)
	}
	return nil
}

func readFloats(c *wire.Cursor, dst []float32) error {
	for i := range dst {
		f, err := c.ReadFloat32(wire.LittleEndian)
		if err != nil {
			return err
		}
		dst[i] = f
	}
	return nil
}
