package codec

import (
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

var (
	uuidType     = reflect.TypeOf(uuid.UUID{})
	vec3Type     = reflect.TypeOf(mgl32.Vec3{})
	vec2Type     = reflect.TypeOf(mgl32.Vec2{})
	blockPosType = reflect.TypeOf(BlockPosition{})
)

// node - скомпилированное поле: тег, индекс поля в структуре и вложенные узлы.
type node struct {
	name   string
	tag    Tag
	order  wire.Endianness
	index  []int
	elem   *node
	fields []node
	// minSize - минимальный размер закодированного значения в байтах,
	// используется для ранней проверки счётчика массивов.
	minSize int
}

// Binding - схема, проверенная против конкретного Go-типа.
// Binding неизменяем и безопасен для параллельного использования.
type Binding struct {
	typ    reflect.Type
	fields []node
}

// Bind проверяет схему против структуры typ (или указателя на неё) и
// заранее вычисляет индексы полей.
func Bind(typ reflect.Type, schema Schema) (*Binding, error) {
	if typ == nil {
		return nil, fmt.Errorf("nil type: %w", ErrKindMismatch)
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	fields, err := compileStruct(typ, schema)
	if err != nil {
		return nil, err
	}
	return &Binding{typ: typ, fields: fields}, nil
}

// Type возвращает тип структуры, к которой привязана схема.
func (b *Binding) Type() reflect.Type { return b.typ }

func compileStruct(typ reflect.Type, schema Schema) ([]node, error) {
	if len(schema) == 0 {
		return nil, ErrEmptySchema
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct: %w", typ, ErrKindMismatch)
	}
	nodes := make([]node, 0, len(schema))
	for _, spec := range schema {
		sf, ok := typ.FieldByName(spec.Name)
		if !ok || sf.PkgPath != "" {
			return nil, fmt.Errorf("%s.%s: %w", typ.Name(), spec.Name, ErrUnknownField)
		}
		n, err := compile(spec, sf.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ.Name(), spec.Name, err)
		}
		n.index = sf.Index
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// compile проверяет совместимость тега с Go-типом.
func compile(spec FieldSpec, typ reflect.Type) (node, error) {
	n := node{name: spec.Name, tag: spec.Tag, order: spec.Order}
	mismatch := func() (node, error) {
		return node{}, fmt.Errorf("%s cannot hold %s: %w", typ, spec.Tag, ErrKindMismatch)
	}

	switch spec.Tag {
	case Bool, Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64,
		Float32, Float64, UVarint32, UVarint64, ZigZag32, ZigZag64:
		if typ.Kind() != scalarKinds[spec.Tag] {
			return mismatch()
		}
		n.minSize = scalarSizes[spec.Tag]
	case String:
		if typ.Kind() != reflect.String {
			return mismatch()
		}
		n.minSize = 1
	case ByteSlice:
		if typ.Kind() != reflect.Slice || typ.Elem().Kind() != reflect.Uint8 {
			return mismatch()
		}
		n.minSize = 1
	case UUID:
		if typ != uuidType {
			return mismatch()
		}
		n.minSize = 16
	case Vec3:
		if typ != vec3Type {
			return mismatch()
		}
		n.minSize = 12
	case Vec2:
		if typ != vec2Type {
			return mismatch()
		}
		n.minSize = 8
	case BlockPos:
		if typ != blockPosType {
			return mismatch()
		}
		n.minSize = 3
	case Array:
		if spec.Elem == nil {
			return node{}, fmt.Errorf("array without element: %w", ErrUnknownTag)
		}
		if typ.Kind() != reflect.Slice {
			return mismatch()
		}
		elem, err := compile(*spec.Elem, typ.Elem())
		if err != nil {
			return node{}, err
		}
		n.elem = &elem
		n.minSize = 1
	case Optional:
		if spec.Elem == nil {
			return node{}, fmt.Errorf("optional without element: %w", ErrUnknownTag)
		}
		if typ.Kind() != reflect.Ptr {
			return mismatch()
		}
		elem, err := compile(*spec.Elem, typ.Elem())
		if err != nil {
			return node{}, err
		}
		n.elem = &elem
		n.minSize = 1
	case Composite:
		fields, err := compileStruct(typ, spec.Fields)
		if err != nil {
			return node{}, err
		}
		n.fields = fields
		for _, f := range fields {
			n.minSize += f.minSize
		}
	default:
		return node{}, fmt.Errorf("%s: %w", spec.Tag, ErrUnknownTag)
	}
	return n, nil
}

var scalarKinds = map[Tag]reflect.Kind{
	Bool: reflect.Bool, Uint8: reflect.Uint8, Int8: reflect.Int8,
	Uint16: reflect.Uint16, Int16: reflect.Int16,
	Uint32: reflect.Uint32, Int32: reflect.Int32,
	Uint64: reflect.Uint64, Int64: reflect.Int64,
	Float32: reflect.Float32, Float64: reflect.Float64,
	UVarint32: reflect.Uint32, UVarint64: reflect.Uint64,
	ZigZag32: reflect.Int32, ZigZag64: reflect.Int64,
}

var scalarSizes = map[Tag]int{
	Bool: 1, Uint8: 1, Int8: 1, Uint16: 2, Int16: 2,
	Uint32: 4, Int32: 4, Uint64: 8, Int64: 8, Float32: 4, Float64: 8,
	UVarint32: 1, UVarint64: 1, ZigZag32: 1, ZigZag64: 1,
}
