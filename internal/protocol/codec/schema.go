// Package codec описывает поля пакетов декларативно: каждому полю схемы
// сопоставлен тег типа, а Bind один раз проверяет схему против Go-структуры
// и готовит быстрый кодек поверх reflect.
package codec

import (
	"errors"
	"fmt"

	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

var (
	// ErrEmptySchema возвращается для схемы без полей.
	ErrEmptySchema = errors.New("codec: empty schema")
	// ErrUnknownField возвращается, если поле схемы не найдено в структуре или не экспортировано.
	ErrUnknownField = errors.New("codec: unknown field")
	// ErrKindMismatch возвращается, если Go-тип поля несовместим с тегом.
	ErrKindMismatch = errors.New("codec: kind mismatch")
	// ErrUnknownTag возвращается для неизвестного тега или тега без обязательного элемента.
	ErrUnknownTag = errors.New("codec: unknown tag")
)

// Tag - тип поля на проводе.
type Tag uint8

const (
	Bool Tag = iota + 1
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
	UVarint32
	UVarint64
	ZigZag32
	ZigZag64
	String
	ByteSlice
	UUID
	Vec3
	Vec2
	BlockPos
	Array
	Composite
	Optional
)

var tagNames = map[Tag]string{
	Bool: "bool", Uint8: "uint8", Int8: "int8", Uint16: "uint16", Int16: "int16",
	Uint32: "uint32", Int32: "int32", Uint64: "uint64", Int64: "int64",
	Float32: "float32", Float64: "float64", UVarint32: "uvarint32", UVarint64: "uvarint64",
	ZigZag32: "zigzag32", ZigZag64: "zigzag64", String: "string", ByteSlice: "bytes",
	UUID: "uuid", Vec3: "vec3", Vec2: "vec2", BlockPos: "blockpos",
	Array: "array", Composite: "composite", Optional: "optional",
}

// String возвращает имя тега
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// FieldSpec описывает одно поле схемы.
type FieldSpec struct {
	// Name - имя экспортированного поля Go-структуры. Для элементов массивов
	// и опциональных значений не используется.
	Name string
	Tag  Tag
	// Order - порядок байт для полей фиксированной ширины.
	Order wire.Endianness
	// Elem - спецификация элемента для Array и Optional.
	Elem *FieldSpec
	// Fields - вложенные поля для Composite.
	Fields Schema
}

// Schema - упорядоченный список полей. Порядок полей и есть формат на проводе.
type Schema []FieldSpec

// Field создаёт поле с порядком байт по умолчанию (big-endian).
func Field(name string, tag Tag) FieldSpec {
	return FieldSpec{Name: name, Tag: tag}
}

// LE создаёт поле фиксированной ширины в little-endian.
func LE(name string, tag Tag) FieldSpec {
	return FieldSpec{Name: name, Tag: tag, Order: wire.LittleEndian}
}

// Elem создаёт безымянную спецификацию элемента.
func Elem(tag Tag) FieldSpec {
	return FieldSpec{Tag: tag}
}

// ElemLE создаёт безымянную спецификацию элемента в little-endian.
func ElemLE(tag Tag) FieldSpec {
	return FieldSpec{Tag: tag, Order: wire.LittleEndian}
}

// ArrayOf создаёт массив с префиксом количества элементов.
func ArrayOf(name string, elem FieldSpec) FieldSpec {
	return FieldSpec{Name: name, Tag: Array, Elem: &elem}
}

// OptionalOf создаёт опциональное поле: bool-флаг присутствия и значение.
func OptionalOf(name string, elem FieldSpec) FieldSpec {
	return FieldSpec{Name: name, Tag: Optional, Elem: &elem}
}

// CompositeOf создаёт вложенную структуру.
func CompositeOf(name string, fields ...FieldSpec) FieldSpec {
	return FieldSpec{Name: name, Tag: Composite, Fields: fields}
}

// Struct создаёт безымянный составной элемент (например, для массива структур).
func Struct(fields ...FieldSpec) FieldSpec {
	return FieldSpec{Tag: Composite, Fields: fields}
}

// BlockPosition - позиция блока: x и z как zigzag32, y как uvarint32.
type BlockPosition [3]int32

// X возвращает координату X
func (p BlockPosition) X() int32 { return p[0] }

// Y возвращает координату Y
func (p BlockPosition) Y() int32 { return p[1] }

// Z возвращает координату Z
func (p BlockPosition) Z() int32 { return p[2] }
