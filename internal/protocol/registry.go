// Package protocol связывает опкоды пакетов со схемами полей и Go-типами,
// кодирует и декодирует полные payload и маршрутизирует пакеты обработчикам.
package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/annel0/bedrock-server/internal/protocol/codec"
	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

var (
	// ErrUnknownOpcode - опкод не зарегистрирован.
	ErrUnknownOpcode = errors.New("protocol: unknown opcode")
	// ErrDuplicateOpcode - опкод уже занят другой схемой.
	ErrDuplicateOpcode = errors.New("protocol: duplicate opcode")
	// ErrDuplicateType - Go-тип уже зарегистрирован под другим опкодом.
	ErrDuplicateType = errors.New("protocol: duplicate message type")
	// ErrUnregisteredMessageType - попытка закодировать незарегистрированный тип.
	ErrUnregisteredMessageType = errors.New("protocol: unregistered message type")
	// ErrRegistrySealed - регистрация после Seal.
	ErrRegistrySealed = errors.New("protocol: registry sealed")
	// ErrTrailingBytes - после последнего поля остались байты.
	ErrTrailingBytes = errors.New("protocol: trailing bytes")
	// ErrEmptySchema - схема без полей.
	ErrEmptySchema = codec.ErrEmptySchema
)

// Opcode - идентификатор пакета на проводе.
type Opcode uint32

// Packet - экземпляр сообщения: указатель на структуру пакета.
type Packet interface{}

// MalformedPacketError оборачивает ошибку декодирования поля конкретного пакета.
type MalformedPacketError struct {
	Opcode Opcode
	Cause  error
}

func (e *MalformedPacketError) Error() string {
	return fmt.Sprintf("protocol: malformed packet %d: %v", e.Opcode, e.Cause)
}

func (e *MalformedPacketError) Unwrap() error { return e.Cause }

// Entry описывает зарегистрированный пакет.
type Entry struct {
	Opcode  Opcode
	Name    string
	Type    reflect.Type
	Schema  codec.Schema
	binding *codec.Binding
}

// Registry - биекция опкод <-> схема <-> Go-тип. Заполняется при старте,
// после Seal доступна только на чтение и может использоваться из любых горутин.
type Registry struct {
	byOpcode map[Opcode]*Entry
	byType   map[reflect.Type]*Entry
	sealed   bool
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		byOpcode: make(map[Opcode]*Entry),
		byType:   make(map[reflect.Type]*Entry),
	}
}

// Register добавляет пакет. prototype - указатель на структуру пакета
// (или сама структура); схема проверяется против её типа сразу.
func (r *Registry) Register(opcode Opcode, prototype Packet, schema codec.Schema) error {
	if r.sealed {
		return ErrRegistrySealed
	}
	if len(schema) == 0 {
		return fmt.Errorf("opcode %d: %w", opcode, ErrEmptySchema)
	}
	if _, exists := r.byOpcode[opcode]; exists {
		return fmt.Errorf("opcode %d: %w", opcode, ErrDuplicateOpcode)
	}

	typ := packetType(prototype)
	if typ == nil {
		return fmt.Errorf("opcode %d: nil prototype: %w", opcode, codec.ErrKindMismatch)
	}
	if prev, exists := r.byType[typ]; exists {
		return fmt.Errorf("%s already bound to opcode %d: %w", typ.Name(), prev.Opcode, ErrDuplicateType)
	}

	binding, err := codec.Bind(typ, schema)
	if err != nil {
		return fmt.Errorf("opcode %d (%s): %w", opcode, typ.Name(), err)
	}

	entry := &Entry{Opcode: opcode, Name: typ.Name(), Type: typ, Schema: schema, binding: binding}
	r.byOpcode[opcode] = entry
	r.byType[typ] = entry
	return nil
}

// MustRegister вызывает Register и паникует при ошибке. Используется для
// статических таблиц пакетов.
func (r *Registry) MustRegister(opcode Opcode, prototype Packet, schema codec.Schema) {
	if err := r.Register(opcode, prototype, schema); err != nil {
		panic(err)
	}
}

// Seal замораживает реестр.
func (r *Registry) Seal() { r.sealed = true }

// Sealed сообщает, заморожен ли реестр.
func (r *Registry) Sealed() bool { return r.sealed }

// Lookup возвращает описание пакета по опкоду.
func (r *Registry) Lookup(opcode Opcode) (*Entry, bool) {
	e, ok := r.byOpcode[opcode]
	return e, ok
}

// Opcode возвращает опкод зарегистрированного пакета.
func (r *Registry) Opcode(pk Packet) (Opcode, error) {
	e, ok := r.byType[packetType(pk)]
	if !ok {
		return 0, fmt.Errorf("%T: %w", pk, ErrUnregisteredMessageType)
	}
	return e.Opcode, nil
}

// Opcodes возвращает все зарегистрированные опкоды по возрастанию.
func (r *Registry) Opcodes() []Opcode {
	out := make([]Opcode, 0, len(r.byOpcode))
	for op := range r.byOpcode {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Encode кодирует пакет: опкод как UVarint, затем поля в порядке схемы.
func (r *Registry) Encode(pk Packet) ([]byte, error) {
	c := wire.NewWriter(64)
	if err := r.EncodeTo(c, pk); err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// EncodeTo кодирует пакет в курсор вызывающего.
func (r *Registry) EncodeTo(c *wire.Cursor, pk Packet) error {
	e, ok := r.byType[packetType(pk)]
	if !ok {
		return fmt.Errorf("%T: %w", pk, ErrUnregisteredMessageType)
	}
	c.WriteUVarint32(uint32(e.Opcode))
	if err := e.binding.Encode(c, pk); err != nil {
		return fmt.Errorf("encode %s: %w", e.Name, err)
	}
	return nil
}

// Decode декодирует ровно один полный payload в новый экземпляр пакета.
func (r *Registry) Decode(payload []byte) (Packet, error) {
	c := wire.NewReader(payload)
	raw, err := c.ReadUVarint32()
	if err != nil {
		return nil, fmt.Errorf("read opcode: %w", err)
	}
	opcode := Opcode(raw)
	e, ok := r.byOpcode[opcode]
	if !ok {
		return nil, fmt.Errorf("opcode %d: %w", opcode, ErrUnknownOpcode)
	}

	pk := reflect.New(e.Type).Interface()
	if err := e.binding.Decode(c, pk); err != nil {
		return nil, &MalformedPacketError{Opcode: opcode, Cause: err}
	}
	if c.Remaining() > 0 {
		return nil, &MalformedPacketError{
			Opcode: opcode,
			Cause:  fmt.Errorf("%d bytes after %s: %w", c.Remaining(), e.Name, ErrTrailingBytes),
		}
	}
	return pk, nil
}

func packetType(pk Packet) reflect.Type {
	typ := reflect.TypeOf(pk)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ
}
