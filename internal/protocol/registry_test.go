package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bedrock-server/internal/protocol/codec"
	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

type ping struct {
	Timestamp int64
	Message   string
}

type pong struct {
	Timestamp int64
}

var (
	pingSchema = codec.Schema{codec.LE("Timestamp", codec.Int64), codec.Field("Message", codec.String)}
	pongSchema = codec.Schema{codec.LE("Timestamp", codec.Int64)}
)

func newTestRegistry(t *testing.T) *Registry {
	r := NewRegistry()
	require.NoError(t, r.Register(1, &ping{}, pingSchema))
	require.NoError(t, r.Register(300, &pong{}, pongSchema))
	r.Seal()
	return r
}

func TestRegistryRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	payload, err := r.Encode(&ping{Timestamp: 123456789, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, byte(1), payload[0], "первым идёт опкод")

	pk, err := r.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, &ping{Timestamp: 123456789, Message: "hi"}, pk)

	// Двухбайтовый varint опкода
	payload, err = r.Encode(pong{Timestamp: -1})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAC, 0x02}, payload[:2])

	pk, err = r.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, &pong{Timestamp: -1}, pk)
}

func TestRegistryDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(1, &ping{}, pingSchema))

	err := r.Register(1, &pong{}, pongSchema)
	assert.ErrorIs(t, err, ErrDuplicateOpcode)

	err = r.Register(2, &ping{}, pingSchema)
	assert.ErrorIs(t, err, ErrDuplicateType)

	err = r.Register(3, &pong{}, nil)
	assert.ErrorIs(t, err, ErrEmptySchema)

	err = r.Register(4, &pong{}, codec.Schema{codec.Field("Missing", codec.Bool)})
	assert.ErrorIs(t, err, codec.ErrUnknownField)

	r.Seal()
	err = r.Register(5, &pong{}, pongSchema)
	assert.ErrorIs(t, err, ErrRegistrySealed)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Decode([]byte{0x7F, 0x00})
	assert.ErrorIs(t, err, ErrUnknownOpcode)

	_, err = r.Decode(nil)
	assert.ErrorIs(t, err, wire.ErrTruncatedBuffer)
}

func TestDecodeMalformed(t *testing.T) {
	r := newTestRegistry(t)
	payload, err := r.Encode(&ping{Timestamp: 1, Message: "hello"})
	require.NoError(t, err)

	_, err = r.Decode(payload[:len(payload)-2])
	var malformed *MalformedPacketError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, Opcode(1), malformed.Opcode)
	assert.ErrorIs(t, err, wire.ErrTruncatedBuffer)

	_, err = r.Decode(append(payload, 0xFF))
	require.True(t, errors.As(err, &malformed))
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestEncodeUnregistered(t *testing.T) {
	r := newTestRegistry(t)
	type unknown struct{ A bool }

	_, err := r.Encode(&unknown{})
	assert.ErrorIs(t, err, ErrUnregisteredMessageType)

	_, err = r.Opcode(nil)
	assert.ErrorIs(t, err, ErrUnregisteredMessageType)
}

func TestRegistryLookup(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, []Opcode{1, 300}, r.Opcodes())
	e, ok := r.Lookup(300)
	require.True(t, ok)
	assert.Equal(t, "pong", e.Name)

	op, err := r.Opcode(&ping{})
	require.NoError(t, err)
	assert.Equal(t, Opcode(1), op)
	assert.True(t, r.Sealed())
}

type testSession struct {
	sent []Packet
}

func (s *testSession) ID() string { return "test" }

func (s *testSession) WritePacket(pk Packet) error {
	s.sent = append(s.sent, pk)
	return nil
}

func TestRouterDispatch(t *testing.T) {
	r := newTestRegistry(t)
	router := NewRouter(r)
	sess := &testSession{}

	require.NoError(t, router.Handle(1, func(ctx context.Context, s Session, pk Packet) error {
		p := pk.(*ping)
		return s.WritePacket(&pong{Timestamp: p.Timestamp})
	}))
	assert.ErrorIs(t, router.Handle(99, nil), ErrUnknownOpcode)

	require.NoError(t, router.Dispatch(context.Background(), sess, &ping{Timestamp: 7}))
	require.Len(t, sess.sent, 1)
	assert.Equal(t, &pong{Timestamp: 7}, sess.sent[0])

	// Без обработчика и fallback пакет игнорируется
	require.NoError(t, router.Dispatch(context.Background(), sess, &pong{}))

	var unhandled []Packet
	router.SetFallback(func(ctx context.Context, s Session, pk Packet) error {
		unhandled = append(unhandled, pk)
		return nil
	})
	require.NoError(t, router.Dispatch(context.Background(), sess, &pong{Timestamp: 3}))
	assert.Equal(t, []Packet{&pong{Timestamp: 3}}, unhandled)
}
