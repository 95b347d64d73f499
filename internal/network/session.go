package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/annel0/bedrock-server/internal/logging"
	"github.com/annel0/bedrock-server/internal/observability"
	"github.com/annel0/bedrock-server/internal/protocol"
	"github.com/annel0/bedrock-server/internal/protocol/wire"
	"github.com/annel0/bedrock-server/internal/world"
)

// ErrSessionClosed возвращается при записи в закрытую сессию.
var ErrSessionClosed = errors.New("network: session closed")

const sendQueueSize = 256

type outgoing struct {
	payload []byte
	// enableCompression включает сжатие для всех батчей после этого пакета
	enableCompression bool
}

// Session - соединение одного клиента. Пакеты пишет одна горутина,
// поэтому порядок отправки совпадает с порядком вызовов WritePacket.
type Session struct {
	id       string
	conn     Conn
	registry *protocol.Registry
	router   *protocol.Router
	metrics  *observability.Metrics
	log      *logging.Logger

	compression    Compression
	readCompressed atomic.Bool

	queue     chan outgoing
	closed    chan struct{}
	closeOnce sync.Once

	clientProtocol atomic.Int32
	chunkRadius    atomic.Int32

	mu     sync.Mutex
	center world.ChunkPos
}

func newSession(id string, conn Conn, registry *protocol.Registry, router *protocol.Router,
	comp Compression, metrics *observability.Metrics) *Session {
	return &Session{
		id:          id,
		conn:        conn,
		registry:    registry,
		router:      router,
		metrics:     metrics,
		log:         logging.GetNetworkLogger(),
		compression: comp,
		queue:       make(chan outgoing, sendQueueSize),
		closed:      make(chan struct{}),
	}
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string { return s.id }

// RemoteAddr возвращает адрес клиента.
func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr().String() }

// ClientProtocol возвращает версию протокола из RequestNetworkSettings.
func (s *Session) ClientProtocol() int32 { return s.clientProtocol.Load() }

// ChunkRadius возвращает согласованный радиус прорисовки.
func (s *Session) ChunkRadius() int32 { return s.chunkRadius.Load() }

// Center возвращает колонку, в которой находится игрок.
func (s *Session) Center() world.ChunkPos {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center
}

func (s *Session) setCenter(pos world.ChunkPos) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed = s.center != pos
	s.center = pos
	return changed
}

// WritePacket кодирует пакет и ставит его в очередь отправки.
func (s *Session) WritePacket(pk protocol.Packet) error {
	return s.writePacket(pk, false)
}

func (s *Session) writePacket(pk protocol.Packet, enableCompression bool) error {
	payload, err := s.registry.Encode(pk)
	if err != nil {
		return err
	}
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}
	select {
	case s.queue <- outgoing{payload: payload, enableCompression: enableCompression}:
		s.metrics.PacketEncoded(packetName(s.registry, pk))
		return nil
	case <-s.closed:
		return ErrSessionClosed
	}
}

// Serve читает батчи до ошибки или отмены ctx и закрывает сессию.
// Любая ошибка декодирования разрывает соединение.
func (s *Session) Serve(ctx context.Context) error {
	go s.writeLoop()
	defer s.Close()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closed:
		}
	}()

	for {
		b, err := s.conn.ReadBatch()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return fmt.Errorf("сессия %s: %w", s.id, err)
		}
		s.metrics.BatchIn(len(b))

		payloads, err := DecodeBatch(b, s.readCompression())
		if err != nil {
			s.metrics.DecodeFailure("batch")
			s.log.ProtocolError(s.id, err, b)
			return err
		}
		for _, p := range payloads {
			pk, err := s.registry.Decode(p)
			if err != nil {
				s.metrics.DecodeFailure(decodeFailureReason(err))
				s.log.ProtocolError(s.id, err, p)
				return err
			}
			s.metrics.PacketDecoded(packetName(s.registry, pk))
			if err := s.router.Dispatch(ctx, s, pk); err != nil {
				if errors.Is(err, ErrSessionClosed) {
					return nil
				}
				s.log.Warn("⚠️ Ошибка обработки %T от %s: %v", pk, s.id, err)
			}
		}
	}
}

func (s *Session) readCompression() Compression {
	c := s.compression
	c.Enabled = s.readCompressed.Load()
	return c
}

func (s *Session) writeLoop() {
	comp := s.compression
	comp.Enabled = false

	for {
		select {
		case <-s.closed:
			return
		case out := <-s.queue:
			batch, enable := s.collect(out)
			data, err := EncodeBatch(batch, comp)
			if err == nil {
				err = s.conn.WriteBatch(data)
			}
			if err != nil {
				if !s.isClosed() {
					s.log.Error("❌ Ошибка отправки %s: %v", s.id, err)
				}
				s.Close()
				return
			}
			s.metrics.BatchOut(len(data))
			if enable {
				comp.Enabled = true
			}
		}
	}
}

// collect добирает из очереди уже готовые пакеты в один батч. Пакет,
// включающий сжатие, закрывает батч: следующие уйдут сжатыми.
func (s *Session) collect(first outgoing) ([][]byte, bool) {
	batch := [][]byte{first.payload}
	if first.enableCompression {
		return batch, true
	}
	for {
		select {
		case next := <-s.queue:
			batch = append(batch, next.payload)
			if next.enableCompression {
				return batch, true
			}
		default:
			return batch, false
		}
	}
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close закрывает соединение. Повторные вызовы безопасны.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// Done закрывается вместе с сессией.
func (s *Session) Done() <-chan struct{} { return s.closed }

func packetName(r *protocol.Registry, pk protocol.Packet) string {
	op, err := r.Opcode(pk)
	if err != nil {
		return "unknown"
	}
	if e, ok := r.Lookup(op); ok {
		return e.Name
	}
	return "unknown"
}

func decodeFailureReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownOpcode):
		return "unknown_opcode"
	case errors.Is(err, protocol.ErrTrailingBytes):
		return "trailing_bytes"
	case errors.Is(err, wire.ErrVarintOverflow):
		return "varint_overflow"
	case errors.Is(err, wire.ErrTruncatedBuffer):
		return "truncated"
	}
	return "malformed"
}
