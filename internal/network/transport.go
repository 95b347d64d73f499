package network

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

// Conn доставляет ровно один батч за вызов ReadBatch.
type Conn interface {
	ReadBatch() ([]byte, error)
	WriteBatch(b []byte) error
	RemoteAddr() net.Addr
	Close() error
}

// Listener принимает соединения клиентов.
type Listener interface {
	Accept() (Conn, error)
	Addr() net.Addr
	Close() error
}

// streamConn выделяет батчи в потоковом соединении префиксом длины UVarint.
type streamConn struct {
	conn net.Conn
	r    *bufio.Reader
	wmu  sync.Mutex
}

func newStreamConn(c net.Conn) *streamConn {
	return &streamConn{conn: c, r: bufio.NewReaderSize(c, 64<<10)}
}

func (s *streamConn) ReadBatch() ([]byte, error) {
	n, err := binary.ReadUvarint(s.r)
	if err != nil {
		return nil, err
	}
	if n > MaxBatchSize {
		return nil, fmt.Errorf("кадр %d байт: %w", n, ErrBatchTooLarge)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *streamConn) WriteBatch(b []byte) error {
	frame := make([]byte, 0, len(b)+binary.MaxVarintLen32)
	frame = binary.AppendUvarint(frame, uint64(len(b)))
	frame = append(frame, b...)

	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.conn.Write(frame)
	return err
}

func (s *streamConn) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *streamConn) Close() error { return s.conn.Close() }
