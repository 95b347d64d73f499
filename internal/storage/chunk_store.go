// Package storage хранит сериализованные колонки мира.
package storage

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed возвращается при обращении к закрытому хранилищу.
var ErrClosed = errors.New("storage: store is closed")

// ChunkStore - байтовое хранилище колонок по координатам чанка.
type ChunkStore interface {
	// LoadChunk возвращает ok=false, если колонки нет.
	LoadChunk(x, z int32) (data []byte, ok bool, err error)
	SaveChunk(x, z int32, data []byte) error
	DeleteChunk(x, z int32) error
	Close() error
}

func chunkKey(x, z int32) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d", x, z))
}

// MemoryStore хранит колонки в памяти. Используется, когда каталог данных не задан.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[[2]int32][]byte
	closed bool
}

// NewMemoryStore создаёт пустое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[[2]int32][]byte)}
}

// LoadChunk возвращает копию сохранённых байт
func (s *MemoryStore) LoadChunk(x, z int32) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	data, ok := s.chunks[[2]int32{x, z}]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// SaveChunk сохраняет копию data
func (s *MemoryStore) SaveChunk(x, z int32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.chunks[[2]int32{x, z}] = append([]byte(nil), data...)
	return nil
}

// DeleteChunk удаляет колонку
func (s *MemoryStore) DeleteChunk(x, z int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.chunks, [2]int32{x, z})
	return nil
}

// Close закрывает хранилище
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.chunks = nil
	s.mu.Unlock()
	return nil
}
