package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/bedrock-server/internal/logging"
)

// BadgerStore хранит колонки в BadgerDB, сжимая их zstd
type BadgerStore struct {
	db           *badger.DB
	dbPath       string
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
	mutex        sync.RWMutex
	isReady      bool
}

// NewBadgerStore открывает хранилище в каталоге dataPath/world
func NewBadgerStore(dataPath string) (*BadgerStore, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd компрессора: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		compressor.Close()
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd декомпрессора: %w", err)
	}

	logging.GetStorageLogger().Info("💾 BadgerDB открыта: %s", dbPath)
	return &BadgerStore{
		db:           db,
		dbPath:       dbPath,
		compressor:   compressor,
		decompressor: decompressor,
		isReady:      true,
	}, nil
}

// Path возвращает каталог базы
func (s *BadgerStore) Path() string { return s.dbPath }

// LoadChunk читает и распаковывает колонку
func (s *BadgerStore) LoadChunk(x, z int32) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, false, ErrClosed
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(x, z))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	data, err := s.decompressor.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка распаковки чанка %d:%d: %w", x, z, err)
	}
	return data, true, nil
}

// SaveChunk сжимает и записывает колонку
func (s *BadgerStore) SaveChunk(x, z int32, data []byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrClosed
	}

	compressed := s.compressor.EncodeAll(data, make([]byte, 0, len(data)/2))
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(x, z), compressed)
	})
	if err != nil {
		return fmt.Errorf("ошибка записи в BadgerDB: %w", err)
	}
	return nil
}

// DeleteChunk удаляет колонку
func (s *BadgerStore) DeleteChunk(x, z int32) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(x, z))
	})
}

// Count возвращает количество сохранённых колонок
func (s *BadgerStore) Count() (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return 0, ErrClosed
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("chunk:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close закрывает хранилище данных
func (s *BadgerStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.compressor.Close()
	s.decompressor.Close()
	return s.db.Close()
}
