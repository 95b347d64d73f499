package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s ChunkStore) {
	_, ok, err := s.LoadChunk(1, 2)
	require.NoError(t, err)
	assert.False(t, ok, "отсутствующая колонка не ошибка")

	data := bytes.Repeat([]byte{1, 0, 0, 8, 2}, 500)
	require.NoError(t, s.SaveChunk(1, 2, data))
	require.NoError(t, s.SaveChunk(-1, 2, []byte{7}))

	got, ok, err := s.LoadChunk(1, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, got)

	got, ok, err = s.LoadChunk(-1, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{7}, got, "отрицательные координаты не пересекаются с положительными")

	require.NoError(t, s.DeleteChunk(1, 2))
	_, ok, err = s.LoadChunk(1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Close())
	_, _, err = s.LoadChunk(-1, 2)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.SaveChunk(0, 0, nil), ErrClosed)
	assert.NoError(t, s.Close(), "повторное закрытие безопасно")
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestBadgerStore(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, s)
}

func TestBadgerStoreReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveChunk(3, 4, []byte("column")))
	require.NoError(t, s.SaveChunk(5, 6, []byte("other")))
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.LoadChunk(3, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("column"), got)
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	data := []byte{1, 2, 3}
	require.NoError(t, s.SaveChunk(0, 0, data))
	data[0] = 9

	got, _, err := s.LoadChunk(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}
