package logging

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"trace": TRACE, "Debug": DEBUG, "": INFO, "warning": WARN, "ERROR": ERROR} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "уровень %q", in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{ConsoleLevel: WARN, FileLevel: ERROR, Console: &buf})
	defer Configure(Options{ConsoleLevel: INFO, FileLevel: DEBUG})

	l, err := NewLogger("test")
	require.NoError(t, err)

	l.Info("не должно попасть в вывод")
	l.Warn("чанк %d не найден", 7)
	out := buf.String()
	assert.NotContains(t, out, "не должно")
	assert.Contains(t, out, "[test] чанк 7 не найден")

	buf.Reset()
	l.SetLevels(TRACE, ERROR)
	l.Trace("trace")
	assert.Contains(t, buf.String(), "trace")
}

func TestLoggerFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	Configure(Options{Dir: dir, ConsoleLevel: ERROR, FileLevel: DEBUG, Console: &console})
	defer Configure(Options{ConsoleLevel: INFO, FileLevel: DEBUG})

	l, err := NewLogger("storage")
	require.NoError(t, err)
	l.Debug("сохранено %d чанков", 3)
	l.ProtocolError("conn-1", errors.New("truncated"), []byte{0xFE, 0x01})
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "storage_"))

	data, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "сохранено 3 чанков")
	assert.Contains(t, string(data), "fe 01")
	assert.Contains(t, console.String(), "Protocol error from conn-1")
}

func TestHexDumpLimit(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	dump := HexDump(make([]byte, 1000))
	assert.Equal(t, 16, strings.Count(dump, "\n"), "дамп ограничен 256 байтами")
}

func TestComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{ConsoleLevel: INFO, FileLevel: DEBUG, Console: &buf})
	defer Configure(Options{ConsoleLevel: INFO, FileLevel: DEBUG})
	defer CloseAll()

	world := GetWorldLogger()
	assert.Same(t, world, Component("world"), "логгер компонента создаётся один раз")
	assert.NotSame(t, world, GetNetworkLogger())

	world.Debug("скрыто")
	assert.Empty(t, buf.String())

	// Configure меняет уровни уже созданных логгеров
	Configure(Options{ConsoleLevel: DEBUG, FileLevel: DEBUG, Console: &buf})
	world.Debug("колонка %d загружена", 5)
	assert.Contains(t, buf.String(), "[world] колонка 5 загружена")

	require.NoError(t, CloseAll())
	assert.NotSame(t, world, Component("world"), "после CloseAll логгер создаётся заново")
}
