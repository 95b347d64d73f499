package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/bedrock-server/internal/logging"
	"github.com/annel0/bedrock-server/internal/observability"
	"github.com/annel0/bedrock-server/internal/world/chunk"
)

// ErrNoGenerator возвращается, если в конфигурации мира не задан генератор.
var ErrNoGenerator = errors.New("world: generator is required")

// ChunkPos - координаты колонки в чанках.
type ChunkPos struct {
	X, Z int32
}

// ChunkPosAt возвращает колонку, содержащую мировые координаты x, z.
func ChunkPosAt(x, z int) ChunkPos {
	return ChunkPos{X: int32(x >> 4), Z: int32(z >> 4)}
}

func (p ChunkPos) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Z) }

// Store - байтовое хранилище колонок. ok=false означает, что колонки нет.
type Store interface {
	LoadChunk(x, z int32) (data []byte, ok bool, err error)
	SaveChunk(x, z int32, data []byte) error
}

// Config - параметры мира
type Config struct {
	Range        chunk.Range
	Air          uint32
	Mode         chunk.PaletteMode
	SaveInterval time.Duration
	Generator    Generator
	// Store может быть nil: тогда мир живёт только в памяти.
	Store   Store
	Metrics *observability.Metrics
}

type column struct {
	c     *chunk.Chunk
	dirty bool
	// gen меняется при каждой загрузке и правке колонки.
	gen uint64
}

// Manager владеет загруженными колонками и сериализует доступ к ним одним мьютексом.
type Manager struct {
	conf Config
	log  *logging.Logger

	mu        sync.Mutex
	chunks    map[ChunkPos]*column
	seq       uint64
	listeners []func(ChunkPos)
	retainers []func(ChunkPos) bool
}

// NewManager создаёт менеджер мира
func NewManager(conf Config) (*Manager, error) {
	if conf.Generator == nil {
		return nil, ErrNoGenerator
	}
	if conf.Range.Sections() <= 0 {
		return nil, fmt.Errorf("world: invalid section range %d..%d", conf.Range.MinSection, conf.Range.MaxSection)
	}
	if conf.SaveInterval <= 0 {
		conf.SaveInterval = 5 * time.Minute
	}
	return &Manager{
		conf:   conf,
		log:    logging.GetWorldLogger(),
		chunks: make(map[ChunkPos]*column),
	}, nil
}

// OnChange регистрирует обработчик изменения колонки. Вызывается вне блокировки.
func (m *Manager) OnChange(fn func(ChunkPos)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Retain регистрирует условие удержания колонки в памяти. Run выгружает
// колонки, которые не удерживает ни одно условие.
func (m *Manager) Retain(fn func(ChunkPos) bool) {
	m.mu.Lock()
	m.retainers = append(m.retainers, fn)
	m.mu.Unlock()
}

// Air возвращает состояние воздуха.
func (m *Manager) Air() uint32 { return m.conf.Air }

// Range возвращает вертикальный диапазон мира.
func (m *Manager) Range() chunk.Range { return m.conf.Range }

// Block возвращает состояние блока по мировым координатам
func (m *Manager) Block(x, y, z, layer int) (uint32, error) {
	var state uint32
	err := m.WithChunk(ChunkPosAt(x, z), func(c *chunk.Chunk) error {
		var err error
		state, err = c.State(x&15, y, z&15, layer)
		return err
	})
	return state, err
}

// SetBlock записывает состояние блока по мировым координатам
func (m *Manager) SetBlock(x, y, z, layer int, state uint32) error {
	return m.Edit(ChunkPosAt(x, z), func(c *chunk.Chunk) error {
		return c.SetState(x&15, y, z&15, layer, state)
	})
}

// WithChunk выполняет fn над колонкой pos только для чтения, загружая её при необходимости.
func (m *Manager) WithChunk(pos ChunkPos, fn func(*chunk.Chunk) error) error {
	_, err := m.View(pos, fn)
	return err
}

// View работает как WithChunk и возвращает поколение колонки, которое видел fn.
// Поколение, отличное от Generation(pos), значит что колонка с тех пор менялась.
func (m *Manager) View(pos ChunkPos, fn func(*chunk.Chunk) error) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, err := m.columnLocked(pos)
	if err != nil {
		return 0, err
	}
	return col.gen, fn(col.c)
}

// Generation возвращает текущее поколение колонки, 0 для незагруженной.
func (m *Manager) Generation(pos ChunkPos) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.chunks[pos]; ok {
		return col.gen
	}
	return 0
}

// Edit выполняет fn над колонкой pos и помечает её изменённой.
// Колонка помечается даже при ошибке fn: часть записей могла пройти.
func (m *Manager) Edit(pos ChunkPos, fn func(*chunk.Chunk) error) error {
	m.mu.Lock()
	col, err := m.columnLocked(pos)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	err = fn(col.c)
	col.dirty = true
	m.seq++
	col.gen = m.seq
	listeners := append(([]func(ChunkPos))(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(pos)
	}
	return err
}

// columnLocked возвращает загруженную колонку, либо загружает, либо генерирует её.
func (m *Manager) columnLocked(pos ChunkPos) (*column, error) {
	if col, ok := m.chunks[pos]; ok {
		return col, nil
	}

	col, err := m.load(pos)
	if err != nil {
		return nil, err
	}
	m.seq++
	col.gen = m.seq
	m.chunks[pos] = col
	m.conf.Metrics.SetResidentChunks(len(m.chunks))
	return col, nil
}

func (m *Manager) load(pos ChunkPos) (*column, error) {
	if m.conf.Store != nil {
		data, ok, err := m.conf.Store.LoadChunk(pos.X, pos.Z)
		switch {
		case err != nil:
			m.log.Warn("⚠️ Ошибка загрузки чанка %s, генерируем заново: %v", pos, err)
			return m.regenerate(pos)
		case ok:
			c, err := chunk.DecodeChunk(data, m.conf.Air)
			if err == nil && c.Range() != m.conf.Range {
				err = fmt.Errorf("stored range %d..%d differs from world range", c.Range().MinSection, c.Range().MaxSection)
			}
			if err != nil {
				m.log.Warn("⚠️ Повреждённый чанк %s, генерируем заново: %v", pos, err)
				return m.regenerate(pos)
			}
			m.conf.Metrics.ChunkLoaded()
			return &column{c: c}, nil
		}
	}

	col, err := m.generate(pos)
	if err != nil {
		return nil, err
	}
	m.conf.Metrics.ChunkGenerated()
	return col, nil
}

func (m *Manager) regenerate(pos ChunkPos) (*column, error) {
	col, err := m.generate(pos)
	if err != nil {
		return nil, err
	}
	m.conf.Metrics.ChunkRegenerated()
	return col, nil
}

func (m *Manager) generate(pos ChunkPos) (*column, error) {
	c := chunk.NewChunk(m.conf.Range, m.conf.Air, m.conf.Mode)
	if err := m.conf.Generator.Generate(pos, c); err != nil {
		return nil, fmt.Errorf("ошибка генерации чанка %s: %w", pos, err)
	}
	c.Compact()
	// Новая колонка ещё не записана в хранилище
	return &column{c: c, dirty: true}, nil
}

// Loaded возвращает координаты загруженных колонок в порядке X, затем Z.
func (m *Manager) Loaded() []ChunkPos {
	m.mu.Lock()
	out := make([]ChunkPos, 0, len(m.chunks))
	for pos := range m.chunks {
		out = append(out, pos)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Z < out[j].Z
	})
	return out
}

// Dirty сообщает, есть ли у загруженной колонки несохранённые изменения.
func (m *Manager) Dirty(pos ChunkPos) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.chunks[pos]
	return ok && col.dirty
}

// Save записывает все изменённые колонки. Ошибки отдельных колонок собираются в одну.
func (m *Manager) Save() error {
	if m.conf.Store == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	saved := 0
	for pos, col := range m.chunks {
		if !col.dirty {
			continue
		}
		if err := m.saveLocked(pos, col); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	if saved > 0 {
		m.log.Info("💾 Сохранено чанков: %d", saved)
	}
	return errors.Join(errs...)
}

func (m *Manager) saveLocked(pos ChunkPos, col *column) error {
	col.c.Compact()
	if err := m.conf.Store.SaveChunk(pos.X, pos.Z, col.c.Encode()); err != nil {
		return fmt.Errorf("ошибка сохранения чанка %s: %w", pos, err)
	}
	col.dirty = false
	m.conf.Metrics.ChunkSaved()
	return nil
}

// Unload выгружает колонку, предварительно сохранив её изменения.
func (m *Manager) Unload(pos ChunkPos) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.chunks[pos]
	if !ok {
		return nil
	}
	if col.dirty && m.conf.Store != nil {
		if err := m.saveLocked(pos, col); err != nil {
			return err
		}
	}
	delete(m.chunks, pos)
	m.conf.Metrics.SetResidentChunks(len(m.chunks))
	return nil
}

// UnloadUnused выгружает колонки, которые не удерживает ни одно условие Retain.
// Без хранилища и без условий ничего не выгружается.
func (m *Manager) UnloadUnused() (int, error) {
	m.mu.Lock()
	retainers := append([]func(ChunkPos) bool(nil), m.retainers...)
	m.mu.Unlock()
	if m.conf.Store == nil || len(retainers) == 0 {
		return 0, nil
	}

	var errs []error
	unloaded := 0
	for _, pos := range m.Loaded() {
		if retained(pos, retainers) {
			continue
		}
		if err := m.Unload(pos); err != nil {
			errs = append(errs, err)
			continue
		}
		unloaded++
	}
	if unloaded > 0 {
		m.log.Debug("🗑️ Выгружено чанков: %d", unloaded)
	}
	return unloaded, errors.Join(errs...)
}

func retained(pos ChunkPos, retainers []func(ChunkPos) bool) bool {
	for _, keep := range retainers {
		if keep(pos) {
			return true
		}
	}
	return false
}

// Run периодически сохраняет мир и выгружает неиспользуемые колонки до отмены
// ctx, затем сохраняет его последний раз.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.conf.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return m.Save()
		case <-ticker.C:
			if err := m.Save(); err != nil {
				m.log.Error("❌ Ошибка автосохранения: %v", err)
			}
			if _, err := m.UnloadUnused(); err != nil {
				m.log.Error("❌ Ошибка выгрузки чанков: %v", err)
			}
		}
	}
}

// Close сохраняет и выгружает все колонки.
func (m *Manager) Close() error {
	err := m.Save()
	m.mu.Lock()
	m.chunks = make(map[ChunkPos]*column)
	m.mu.Unlock()
	m.conf.Metrics.SetResidentChunks(0)
	return err
}
