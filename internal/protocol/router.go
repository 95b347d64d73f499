package protocol

import (
	"context"
	"fmt"
	"sync"
)

// Session - соединение клиента с точки зрения обработчиков пакетов.
type Session interface {
	// ID возвращает идентификатор сессии для логов.
	ID() string
	// WritePacket ставит пакет в очередь на отправку клиенту.
	WritePacket(pk Packet) error
}

// HandlerFunc обрабатывает декодированный пакет.
type HandlerFunc func(ctx context.Context, s Session, pk Packet) error

// Router передаёт декодированные пакеты обработчикам по опкоду.
type Router struct {
	registry *Registry

	mu       sync.RWMutex
	handlers map[Opcode]HandlerFunc
	fallback HandlerFunc
}

// NewRouter создает маршрутизатор поверх реестра
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		handlers: make(map[Opcode]HandlerFunc),
	}
}

// Handle регистрирует обработчик опкода. Повторная регистрация заменяет
// предыдущий обработчик.
func (r *Router) Handle(opcode Opcode, h HandlerFunc) error {
	if _, ok := r.registry.Lookup(opcode); !ok {
		return fmt.Errorf("handler for opcode %d: %w", opcode, ErrUnknownOpcode)
	}
	r.mu.Lock()
	r.handlers[opcode] = h
	r.mu.Unlock()
	return nil
}

// SetFallback задаёт обработчик для пакетов без собственного обработчика.
func (r *Router) SetFallback(h HandlerFunc) {
	r.mu.Lock()
	r.fallback = h
	r.mu.Unlock()
}

// Dispatch вызывает обработчик пакета. Пакет без обработчика уходит в
// fallback, а без fallback игнорируется.
func (r *Router) Dispatch(ctx context.Context, s Session, pk Packet) error {
	opcode, err := r.registry.Opcode(pk)
	if err != nil {
		return err
	}

	r.mu.RLock()
	h, ok := r.handlers[opcode]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		return nil
	}
	return h(ctx, s, pk)
}
