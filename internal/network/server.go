package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/bedrock-server/internal/cache"
	"github.com/annel0/bedrock-server/internal/logging"
	"github.com/annel0/bedrock-server/internal/observability"
	"github.com/annel0/bedrock-server/internal/protocol"
	"github.com/annel0/bedrock-server/internal/world"
)

// Config - параметры сетевой части сервера
type Config struct {
	CompressionThreshold uint16
	CompressionAlgorithm uint16
	MaxChunkRadius       int32
	MaxPlayers           int
}

// Server принимает клиентов со всех слушателей и связывает сессии с миром.
type Server struct {
	conf     Config
	registry *protocol.Registry
	router   *protocol.Router
	world    *world.Manager
	chunks   *cache.ChunkCache
	metrics  *observability.Metrics
	log      *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewServer создаёт сервер и регистрирует обработчики пакетов.
// chunks и metrics могут быть nil.
func NewServer(conf Config, registry *protocol.Registry, w *world.Manager, chunks *cache.ChunkCache,
	metrics *observability.Metrics) (*Server, error) {
	if conf.MaxChunkRadius <= 0 {
		conf.MaxChunkRadius = 8
	}
	s := &Server{
		conf:     conf,
		registry: registry,
		router:   protocol.NewRouter(registry),
		world:    w,
		chunks:   chunks,
		metrics:  metrics,
		log:      logging.GetNetworkLogger(),
		sessions: make(map[string]*Session),
	}
	if err := s.registerHandlers(); err != nil {
		return nil, fmt.Errorf("ошибка регистрации обработчиков: %w", err)
	}
	w.Retain(s.inView)
	if chunks != nil {
		w.OnChange(func(pos world.ChunkPos) {
			if err := chunks.Invalidate(context.Background(), pos.X, pos.Z); err != nil {
				s.log.Warn("⚠️ Ошибка инвалидации кэша чанка %s: %v", pos, err)
			}
		})
	}
	return s, nil
}

// inView сообщает, что колонка pos входит в радиус хотя бы одной сессии.
func (s *Server) inView(pos world.ChunkPos) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		r := sess.ChunkRadius()
		c := sess.Center()
		dx, dz := pos.X-c.X, pos.Z-c.Z
		if r > 0 && dx*dx+dz*dz <= r*r {
			return true
		}
	}
	return false
}

// Router возвращает маршрутизатор для регистрации дополнительных обработчиков.
func (s *Server) Router() *protocol.Router { return s.router }

// Serve принимает соединения с l до отмены ctx.
func (s *Server) Serve(ctx context.Context, l Listener) error {
	s.log.Info("🚀 Сервер слушает %s", l.Addr())
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("ошибка приёма соединения: %w", err)
		}
		s.accept(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context, conn Conn) {
	comp := Compression{
		Algorithm: s.conf.CompressionAlgorithm,
		Threshold: int(s.conf.CompressionThreshold),
	}
	sess := newSession(uuid.NewString(), conn, s.registry, s.router, comp, s.metrics)

	s.mu.Lock()
	if s.conf.MaxPlayers > 0 && len(s.sessions) >= s.conf.MaxPlayers {
		s.mu.Unlock()
		s.log.Warn("⚠️ Сервер заполнен, отклоняем %s", conn.RemoteAddr())
		conn.Close()
		return
	}
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	s.metrics.SessionOpened()
	s.log.Info("🔗 Подключение %s от %s", sess.ID(), conn.RemoteAddr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := sess.Serve(ctx); err != nil {
			s.log.Warn("⚠️ Сессия %s завершена с ошибкой: %v", sess.ID(), err)
		}
		s.mu.Lock()
		delete(s.sessions, sess.ID())
		s.mu.Unlock()
		s.metrics.SessionClosed()
		s.log.Info("🔌 Отключение %s", sess.ID())
	}()
}

// Sessions возвращает активные сессии по возрастанию ID.
func (s *Server) Sessions() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Broadcast отправляет пакет всем сессиям.
func (s *Server) Broadcast(pk protocol.Packet) {
	for _, sess := range s.Sessions() {
		if err := sess.WritePacket(pk); err != nil && !errors.Is(err, ErrSessionClosed) {
			s.log.Warn("⚠️ Ошибка рассылки %s: %v", sess.ID(), err)
		}
	}
}

// Close закрывает все сессии и ждёт их завершения.
func (s *Server) Close() {
	for _, sess := range s.Sessions() {
		sess.Close()
	}
	s.wg.Wait()
}
