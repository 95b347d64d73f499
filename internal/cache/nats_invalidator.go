package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/annel0/bedrock-server/internal/logging"
)

// NATSInvalidator рассылает инвалидации ключей через NATS Pub/Sub.
// Свои сообщения узел игнорирует.
type NATSInvalidator struct {
	conn    *nats.Conn
	subject string
	nodeID  string

	mu           sync.Mutex
	subscription *nats.Subscription
	handler      InvalidationHandler

	publishedCount int64
	receivedCount  int64
	errorsCount    int64
}

// InvalidationMessage представляет сообщение об инвалидации кеша.
type InvalidationMessage struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// NewNATSInvalidator подключается к NATS
func NewNATSInvalidator(url, subject, nodeID string) (*NATSInvalidator, error) {
	if subject == "" {
		subject = "bedrock.chunk.invalidation"
	}
	log := logging.GetCacheLogger()

	opts := []nats.Option{
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS отключен: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS переподключен к %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к NATS: %w", err)
	}

	log.Info("📡 NATS инвалидатор подключен: %s (subject: %s)", url, subject)
	return &NATSInvalidator{conn: conn, subject: subject, nodeID: nodeID}, nil
}

// PublishInvalidation отправляет уведомление об инвалидации ключа.
func (n *NATSInvalidator) PublishInvalidation(_ context.Context, key string) error {
	data, err := json.Marshal(InvalidationMessage{Key: key, Timestamp: time.Now(), NodeID: n.nodeID})
	if err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("ошибка сериализации инвалидации: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("ошибка публикации инвалидации: %w", err)
	}
	atomic.AddInt64(&n.publishedCount, 1)
	return nil
}

// SubscribeInvalidations подписывается на инвалидации до отмены ctx.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription != nil {
		return errors.New("cache: already subscribed to invalidations")
	}

	n.handler = handler
	sub, err := n.conn.Subscribe(n.subject, n.handleMessage)
	if err != nil {
		return fmt.Errorf("ошибка подписки на инвалидации: %w", err)
	}
	n.subscription = sub

	go func() {
		<-ctx.Done()
		n.unsubscribe()
	}()
	return nil
}

func (n *NATSInvalidator) handleMessage(msg *nats.Msg) {
	atomic.AddInt64(&n.receivedCount, 1)

	var m InvalidationMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		logging.GetCacheLogger().Error("Некорректное сообщение инвалидации: %v", err)
		return
	}
	if m.NodeID == n.nodeID {
		return
	}
	if err := n.handler(m.Key); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		logging.GetCacheLogger().Error("Ошибка инвалидации ключа %s: %v", m.Key, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		logging.GetCacheLogger().Warn("Ошибка отписки от инвалидаций: %v", err)
	}
	n.subscription = nil
}

// Stats возвращает счётчики опубликованных, полученных и ошибочных сообщений.
func (n *NATSInvalidator) Stats() (published, received, errs int64) {
	return atomic.LoadInt64(&n.publishedCount), atomic.LoadInt64(&n.receivedCount), atomic.LoadInt64(&n.errorsCount)
}

// Close закрывает соединение с NATS.
func (n *NATSInvalidator) Close() error {
	n.unsubscribe()
	n.conn.Close()
	return nil
}
