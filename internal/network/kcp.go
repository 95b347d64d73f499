package network

import (
	"fmt"
	"net"

	"github.com/xtaci/kcp-go/v5"
)

// tuneKCP настраивает KCP параметры для игрового трафика
func tuneKCP(conn *kcp.UDPSession) {
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(1, 20, 2, 1) // Агрессивные настройки для игр
	conn.SetWindowSize(512, 512) // Увеличиваем окно для пропускной способности
	conn.SetMtu(1400)            // Стандартный MTU для интернета
}

// KCPListener - альтернативный надёжный UDP транспорт. KCP работает как
// поток, поэтому батчи разделяются префиксом длины.
type KCPListener struct {
	l *kcp.Listener
}

// ListenKCP начинает слушать addr
func ListenKCP(addr string) (*KCPListener, error) {
	l, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка запуска KCP на %s: %w", addr, err)
	}
	return &KCPListener{l: l}, nil
}

// Accept ждёт следующего клиента
func (kl *KCPListener) Accept() (Conn, error) {
	sess, err := kl.l.AcceptKCP()
	if err != nil {
		return nil, err
	}
	tuneKCP(sess)
	return newStreamConn(sess), nil
}

// Addr возвращает локальный адрес
func (kl *KCPListener) Addr() net.Addr { return kl.l.Addr() }

// Close останавливает приём
func (kl *KCPListener) Close() error { return kl.l.Close() }

// DialKCP подключается к KCP серверу.
func DialKCP(addr string) (Conn, error) {
	sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения KCP к %s: %w", addr, err)
	}
	tuneKCP(sess)
	return newStreamConn(sess), nil
}
