package network

import (
	"fmt"
	"net"

	"github.com/sandertv/go-raknet"
)

// Status - данные ответа на unconnected ping, которые клиент показывает в списке серверов.
type Status struct {
	MOTD       string
	SubMOTD    string
	Protocol   int32
	Version    string
	Players    int
	MaxPlayers int
	GameMode   string
}

// pongData собирает строку статуса в формате Bedrock.
func (st Status) pongData(guid int64, port int) []byte {
	return []byte(fmt.Sprintf("MCPE;%s;%d;%s;%d;%d;%d;%s;%s;1;%d;%d;",
		st.MOTD, st.Protocol, st.Version, st.Players, st.MaxPlayers, guid, st.SubMOTD, st.GameMode, port, port))
}

// RakNetListener принимает Bedrock клиентов по RakNet. RakNet сохраняет
// границы пакетов, поэтому каждый пакет RakNet - один батч.
type RakNetListener struct {
	l *raknet.Listener
}

// ListenRakNet начинает слушать addr
func ListenRakNet(addr string, status Status) (*RakNetListener, error) {
	l, err := raknet.Listen(addr)
	if err != nil {
		return nil, fmt.Errorf("ошибка запуска RakNet на %s: %w", addr, err)
	}
	rl := &RakNetListener{l: l}
	rl.SetStatus(status)
	return rl, nil
}

// SetStatus обновляет ответ на ping.
func (rl *RakNetListener) SetStatus(status Status) {
	port := 0
	if a, ok := rl.l.Addr().(*net.UDPAddr); ok {
		port = a.Port
	}
	rl.l.PongData(status.pongData(rl.l.ID(), port))
}

// Accept ждёт следующего клиента
func (rl *RakNetListener) Accept() (Conn, error) {
	c, err := rl.l.Accept()
	if err != nil {
		return nil, err
	}
	return &rakNetConn{c: c.(*raknet.Conn)}, nil
}

// Addr возвращает локальный адрес
func (rl *RakNetListener) Addr() net.Addr { return rl.l.Addr() }

// Close останавливает приём
func (rl *RakNetListener) Close() error { return rl.l.Close() }

type rakNetConn struct {
	c *raknet.Conn
}

func (r *rakNetConn) ReadBatch() ([]byte, error) { return r.c.ReadPacket() }

func (r *rakNetConn) WriteBatch(b []byte) error {
	_, err := r.c.Write(b)
	return err
}

func (r *rakNetConn) RemoteAddr() net.Addr { return r.c.RemoteAddr() }

func (r *rakNetConn) Close() error { return r.c.Close() }
