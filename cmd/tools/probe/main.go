package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/annel0/bedrock-server/internal/logging"
	"github.com/annel0/bedrock-server/internal/network"
	"github.com/annel0/bedrock-server/internal/protocol"
	"github.com/annel0/bedrock-server/internal/protocol/packet"
)

// probe - тестовый клиент для анализа протокола поверх KCP
type probe struct {
	conn network.Conn
	reg  *protocol.Registry
	comp network.Compression
	dump bool
}

func main() {
	var (
		addr   = flag.String("addr", "localhost:19133", "KCP адрес сервера")
		radius = flag.Int("radius", 2, "Запрашиваемый радиус чанков")
		dump   = flag.Bool("dump", false, "Печатать hex дамп батчей")
	)
	flag.Parse()

	fmt.Println("=== ТЕСТОВЫЙ КЛИЕНТ ДЛЯ АНАЛИЗА ПРОТОКОЛА ===")

	conn, err := network.DialKCP(*addr)
	if err != nil {
		log.Fatalf("Ошибка подключения: %v", err)
	}
	defer conn.Close()

	reg, err := packet.NewRegistry()
	if err != nil {
		log.Fatalf("Ошибка реестра пакетов: %v", err)
	}
	p := &probe{conn: conn, reg: reg, dump: *dump}
	fmt.Println("✅ Подключен к серверу")

	fmt.Println("\n=== ТЕСТ 1: СЕТЕВЫЕ НАСТРОЙКИ ===")
	p.send(&packet.RequestNetworkSettings{ClientProtocol: 712})
	for _, pk := range p.recv() {
		if s, ok := pk.(*packet.NetworkSettings); ok {
			p.comp = network.Compression{Enabled: true, Algorithm: s.CompressionAlgorithm, Threshold: int(s.CompressionThreshold)}
		}
	}
	if !p.comp.Enabled {
		log.Fatalf("❌ Сервер не прислал NetworkSettings")
	}

	fmt.Println("\n=== ТЕСТ 2: ВХОД ===")
	p.send(&packet.Login{ClientProtocol: 712, ConnectionRequest: []byte("{}")})
	p.recv()

	fmt.Println("\n=== ТЕСТ 3: ЗАПРОС ЧАНКОВ ===")
	p.send(&packet.RequestChunkRadius{ChunkRadius: int32(*radius), MaxChunkRadius: uint8(*radius)})

	start := time.Now()
	chunks, total, expected := 0, 0, -1
	for expected < 0 || chunks < expected {
		for _, pk := range p.recv() {
			switch pk := pk.(type) {
			case *packet.ChunkRadiusUpdated:
				expected = circleSize(pk.ChunkRadius)
				fmt.Printf("📐 Радиус %d, ожидаем колонок: %d\n", pk.ChunkRadius, expected)
			case *packet.LevelChunk:
				chunks++
				total += len(pk.RawPayload)
			}
		}
	}
	fmt.Printf("🧱 Получено колонок: %d, payload %d байт за %v\n", chunks, total, time.Since(start))
	fmt.Println("\n=== ТЕСТИРОВАНИЕ ЗАВЕРШЕНО ===")
}

func (p *probe) send(pks ...protocol.Packet) {
	payloads := make([][]byte, 0, len(pks))
	for _, pk := range pks {
		b, err := p.reg.Encode(pk)
		if err != nil {
			log.Fatalf("❌ Ошибка сериализации %T: %v", pk, err)
		}
		payloads = append(payloads, b)
	}
	batch, err := network.EncodeBatch(payloads, p.comp)
	if err != nil {
		log.Fatalf("❌ Ошибка упаковки батча: %v", err)
	}
	fmt.Printf("📤 Отправка батча (%d байт, пакетов %d)\n", len(batch), len(pks))
	if p.dump {
		fmt.Print(logging.HexDump(batch))
	}
	if err := p.conn.WriteBatch(batch); err != nil {
		log.Fatalf("❌ Ошибка отправки: %v", err)
	}
}

func (p *probe) recv() []protocol.Packet {
	batch, err := p.conn.ReadBatch()
	if err != nil {
		log.Fatalf("❌ Ошибка чтения: %v", err)
	}
	if p.dump {
		fmt.Print(logging.HexDump(batch))
	}
	payloads, err := network.DecodeBatch(batch, p.comp)
	if err != nil {
		log.Fatalf("❌ Ошибка распаковки батча: %v", err)
	}

	out := make([]protocol.Packet, 0, len(payloads))
	for _, b := range payloads {
		pk, err := p.reg.Decode(b)
		if err != nil {
			fmt.Printf("⚠️ Не удалось декодировать пакет (%d байт): %v\n", len(b), err)
			continue
		}
		fmt.Printf("📥 %T (%d байт)\n", pk, len(b))
		out = append(out, pk)
	}
	return out
}

// circleSize - число колонок в круге радиуса r, как их отправляет сервер
func circleSize(r int32) int {
	n := 0
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			if dx*dx+dz*dz <= r*r {
				n++
			}
		}
	}
	return n
}
