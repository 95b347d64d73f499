package network

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/annel0/bedrock-server/internal/cache"
	"github.com/annel0/bedrock-server/internal/protocol"
	"github.com/annel0/bedrock-server/internal/protocol/codec"
	"github.com/annel0/bedrock-server/internal/protocol/packet"
	"github.com/annel0/bedrock-server/internal/world"
	"github.com/annel0/bedrock-server/internal/world/chunk"
)

func (s *Server) registerHandlers() error {
	handlers := map[protocol.Opcode]protocol.HandlerFunc{
		packet.IDRequestNetworkSettings:      s.handleRequestNetworkSettings,
		packet.IDLogin:                       s.handleLogin,
		packet.IDResourcePackClientResponse:  s.handleResourcePackResponse,
		packet.IDRequestChunkRadius:          s.handleRequestChunkRadius,
		packet.IDMovePlayer:                  s.handleMovePlayer,
		packet.IDPlayerAction:                s.handlePlayerAction,
		packet.IDText:                        s.handleText,
		packet.IDSetLocalPlayerAsInitialised: s.handleInitialised,
	}
	for op, h := range handlers {
		if err := s.router.Handle(op, h); err != nil {
			return err
		}
	}
	return nil
}

func session(ps protocol.Session) (*Session, error) {
	sess, ok := ps.(*Session)
	if !ok {
		return nil, fmt.Errorf("network: unexpected session type %T", ps)
	}
	return sess, nil
}

// handleRequestNetworkSettings отвечает параметрами сжатия. Все батчи после
// NetworkSettings в обе стороны идут с байтом алгоритма.
func (s *Server) handleRequestNetworkSettings(_ context.Context, ps protocol.Session, pk protocol.Packet) error {
	sess, err := session(ps)
	if err != nil {
		return err
	}
	req := pk.(*packet.RequestNetworkSettings)
	sess.clientProtocol.Store(req.ClientProtocol)

	resp := &packet.NetworkSettings{
		CompressionThreshold: s.conf.CompressionThreshold,
		CompressionAlgorithm: s.conf.CompressionAlgorithm,
	}
	if err := sess.writePacket(resp, true); err != nil {
		return err
	}
	sess.readCompressed.Store(true)
	s.log.Debug("Клиент %s: протокол %d, сжатие %d от %d байт",
		sess.ID(), req.ClientProtocol, resp.CompressionAlgorithm, resp.CompressionThreshold)
	return nil
}

// handleLogin принимает вход без проверки цепочки и предлагает пустой набор ресурсов.
func (s *Server) handleLogin(_ context.Context, ps protocol.Session, pk protocol.Packet) error {
	login := pk.(*packet.Login)
	s.log.Info("👤 Вход %s (протокол %d)", ps.ID(), login.ClientProtocol)

	if err := ps.WritePacket(&packet.PlayStatus{Status: packet.PlayStatusLoginSuccess}); err != nil {
		return err
	}
	return ps.WritePacket(&packet.ResourcePacksInfo{})
}

func (s *Server) handleResourcePackResponse(_ context.Context, ps protocol.Session, pk protocol.Packet) error {
	resp := pk.(*packet.ResourcePackClientResponse)
	switch resp.Response {
	case packet.PackResponseAllPacksDownloaded:
		return ps.WritePacket(&packet.ResourcePackStack{BaseGameVersion: "*"})
	case packet.PackResponseCompleted:
		return ps.WritePacket(&packet.PlayStatus{Status: packet.PlayStatusPlayerSpawn})
	case packet.PackResponseRefused:
		return ps.WritePacket(&packet.Disconnect{Message: "Необходимо принять пакеты ресурсов"})
	}
	return nil
}

// handleRequestChunkRadius согласует радиус и отправляет колонки вокруг игрока.
func (s *Server) handleRequestChunkRadius(ctx context.Context, ps protocol.Session, pk protocol.Packet) error {
	sess, err := session(ps)
	if err != nil {
		return err
	}
	req := pk.(*packet.RequestChunkRadius)

	radius := req.ChunkRadius
	if radius < 1 {
		radius = 1
	}
	if radius > s.conf.MaxChunkRadius {
		radius = s.conf.MaxChunkRadius
	}
	if req.MaxChunkRadius > 0 && radius > int32(req.MaxChunkRadius) {
		radius = int32(req.MaxChunkRadius)
	}
	sess.chunkRadius.Store(radius)

	if err := sess.WritePacket(&packet.ChunkRadiusUpdated{ChunkRadius: radius}); err != nil {
		return err
	}
	return s.sendChunks(ctx, sess)
}

// handleMovePlayer обновляет центр игрока и досылает колонки при смене чанка.
func (s *Server) handleMovePlayer(ctx context.Context, ps protocol.Session, pk protocol.Packet) error {
	sess, err := session(ps)
	if err != nil {
		return err
	}
	move := pk.(*packet.MovePlayer)
	pos := world.ChunkPosAt(int(math.Floor(float64(move.Position.X()))), int(math.Floor(float64(move.Position.Z()))))
	if !sess.setCenter(pos) || sess.ChunkRadius() == 0 {
		return nil
	}
	return s.sendChunks(ctx, sess)
}

// handlePlayerAction заменяет сломанный блок воздухом.
func (s *Server) handlePlayerAction(_ context.Context, _ protocol.Session, pk protocol.Packet) error {
	action := pk.(*packet.PlayerAction)
	if action.ActionType != packet.PlayerActionStopBreak {
		return nil
	}
	p := action.BlockPosition
	return s.world.SetBlock(int(p.X()), int(p.Y()), int(p.Z()), 0, s.world.Air())
}

// handleText рассылает сообщение чата всем игрокам.
func (s *Server) handleText(_ context.Context, ps protocol.Session, pk protocol.Packet) error {
	text := pk.(*packet.Text)
	if text.TextType != packet.TextTypeChat {
		return nil
	}
	s.log.Info("💬 <%s> %s", text.SourceName, text.Message)
	s.Broadcast(&packet.Text{
		TextType:   packet.TextTypeChat,
		SourceName: text.SourceName,
		Message:    text.Message,
		XUID:       text.XUID,
	})
	return nil
}

func (s *Server) handleInitialised(_ context.Context, ps protocol.Session, _ protocol.Packet) error {
	s.log.Info("✅ Игрок %s появился в мире", ps.ID())
	return nil
}

// sendChunks отправляет центр публикации и все колонки в радиусе, ближние первыми.
func (s *Server) sendChunks(ctx context.Context, sess *Session) error {
	center := sess.Center()
	radius := sess.ChunkRadius()

	err := sess.WritePacket(&packet.NetworkChunkPublisherUpdate{
		Position: codec.BlockPosition{center.X<<4 + 8, 0, center.Z<<4 + 8},
		Radius:   uint32(radius) << 4,
	})
	if err != nil {
		return err
	}

	for _, pos := range chunksInRadius(center, radius) {
		lc, err := s.levelChunk(ctx, pos)
		if err != nil {
			return err
		}
		if err := sess.WritePacket(lc); err != nil {
			return err
		}
	}
	return nil
}

// levelChunk берёт payload колонки из кэша или сериализует её из мира.
func (s *Server) levelChunk(ctx context.Context, pos world.ChunkPos) (*packet.LevelChunk, error) {
	var (
		entry *cache.Entry
		ok    bool
	)
	if s.chunks != nil {
		entry, ok = s.chunks.Get(ctx, pos.X, pos.Z)
	}
	if !ok {
		var subs [][]byte
		gen, err := s.world.View(pos, func(c *chunk.Chunk) error {
			subs = c.NetworkSubChunks()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения чанка %s: %w", pos, err)
		}
		entry = cache.NewEntry(subs)
		if s.chunks != nil {
			s.fillCache(ctx, pos, gen, entry)
		}
	}
	return &packet.LevelChunk{
		ChunkX:        pos.X,
		ChunkZ:        pos.Z,
		SubChunkCount: uint32(len(entry.SubChunks)),
		RawPayload:    entry.Payload(),
	}, nil
}

// fillCache кладёт entry в кэш. Если колонка изменилась после чтения, её
// инвалидация могла пройти раньше Put, и запись удаляется повторно.
func (s *Server) fillCache(ctx context.Context, pos world.ChunkPos, gen uint64, entry *cache.Entry) {
	if err := s.chunks.Put(ctx, pos.X, pos.Z, entry); err != nil {
		s.log.Warn("⚠️ Ошибка записи в кэш чанка %s: %v", pos, err)
		return
	}
	if s.world.Generation(pos) == gen {
		return
	}
	if err := s.chunks.Invalidate(ctx, pos.X, pos.Z); err != nil {
		s.log.Warn("⚠️ Ошибка инвалидации кэша чанка %s: %v", pos, err)
	}
}

// chunksInRadius возвращает колонки в круге radius вокруг center по возрастанию расстояния.
func chunksInRadius(center world.ChunkPos, radius int32) []world.ChunkPos {
	var out []world.ChunkPos
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			if dx*dx+dz*dz <= radius*radius {
				out = append(out, world.ChunkPos{X: center.X + dx, Z: center.Z + dz})
			}
		}
	}
	dist := func(p world.ChunkPos) int32 {
		dx, dz := p.X-center.X, p.Z-center.Z
		return dx*dx + dz*dz
	}
	sort.SliceStable(out, func(i, j int) bool { return dist(out[i]) < dist(out[j]) })
	return out
}
