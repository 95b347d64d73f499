package packet

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bedrock-server/internal/protocol"
	"github.com/annel0/bedrock-server/internal/protocol/codec"
	"github.com/annel0/bedrock-server/internal/protocol/wire"
)

func samplePackets() []protocol.Packet {
	rowing := float32(1.25)
	pos := mgl32.Vec3{10, 64.5, -3}
	return []protocol.Packet{
		&RequestNetworkSettings{ClientProtocol: 686},
		&NetworkSettings{CompressionThreshold: 256, CompressionAlgorithm: CompressionFlate, ClientThrottleScalar: 0.5},
		&Login{ClientProtocol: 686, ConnectionRequest: []byte("{chain}")},
		&PlayStatus{Status: PlayStatusPlayerSpawn},
		&Disconnect{HideDisconnectionScreen: true, Message: "bye"},
		&ResourcePacksInfo{HasScripts: true, TexturePacks: []TexturePackInfo{{UUID: "a", Version: "1.0.0", Size: 1024}}},
		&ResourcePackStack{
			TexturePackRequired: true,
			BehaviourPacks:      []StackResourcePack{{UUID: "b", Version: "2.0.0"}},
			BaseGameVersion:     "1.21.0",
			Experiments:         []ExperimentData{{Name: "data_driven_items", Enabled: true}},
		},
		&ResourcePackClientResponse{Response: PackResponseCompleted, PacksToDownload: []string{"a_1.0.0"}},
		&Text{TextType: TextTypeChat, SourceName: "Steve", Message: "привет", Parameters: []string{"x"}, XUID: "123"},
		&AddPlayer{
			UUID:            uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
			Username:        "Alex",
			EntityRuntimeID: 5,
			Position:        pos,
			Velocity:        mgl32.Vec3{0, -0.08, 0},
			Pitch:           10, Yaw: 90, HeadYaw: 90,
			GameType:       -1,
			EntityUniqueID: -5,
			DeviceID:       "dev",
			BuildPlatform:  7,
		},
		&RemoveEntity{EntityUniqueID: -77},
		&MovePlayer{EntityRuntimeID: 1, Position: pos, Yaw: 180, Mode: MoveModeTeleport, OnGround: true, Tick: 99},
		&Interact{ActionType: 6, TargetEntityRuntimeID: 3, Position: &pos},
		&Interact{ActionType: 4, TargetEntityRuntimeID: 3},
		&BlockPickRequest{Position: codec.BlockPosition{-1, 62, 15}, HotBarSlot: 3},
		&PlayerAction{EntityRuntimeID: 1, ActionType: 0, BlockPosition: codec.BlockPosition{1, 2, 3}, BlockFace: -1},
		&Animate{ActionType: 128, EntityRuntimeID: 9, BoatRowingTime: &rowing},
		&Animate{ActionType: 1, EntityRuntimeID: 9},
		&ContainerOpen{WindowID: 1, ContainerType: 0, ContainerPosition: codec.BlockPosition{0, 64, 0}, ContainerEntityUniqueID: -1},
		&ContainerClose{WindowID: 1, ServerSide: true},
		&InventorySlot{WindowID: 0, Slot: 8, Item: ItemInstance{NetworkID: 5, Count: 64, BlockRuntimeID: 1234, Extra: []byte{0x0A, 0x00}}},
		&LevelChunk{ChunkX: -3, ChunkZ: 4, SubChunkCount: 2, CacheEnabled: true, BlobHashes: []uint64{1, 1 << 63}, RawPayload: []byte{8, 1, 2}},
		&RequestChunkRadius{ChunkRadius: 8, MaxChunkRadius: 16},
		&ChunkRadiusUpdated{ChunkRadius: 8},
		&SetTitle{ActionType: 2, Text: "Добро пожаловать", FadeInDuration: 10, RemainDuration: 70, FadeOutDuration: 20},
		&SetLocalPlayerAsInitialised{EntityRuntimeID: 1},
		&NetworkChunkPublisherUpdate{Position: codec.BlockPosition{0, 0, 0}, Radius: 128, SavedChunks: []ChunkPos{{-1, 2}}},
		&PacketViolationWarning{Type: 0, Severity: 1, PacketID: 58, ViolationContext: "bad chunk"},
		&ToastRequest{Title: "Сохранено", Message: "мир сохранён"},
		&UpdateAbilities{EntityUniqueID: 1, PlayerPermissions: 1, Layers: []AbilityLayer{{Type: 1, Abilities: 0x3FFFF, Values: 0x1, FlySpeed: 0.05, WalkSpeed: 0.1}}},
	}
}

func TestNewRegistryContainsAllPackets(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.True(t, r.Sealed())
	assert.Len(t, r.Opcodes(), 28)

	entry, ok := r.Lookup(IDLevelChunk)
	require.True(t, ok)
	assert.Equal(t, "LevelChunk", entry.Name)
}

func TestPacketRoundTrip(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	for _, pk := range samplePackets() {
		payload, err := r.Encode(pk)
		require.NoError(t, err, "кодирование %T", pk)

		decoded, err := r.Decode(payload)
		require.NoError(t, err, "декодирование %T", pk)
		assert.Equal(t, pk, decoded, "пакет %T после round trip", pk)

		// Повторное кодирование даёт те же байты
		again, err := r.Encode(decoded)
		require.NoError(t, err)
		assert.Equal(t, payload, again)
	}
}

func TestPacketTruncated(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	for _, pk := range samplePackets() {
		payload, err := r.Encode(pk)
		require.NoError(t, err)

		opcode, err := r.Opcode(pk)
		require.NoError(t, err)
		headerLen := wire.NewWriter(5)
		headerLen.WriteUVarint32(uint32(opcode))

		// Любая обрезка после заголовка - MalformedPacketError с ErrTruncatedBuffer
		for n := headerLen.Len(); n < len(payload); n++ {
			_, err := r.Decode(payload[:n])
			var malformed *protocol.MalformedPacketError
			require.True(t, errors.As(err, &malformed), "%T обрезан до %d: %v", pk, n, err)
			assert.Equal(t, opcode, malformed.Opcode)
			assert.ErrorIs(t, err, wire.ErrTruncatedBuffer, "%T обрезан до %d", pk, n)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	w := wire.NewWriter(4)
	w.WriteUVarint32(0x7FF)
	_, err = r.Decode(w.Bytes())
	assert.ErrorIs(t, err, protocol.ErrUnknownOpcode)
}

func TestLevelChunkWireLayout(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	payload, err := r.Encode(&LevelChunk{ChunkX: -1, ChunkZ: 1, SubChunkCount: 1, RawPayload: []byte{0xAA}})
	require.NoError(t, err)
	// opcode 58, zigzag(-1)=1, zigzag(1)=2, count 1, cache false, 0 хэшей, payload
	assert.Equal(t, []byte{58, 1, 2, 1, 0, 0, 1, 0xAA}, payload)
}
