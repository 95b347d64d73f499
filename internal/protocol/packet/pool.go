package packet

import (
	"github.com/annel0/bedrock-server/internal/protocol"
	"github.com/annel0/bedrock-server/internal/protocol/codec"
)

// definition - строка таблицы пакетов.
type definition struct {
	opcode    protocol.Opcode
	prototype protocol.Packet
	schema    codec.Schema
}

var (
	stackPack = codec.Struct(codec.Field("UUID", codec.String), codec.Field("Version", codec.String), codec.Field("SubPackName", codec.String))
	item      = []codec.FieldSpec{
		codec.Field("NetworkID", codec.ZigZag32),
		codec.LE("Count", codec.Uint16),
		codec.Field("Metadata", codec.UVarint32),
		codec.Field("BlockRuntimeID", codec.ZigZag32),
		codec.Field("Extra", codec.ByteSlice),
	}
)

// definitions - схемы всех пакетов. Порядок полей каждой схемы и есть формат
// пакета на проводе.
var definitions = []definition{
	{IDLogin, &Login{}, codec.Schema{
		codec.Field("ClientProtocol", codec.Int32),
		codec.Field("ConnectionRequest", codec.ByteSlice),
	}},
	{IDPlayStatus, &PlayStatus{}, codec.Schema{
		codec.Field("Status", codec.Int32),
	}},
	{IDDisconnect, &Disconnect{}, codec.Schema{
		codec.Field("HideDisconnectionScreen", codec.Bool),
		codec.Field("Message", codec.String),
	}},
	{IDResourcePacksInfo, &ResourcePacksInfo{}, codec.Schema{
		codec.Field("TexturePackRequired", codec.Bool),
		codec.Field("HasAddons", codec.Bool),
		codec.Field("HasScripts", codec.Bool),
		codec.ArrayOf("TexturePacks", codec.Struct(
			codec.Field("UUID", codec.String),
			codec.Field("Version", codec.String),
			codec.LE("Size", codec.Uint64),
			codec.Field("ContentKey", codec.String),
			codec.Field("SubPackName", codec.String),
			codec.Field("ContentIdentity", codec.String),
			codec.Field("HasScripts", codec.Bool),
			codec.Field("RTXEnabled", codec.Bool),
		)),
	}},
	{IDResourcePackStack, &ResourcePackStack{}, codec.Schema{
		codec.Field("TexturePackRequired", codec.Bool),
		codec.ArrayOf("BehaviourPacks", stackPack),
		codec.ArrayOf("TexturePacks", stackPack),
		codec.Field("BaseGameVersion", codec.String),
		codec.ArrayOf("Experiments", codec.Struct(codec.Field("Name", codec.String), codec.Field("Enabled", codec.Bool))),
		codec.Field("ExperimentsPreviouslyToggled", codec.Bool),
	}},
	{IDResourcePackClientResponse, &ResourcePackClientResponse{}, codec.Schema{
		codec.Field("Response", codec.Uint8),
		codec.ArrayOf("PacksToDownload", codec.Elem(codec.String)),
	}},
	{IDText, &Text{}, codec.Schema{
		codec.Field("TextType", codec.Uint8),
		codec.Field("NeedsTranslation", codec.Bool),
		codec.Field("SourceName", codec.String),
		codec.Field("Message", codec.String),
		codec.ArrayOf("Parameters", codec.Elem(codec.String)),
		codec.Field("XUID", codec.String),
		codec.Field("PlatformChatID", codec.String),
	}},
	{IDAddPlayer, &AddPlayer{}, codec.Schema{
		codec.Field("UUID", codec.UUID),
		codec.Field("Username", codec.String),
		codec.Field("EntityRuntimeID", codec.UVarint64),
		codec.Field("PlatformChatID", codec.String),
		codec.Field("Position", codec.Vec3),
		codec.Field("Velocity", codec.Vec3),
		codec.LE("Pitch", codec.Float32),
		codec.LE("Yaw", codec.Float32),
		codec.LE("HeadYaw", codec.Float32),
		codec.Field("GameType", codec.ZigZag32),
		codec.LE("EntityUniqueID", codec.Int64),
		codec.Field("PlayerPermissions", codec.Uint8),
		codec.Field("CommandPermissions", codec.Uint8),
		codec.Field("DeviceID", codec.String),
		codec.LE("BuildPlatform", codec.Int32),
	}},
	{IDRemoveEntity, &RemoveEntity{}, codec.Schema{
		codec.Field("EntityUniqueID", codec.ZigZag64),
	}},
	{IDMovePlayer, &MovePlayer{}, codec.Schema{
		codec.Field("EntityRuntimeID", codec.UVarint64),
		codec.Field("Position", codec.Vec3),
		codec.LE("Pitch", codec.Float32),
		codec.LE("Yaw", codec.Float32),
		codec.LE("HeadYaw", codec.Float32),
		codec.Field("Mode", codec.Uint8),
		codec.Field("OnGround", codec.Bool),
		codec.Field("RiddenEntityRuntimeID", codec.UVarint64),
		codec.Field("Tick", codec.UVarint64),
	}},
	{IDInteract, &Interact{}, codec.Schema{
		codec.Field("ActionType", codec.Uint8),
		codec.Field("TargetEntityRuntimeID", codec.UVarint64),
		codec.OptionalOf("Position", codec.Elem(codec.Vec3)),
	}},
	{IDBlockPickRequest, &BlockPickRequest{}, codec.Schema{
		codec.Field("Position", codec.BlockPos),
		codec.Field("AddBlockNBT", codec.Bool),
		codec.Field("HotBarSlot", codec.Uint8),
	}},
	{IDPlayerAction, &PlayerAction{}, codec.Schema{
		codec.Field("EntityRuntimeID", codec.UVarint64),
		codec.Field("ActionType", codec.ZigZag32),
		codec.Field("BlockPosition", codec.BlockPos),
		codec.Field("ResultPosition", codec.BlockPos),
		codec.Field("BlockFace", codec.ZigZag32),
	}},
	{IDAnimate, &Animate{}, codec.Schema{
		codec.Field("ActionType", codec.ZigZag32),
		codec.Field("EntityRuntimeID", codec.UVarint64),
		codec.OptionalOf("BoatRowingTime", codec.ElemLE(codec.Float32)),
	}},
	{IDContainerOpen, &ContainerOpen{}, codec.Schema{
		codec.Field("WindowID", codec.Uint8),
		codec.Field("ContainerType", codec.Uint8),
		codec.Field("ContainerPosition", codec.BlockPos),
		codec.Field("ContainerEntityUniqueID", codec.ZigZag64),
	}},
	{IDContainerClose, &ContainerClose{}, codec.Schema{
		codec.Field("WindowID", codec.Uint8),
		codec.Field("ServerSide", codec.Bool),
	}},
	{IDInventorySlot, &InventorySlot{}, codec.Schema{
		codec.Field("WindowID", codec.UVarint32),
		codec.Field("Slot", codec.UVarint32),
		codec.CompositeOf("Item", item...),
	}},
	{IDLevelChunk, &LevelChunk{}, codec.Schema{
		codec.Field("ChunkX", codec.ZigZag32),
		codec.Field("ChunkZ", codec.ZigZag32),
		codec.Field("SubChunkCount", codec.UVarint32),
		codec.Field("CacheEnabled", codec.Bool),
		codec.ArrayOf("BlobHashes", codec.ElemLE(codec.Uint64)),
		codec.Field("RawPayload", codec.ByteSlice),
	}},
	{IDRequestChunkRadius, &RequestChunkRadius{}, codec.Schema{
		codec.Field("ChunkRadius", codec.ZigZag32),
		codec.Field("MaxChunkRadius", codec.Uint8),
	}},
	{IDChunkRadiusUpdated, &ChunkRadiusUpdated{}, codec.Schema{
		codec.Field("ChunkRadius", codec.ZigZag32),
	}},
	{IDSetTitle, &SetTitle{}, codec.Schema{
		codec.Field("ActionType", codec.ZigZag32),
		codec.Field("Text", codec.String),
		codec.Field("FadeInDuration", codec.ZigZag32),
		codec.Field("RemainDuration", codec.ZigZag32),
		codec.Field("FadeOutDuration", codec.ZigZag32),
		codec.Field("XUID", codec.String),
		codec.Field("PlatformOnlineID", codec.String),
	}},
	{IDSetLocalPlayerAsInitialised, &SetLocalPlayerAsInitialised{}, codec.Schema{
		codec.Field("EntityRuntimeID", codec.UVarint64),
	}},
	{IDNetworkChunkPublisherUpdate, &NetworkChunkPublisherUpdate{}, codec.Schema{
		codec.Field("Position", codec.BlockPos),
		codec.Field("Radius", codec.UVarint32),
		codec.ArrayOf("SavedChunks", codec.Struct(codec.Field("X", codec.ZigZag32), codec.Field("Z", codec.ZigZag32))),
	}},
	{IDNetworkSettings, &NetworkSettings{}, codec.Schema{
		codec.LE("CompressionThreshold", codec.Uint16),
		codec.LE("CompressionAlgorithm", codec.Uint16),
		codec.Field("ClientThrottle", codec.Bool),
		codec.Field("ClientThrottleThreshold", codec.Uint8),
		codec.LE("ClientThrottleScalar", codec.Float32),
	}},
	{IDPacketViolationWarning, &PacketViolationWarning{}, codec.Schema{
		codec.Field("Type", codec.ZigZag32),
		codec.Field("Severity", codec.ZigZag32),
		codec.Field("PacketID", codec.ZigZag32),
		codec.Field("ViolationContext", codec.String),
	}},
	{IDToastRequest, &ToastRequest{}, codec.Schema{
		codec.Field("Title", codec.String),
		codec.Field("Message", codec.String),
	}},
	{IDUpdateAbilities, &UpdateAbilities{}, codec.Schema{
		codec.LE("EntityUniqueID", codec.Int64),
		codec.Field("PlayerPermissions", codec.Uint8),
		codec.Field("CommandPermissions", codec.Uint8),
		codec.ArrayOf("Layers", codec.Struct(
			codec.LE("Type", codec.Uint16),
			codec.LE("Abilities", codec.Uint32),
			codec.LE("Values", codec.Uint32),
			codec.LE("FlySpeed", codec.Float32),
			codec.LE("WalkSpeed", codec.Float32),
		)),
	}},
	{IDRequestNetworkSettings, &RequestNetworkSettings{}, codec.Schema{
		codec.Field("ClientProtocol", codec.Int32),
	}},
}

// NewRegistry строит и замораживает реестр со всеми пакетами. Ошибка
// означает ошибку в таблице схем и возвращается при старте сервера.
func NewRegistry() (*protocol.Registry, error) {
	r := protocol.NewRegistry()
	for _, d := range definitions {
		if err := r.Register(d.opcode, d.prototype, d.schema); err != nil {
			return nil, err
		}
	}
	r.Seal()
	return r, nil
}
