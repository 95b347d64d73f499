package packet

import "github.com/annel0/bedrock-server/internal/protocol/codec"

// ChunkPos - координаты колонки чанка.
type ChunkPos struct {
	X int32
	Z int32
}

// LevelChunk передаёт колонку чанка: сериализованные саб-чанки до самой
// высокой непустой секции.
type LevelChunk struct {
	ChunkX        int32
	ChunkZ        int32
	SubChunkCount uint32
	CacheEnabled  bool
	// BlobHashes - xxhash64 каждого саб-чанка, если включён кэш блобов.
	BlobHashes []uint64
	RawPayload []byte
}

// RequestChunkRadius - желаемый клиентом радиус прорисовки.
type RequestChunkRadius struct {
	ChunkRadius    int32
	MaxChunkRadius uint8
}

// ChunkRadiusUpdated - радиус, который сервер готов отдавать.
type ChunkRadiusUpdated struct {
	ChunkRadius int32
}

// NetworkChunkPublisherUpdate сообщает клиенту центр и радиус загрузки чанков.
type NetworkChunkPublisherUpdate struct {
	Position    codec.BlockPosition
	Radius      uint32
	SavedChunks []ChunkPos
}

// BlockPickRequest - выбор блока средней кнопкой мыши.
type BlockPickRequest struct {
	Position    codec.BlockPosition
	AddBlockNBT bool
	HotBarSlot  uint8
}
