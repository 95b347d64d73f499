package packet

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/annel0/bedrock-server/internal/protocol/codec"
)

// AddPlayer показывает другого игрока клиенту.
type AddPlayer struct {
	UUID               uuid.UUID
	Username           string
	EntityRuntimeID    uint64
	PlatformChatID     string
	Position           mgl32.Vec3
	Velocity           mgl32.Vec3
	Pitch              float32
	Yaw                float32
	HeadYaw            float32
	GameType           int32
	EntityUniqueID     int64
	PlayerPermissions  uint8
	CommandPermissions uint8
	DeviceID           string
	BuildPlatform      int32
}

// RemoveEntity удаляет сущность у клиента.
type RemoveEntity struct {
	EntityUniqueID int64
}

// Режимы MovePlayer.
const (
	MoveModeNormal uint8 = iota
	MoveModeReset
	MoveModeTeleport
	MoveModeRotation
)

// MovePlayer - позиция и поворот игрока.
type MovePlayer struct {
	EntityRuntimeID       uint64
	Position              mgl32.Vec3
	Pitch                 float32
	Yaw                   float32
	HeadYaw               float32
	Mode                  uint8
	OnGround              bool
	RiddenEntityRuntimeID uint64
	Tick                  uint64
}

// Interact - взаимодействие игрока с сущностью.
type Interact struct {
	ActionType            uint8
	TargetEntityRuntimeID uint64
	// Position передаётся только для некоторых действий.
	Position *mgl32.Vec3
}

// Типы действий PlayerAction.
const (
	PlayerActionStartBreak int32 = iota
	PlayerActionAbortBreak
	PlayerActionStopBreak
)

// PlayerAction - действие игрока (ломание блока, прыжок и т.п.).
type PlayerAction struct {
	EntityRuntimeID uint64
	ActionType      int32
	BlockPosition   codec.BlockPosition
	ResultPosition  codec.BlockPosition
	BlockFace       int32
}

// Animate - анимация сущности. BoatRowingTime есть только у гребли.
type Animate struct {
	ActionType      int32
	EntityRuntimeID uint64
	BoatRowingTime  *float32
}

// AbilityLayer - слой способностей игрока.
type AbilityLayer struct {
	Type      uint16
	Abilities uint32
	Values    uint32
	FlySpeed  float32
	WalkSpeed float32
}

// UpdateAbilities обновляет права и способности игрока.
type UpdateAbilities struct {
	EntityUniqueID     int64
	PlayerPermissions  uint8
	CommandPermissions uint8
	Layers             []AbilityLayer
}

// SetLocalPlayerAsInitialised - клиент закончил загрузку и готов к игре.
type SetLocalPlayerAsInitialised struct {
	EntityRuntimeID uint64
}
