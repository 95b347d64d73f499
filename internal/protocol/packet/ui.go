package packet

import "github.com/annel0/bedrock-server/internal/protocol/codec"

// Типы Text.
const (
	TextTypeRaw uint8 = iota
	TextTypeChat
	TextTypeTranslation
	TextTypePopup
	TextTypeJukeboxPopup
	TextTypeTip
	TextTypeSystem
	TextTypeWhisper
	TextTypeAnnouncement
)

// Text - сообщение чата или системное сообщение.
type Text struct {
	TextType         uint8
	NeedsTranslation bool
	SourceName       string
	Message          string
	Parameters       []string
	XUID             string
	PlatformChatID   string
}

// SetTitle показывает заголовок на экране клиента.
type SetTitle struct {
	ActionType       int32
	Text             string
	FadeInDuration   int32
	RemainDuration   int32
	FadeOutDuration  int32
	XUID             string
	PlatformOnlineID string
}

// ToastRequest показывает всплывающее уведомление.
type ToastRequest struct {
	Title   string
	Message string
}

// PacketViolationWarning - клиент сообщает о некорректном пакете сервера.
type PacketViolationWarning struct {
	Type             int32
	Severity         int32
	PacketID         int32
	ViolationContext string
}

// ContainerOpen открывает окно контейнера.
type ContainerOpen struct {
	WindowID                uint8
	ContainerType           uint8
	ContainerPosition       codec.BlockPosition
	ContainerEntityUniqueID int64
}

// ContainerClose закрывает окно контейнера.
type ContainerClose struct {
	WindowID   uint8
	ServerSide bool
}

// ItemInstance - упрощённый сетевой предмет: NBT и прочие данные
// передаются непрозрачным блоком Extra.
type ItemInstance struct {
	NetworkID      int32
	Count          uint16
	Metadata       uint32
	BlockRuntimeID int32
	Extra          []byte
}

// InventorySlot обновляет один слот окна инвентаря.
type InventorySlot struct {
	WindowID uint32
	Slot     uint32
	Item     ItemInstance
}
