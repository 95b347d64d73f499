// Package packet содержит структуры пакетов Bedrock и таблицу их схем.
package packet

import "github.com/annel0/bedrock-server/internal/protocol"

// Идентификаторы пакетов Bedrock.
const (
	IDLogin                       protocol.Opcode = 1
	IDPlayStatus                  protocol.Opcode = 2
	IDDisconnect                  protocol.Opcode = 5
	IDResourcePacksInfo           protocol.Opcode = 6
	IDResourcePackStack           protocol.Opcode = 7
	IDResourcePackClientResponse  protocol.Opcode = 8
	IDText                        protocol.Opcode = 9
	IDAddPlayer                   protocol.Opcode = 12
	IDRemoveEntity                protocol.Opcode = 14
	IDMovePlayer                  protocol.Opcode = 19
	IDInteract                    protocol.Opcode = 33
	IDBlockPickRequest            protocol.Opcode = 34
	IDPlayerAction                protocol.Opcode = 36
	IDAnimate                     protocol.Opcode = 44
	IDContainerOpen               protocol.Opcode = 46
	IDContainerClose              protocol.Opcode = 47
	IDInventorySlot               protocol.Opcode = 50
	IDLevelChunk                  protocol.Opcode = 58
	IDRequestChunkRadius          protocol.Opcode = 69
	IDChunkRadiusUpdated          protocol.Opcode = 70
	IDSetTitle                    protocol.Opcode = 88
	IDSetLocalPlayerAsInitialised protocol.Opcode = 113
	IDNetworkChunkPublisherUpdate protocol.Opcode = 121
	IDNetworkSettings             protocol.Opcode = 143
	IDPacketViolationWarning      protocol.Opcode = 156
	IDToastRequest                protocol.Opcode = 186
	IDUpdateAbilities             protocol.Opcode = 187
	IDRequestNetworkSettings      protocol.Opcode = 193
)

// Статусы PlayStatus.
const (
	PlayStatusLoginSuccess int32 = iota
	PlayStatusLoginFailedClient
	PlayStatusLoginFailedServer
	PlayStatusPlayerSpawn
	PlayStatusLoginFailedInvalidTenant
	PlayStatusLoginFailedVanillaEdu
	PlayStatusLoginFailedEduVanilla
	PlayStatusLoginFailedServerFull
)

// Алгоритмы сжатия в NetworkSettings.
const (
	CompressionFlate  uint16 = 0
	CompressionSnappy uint16 = 1
	CompressionNone   uint16 = 0xFFFF
)
