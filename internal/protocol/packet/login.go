package packet

// RequestNetworkSettings - первый пакет клиента, содержит версию протокола.
type RequestNetworkSettings struct {
	ClientProtocol int32
}

// NetworkSettings - ответ сервера с параметрами сжатия.
type NetworkSettings struct {
	CompressionThreshold    uint16
	CompressionAlgorithm    uint16
	ClientThrottle          bool
	ClientThrottleThreshold uint8
	ClientThrottleScalar    float32
}

// Login несёт версию протокола и цепочку JWT клиента без разбора.
type Login struct {
	ClientProtocol    int32
	ConnectionRequest []byte
}

// PlayStatus сообщает клиенту результат входа или готовность к спавну.
type PlayStatus struct {
	Status int32
}

// Disconnect разрывает соединение с сообщением.
type Disconnect struct {
	HideDisconnectionScreen bool
	Message                 string
}

// TexturePackInfo описывает пакет ресурсов в ResourcePacksInfo.
type TexturePackInfo struct {
	UUID            string
	Version         string
	Size            uint64
	ContentKey      string
	SubPackName     string
	ContentIdentity string
	HasScripts      bool
	RTXEnabled      bool
}

// ResourcePacksInfo перечисляет пакеты ресурсов сервера.
type ResourcePacksInfo struct {
	TexturePackRequired bool
	HasAddons           bool
	HasScripts          bool
	TexturePacks        []TexturePackInfo
}

// StackResourcePack - запись стека пакетов ресурсов.
type StackResourcePack struct {
	UUID        string
	Version     string
	SubPackName string
}

// ExperimentData - флаг экспериментальной функции.
type ExperimentData struct {
	Name    string
	Enabled bool
}

// ResourcePackStack задаёт порядок применения пакетов ресурсов.
type ResourcePackStack struct {
	TexturePackRequired          bool
	BehaviourPacks               []StackResourcePack
	TexturePacks                 []StackResourcePack
	BaseGameVersion              string
	Experiments                  []ExperimentData
	ExperimentsPreviouslyToggled bool
}

// Ответы ResourcePackClientResponse.
const (
	PackResponseRefused uint8 = iota + 1
	PackResponseSendPacks
	PackResponseAllPacksDownloaded
	PackResponseCompleted
)

// ResourcePackClientResponse - ответ клиента на предложенные пакеты ресурсов.
type ResourcePackClientResponse struct {
	Response        uint8
	PacksToDownload []string
}
