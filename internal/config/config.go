// Package config читает YAML конфигурацию сервера.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/bedrock-server/internal/cache"
	"github.com/annel0/bedrock-server/internal/protocol/packet"
)

// Config корневая структура конфигурации сервера.
// Незаполненные поля берутся из окружения или значений по умолчанию.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	World   WorldConfig   `yaml:"world"`
	Network NetworkConfig `yaml:"network"`
	Cache   cache.Config  `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	RakNetAddr  string `yaml:"raknet_addr"`
	KCPAddr     string `yaml:"kcp_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	// Transports - включённые транспорты: raknet, kcp
	Transports []string `yaml:"transports"`
	MOTD       string   `yaml:"motd"`
	MaxPlayers int      `yaml:"max_players"`
	NodeID     string   `yaml:"node_id"`
}

type WorldConfig struct {
	Seed         int64  `yaml:"seed"`
	DataDir      string `yaml:"data_dir"`
	MinSection   *int   `yaml:"min_section"`
	MaxSection   *int   `yaml:"max_section"`
	Air          uint32 `yaml:"air"`
	HashedIDs    bool   `yaml:"hashed_ids"`
	SaveInterval string `yaml:"save_interval"`
	// Storage - badger или memory
	Storage string `yaml:"storage"`
}

type NetworkConfig struct {
	CompressionThreshold int    `yaml:"compression_threshold"`
	CompressionAlgorithm string `yaml:"compression_algorithm"`
	MaxChunkRadius       int    `yaml:"max_chunk_radius"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// GetRakNetAddr возвращает адрес RakNet с поддержкой fallback значений
func (s *ServerConfig) GetRakNetAddr() string {
	return getStringWithEnvFallback(s.RakNetAddr, "GAME_RAKNET_ADDR", "0.0.0.0:19132")
}

// GetKCPAddr возвращает адрес KCP с поддержкой fallback значений
func (s *ServerConfig) GetKCPAddr() string {
	return getStringWithEnvFallback(s.KCPAddr, "GAME_KCP_ADDR", "0.0.0.0:19133")
}

// GetMetricsAddr возвращает адрес Prometheus метрик. Значение "off" отключает их.
func (s *ServerConfig) GetMetricsAddr() string {
	return getStringWithEnvFallback(s.MetricsAddr, "GAME_METRICS_ADDR", ":2112")
}

// GetTransports возвращает список транспортов в нижнем регистре
func (s *ServerConfig) GetTransports() []string {
	list := s.Transports
	if len(list) == 0 {
		if env := os.Getenv("GAME_TRANSPORTS"); env != "" {
			list = strings.Split(env, ",")
		} else {
			list = []string{"raknet"}
		}
	}
	out := make([]string, 0, len(list))
	for _, t := range list {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *ServerConfig) GetMOTD() string {
	return getStringWithEnvFallback(s.MOTD, "GAME_MOTD", "Bedrock Server")
}

func (s *ServerConfig) GetMaxPlayers() int {
	return getIntWithEnvFallback(s.MaxPlayers, "GAME_MAX_PLAYERS", 20)
}

// GetNodeID возвращает идентификатор узла для инвалидаций кэша
func (s *ServerConfig) GetNodeID() string {
	if id := getStringWithEnvFallback(s.NodeID, "GAME_NODE_ID", ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil {
		return "node"
	}
	return host
}

// GetSeed возвращает зерно генератора
func (w *WorldConfig) GetSeed() int64 {
	if w.Seed != 0 {
		return w.Seed
	}
	if env := os.Getenv("GAME_WORLD_SEED"); env != "" {
		if v, err := strconv.ParseInt(env, 10, 64); err == nil {
			return v
		}
	}
	return 42
}

func (w *WorldConfig) GetDataDir() string {
	return getStringWithEnvFallback(w.DataDir, "GAME_DATA_DIR", "./data")
}

// GetSectionRange возвращает диапазон секций. По умолчанию как в Overworld: -4..19.
func (w *WorldConfig) GetSectionRange() (int, int) {
	minSection, maxSection := -4, 19
	if w.MinSection != nil {
		minSection = *w.MinSection
	}
	if w.MaxSection != nil {
		maxSection = *w.MaxSection
	}
	return minSection, maxSection
}

// GetSaveInterval разбирает интервал автосохранения
func (w *WorldConfig) GetSaveInterval() time.Duration {
	raw := getStringWithEnvFallback(w.SaveInterval, "GAME_SAVE_INTERVAL", "")
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

func (w *WorldConfig) GetStorage() string {
	return strings.ToLower(getStringWithEnvFallback(w.Storage, "GAME_WORLD_STORAGE", "badger"))
}

func (n *NetworkConfig) GetCompressionThreshold() uint16 {
	v := getIntWithEnvFallback(n.CompressionThreshold, "GAME_COMPRESSION_THRESHOLD", 256)
	if v > 0xFFFF {
		v = 0xFFFF
	}
	return uint16(v)
}

// GetCompressionAlgorithm переводит имя алгоритма в значение NetworkSettings
func (n *NetworkConfig) GetCompressionAlgorithm() (uint16, error) {
	name := strings.ToLower(getStringWithEnvFallback(n.CompressionAlgorithm, "GAME_COMPRESSION", "flate"))
	switch name {
	case "flate", "deflate":
		return packet.CompressionFlate, nil
	case "snappy":
		return packet.CompressionSnappy, nil
	case "none":
		return packet.CompressionNone, nil
	}
	return 0, fmt.Errorf("неизвестный алгоритм сжатия %q", name)
}

func (n *NetworkConfig) GetMaxChunkRadius() int32 {
	return int32(getIntWithEnvFallback(n.MaxChunkRadius, "GAME_MAX_CHUNK_RADIUS", 8))
}

func (l *LoggingConfig) GetLevel() string {
	return strings.ToUpper(getStringWithEnvFallback(l.Level, "GAME_LOG_LEVEL", "INFO"))
}

func (l *LoggingConfig) GetDir() string {
	return getStringWithEnvFallback(l.Dir, "GAME_LOG_DIR", "logs")
}

// getStringWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// getIntWithEnvFallback возвращает число с приоритетом: config -> env -> default
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV GAME_CONFIG или возвращает пустой конфиг.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	return &cfg, nil
}
