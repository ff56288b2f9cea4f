package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации движка мира.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Loader    LoaderConfig    `yaml:"loader"`
	Pathfind  PathfindConfig  `yaml:"pathfind"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorldConfig описывает источник рельефа и стартовую область загрузки
type WorldConfig struct {
	Seed       int64  `yaml:"seed"`
	Source     string `yaml:"source"` // memory | perlin
	ChunkMinX  int32  `yaml:"chunk_min_x"`
	ChunkMinY  int32  `yaml:"chunk_min_y"`
	ChunkMaxX  int32  `yaml:"chunk_max_x"`
	ChunkMaxY  int32  `yaml:"chunk_max_y"`
	SlabMin    int32  `yaml:"slab_min"`
	SlabMax    int32  `yaml:"slab_max"`
	CacheSlabs bool   `yaml:"cache_slabs"`
	CacheMB    int64  `yaml:"cache_mb"`
}

type LoaderConfig struct {
	WorkerCount     int           `yaml:"workers"` // 0: по числу логических CPU
	RequestChannels int           `yaml:"request_channels"`
	ChannelCapacity int           `yaml:"channel_capacity"`
	RequestsPerSec  float64       `yaml:"requests_per_second"` // 0: без ограничения
	RequestBurst    int           `yaml:"request_burst"`
	BatchSize       int           `yaml:"batch_size"`
	LoadTimeout     time.Duration `yaml:"load_timeout"`
	UpdateTick      time.Duration `yaml:"update_tick"` // период применения изменений рельефа
}

type PathfindConfig struct {
	MaxRetries  int `yaml:"max_retries"`
	WorkerCount int `yaml:"workers"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ServerConfig struct {
	HTTPPort int  `yaml:"http_port"`
	Metrics  bool `yaml:"metrics"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:      12345,
			Source:    "perlin",
			ChunkMinX: -2,
			ChunkMinY: -2,
			ChunkMaxX: 2,
			ChunkMaxY: 2,
			SlabMin:   -1,
			SlabMax:   1,
			CacheMB:   64,
		},
		Loader: LoaderConfig{
			RequestChannels: 8,
			ChannelCapacity: 1024,
			BatchSize:       32,
			LoadTimeout:     30 * time.Second,
			UpdateTick:      50 * time.Millisecond,
		},
		Pathfind: PathfindConfig{
			MaxRetries:  8,
			WorkerCount: 2,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Server: ServerConfig{
			HTTPPort: 8090,
			Metrics:  true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-world",
		},
	}
}

// Workers возвращает число рабочих задач загрузчика
func (l *LoaderConfig) Workers() int {
	if l.WorkerCount > 0 {
		return l.WorkerCount
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return 4
}

// GetHTTPPort возвращает порт отладочного API: config -> env -> default
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "WORLD_HTTP_PORT", 8090)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.World.ChunkMinX > c.World.ChunkMaxX || c.World.ChunkMinY > c.World.ChunkMaxY {
		return fmt.Errorf("некорректные границы мира: (%d,%d)..(%d,%d)",
			c.World.ChunkMinX, c.World.ChunkMinY, c.World.ChunkMaxX, c.World.ChunkMaxY)
	}
	if c.World.SlabMin > c.World.SlabMax {
		return fmt.Errorf("некорректный диапазон слэбов: %d..%d", c.World.SlabMin, c.World.SlabMax)
	}
	switch c.World.Source {
	case "memory", "perlin":
	default:
		return fmt.Errorf("неизвестный источник рельефа %q", c.World.Source)
	}
	if c.Loader.RequestChannels <= 0 {
		return fmt.Errorf("request_channels должен быть > 0")
	}
	if c.Pathfind.MaxRetries <= 0 {
		return fmt.Errorf("max_retries должен быть > 0")
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV WORLD_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("WORLD_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
