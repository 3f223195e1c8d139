package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации хранилища
type Config struct {
	World   WorldConfig   `yaml:"world"`
	Mesher  MesherConfig  `yaml:"mesher"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Debug   DebugConfig   `yaml:"debug"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

type WorldConfig struct {
	Seed         int64  `yaml:"seed"`
	ViewRadius   int    `yaml:"view_radius"`
	RegistryFile string `yaml:"registry_file"`
	TickMillis   int    `yaml:"tick_millis"`
}

type MesherConfig struct {
	Workers     int `yaml:"workers"`
	MaxInFlight int `yaml:"max_in_flight"`
}

type IngestConfig struct {
	Compression  string     `yaml:"compression"`
	QueueSize    int        `yaml:"queue_size"`
	DrainPerTick int        `yaml:"drain_per_tick"`
	MaxPayload   int        `yaml:"max_payload"` // байт после распаковки
	NATS         NATSConfig `yaml:"nats"`
}

// NATSConfig - необязательный источник колонок; пустой URL отключает его
type NATSConfig struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	QueueGroup string `yaml:"queue_group"`
}

type DebugConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	// Пороги консоли отдельных компонентов: world, ingest, mesher, debugapi
	Components   map[string]string `yaml:"components"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// GetPort возвращает порт отладочного API с поддержкой fallback значений
func (d *DebugConfig) GetPort() int {
	return getPortWithEnvFallback(d.Port, "CHUNKSTORE_DEBUG_PORT", 8089)
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

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:       1,
			ViewRadius: 4,
			TickMillis: 50,
		},
		Mesher: MesherConfig{
			Workers:     0, // по числу CPU
			MaxInFlight: 64,
		},
		Ingest: IngestConfig{
			Compression:  "zstd",
			QueueSize:    256,
			DrainPerTick: 32,
			MaxPayload:   1 << 20,
		},
		Debug: DebugConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
		Tracing: TracingConfig{
			Insecure:    true,
			ServiceName: "chunkstore",
		},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся ENV CHUNKSTORE_CONFIG; если и он пуст - возвращается Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CHUNKSTORE_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя исправить молча
func (c *Config) Validate() error {
	if c.World.ViewRadius < 0 {
		return fmt.Errorf("world.view_radius must not be negative, got %d", c.World.ViewRadius)
	}
	if c.World.TickMillis <= 0 {
		return fmt.Errorf("world.tick_millis must be positive, got %d", c.World.TickMillis)
	}
	if c.Mesher.Workers < 0 {
		return fmt.Errorf("mesher.workers must not be negative, got %d", c.Mesher.Workers)
	}
	if c.Mesher.MaxInFlight < 0 {
		return fmt.Errorf("mesher.max_in_flight must not be negative, got %d", c.Mesher.MaxInFlight)
	}
	if c.Ingest.QueueSize <= 0 {
		return fmt.Errorf("ingest.queue_size must be positive, got %d", c.Ingest.QueueSize)
	}
	if c.Ingest.MaxPayload < 0 {
		return fmt.Errorf("ingest.max_payload must not be negative, got %d", c.Ingest.MaxPayload)
	}
	switch c.Ingest.Compression {
	case "", "none", "zlib", "zstd":
	default:
		return fmt.Errorf("ingest.compression: unsupported value %q", c.Ingest.Compression)
	}
	return nil
}
