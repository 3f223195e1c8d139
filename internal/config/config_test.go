package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunkstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv("CHUNKSTORE_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate(), "Значения по умолчанию корректны")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  seed: 42
  view_radius: 2
mesher:
  workers: 3
ingest:
  compression: zlib
  nats:
    url: nats://localhost:4222
    subject: chunks.east
debug:
  port: 9100
tracing:
  enabled: true
  endpoint: collector:4318
logging:
  components:
    mesher: DEBUG
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, 2, cfg.World.ViewRadius)
	assert.Equal(t, 50, cfg.World.TickMillis, "Не заданные поля сохраняют значения по умолчанию")
	assert.Equal(t, 3, cfg.Mesher.Workers)
	assert.Equal(t, 64, cfg.Mesher.MaxInFlight)
	assert.Equal(t, "zlib", cfg.Ingest.Compression)
	assert.Equal(t, "nats://localhost:4222", cfg.Ingest.NATS.URL)
	assert.Equal(t, "chunks.east", cfg.Ingest.NATS.Subject)
	assert.Equal(t, 9100, cfg.Debug.GetPort())
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "chunkstore", cfg.Tracing.ServiceName)
	assert.Equal(t, map[string]string{"mesher": "DEBUG"}, cfg.Logging.Components)
	assert.Equal(t, "INFO", cfg.Logging.ConsoleLevel)
	assert.Equal(t, 1<<20, cfg.Ingest.MaxPayload)
}

func TestLoad_FromEnv(t *testing.T) {
	path := writeConfig(t, "world:\n  seed: 7\n")
	t.Setenv("CHUNKSTORE_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.World.Seed)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "Отсутствующий файл")

	_, err = Load(writeConfig(t, "world: [1, 2"))
	assert.Error(t, err, "Некорректный YAML")

	_, err = Load(writeConfig(t, "ingest:\n  compression: lz4\n"))
	assert.Error(t, err, "Неизвестное сжатие")

	_, err = Load(writeConfig(t, "ingest:\n  queue_size: 0\n"))
	assert.Error(t, err, "Пустая очередь")

	_, err = Load(writeConfig(t, "ingest:\n  max_payload: -1\n"))
	assert.Error(t, err, "Отрицательный предел распаковки")
}

func TestDebugConfig_GetPort(t *testing.T) {
	var d DebugConfig

	t.Setenv("CHUNKSTORE_DEBUG_PORT", "")
	assert.Equal(t, 8089, d.GetPort(), "Значение по умолчанию")

	t.Setenv("CHUNKSTORE_DEBUG_PORT", "9999")
	assert.Equal(t, 9999, d.GetPort(), "Порт из окружения")

	t.Setenv("CHUNKSTORE_DEBUG_PORT", "abc")
	assert.Equal(t, 8089, d.GetPort(), "Некорректное значение окружения игнорируется")

	d.Port = 7000
	assert.Equal(t, 7000, d.GetPort(), "Порт из конфига важнее окружения")
}
