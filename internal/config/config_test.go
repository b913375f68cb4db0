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
	path := filepath.Join(t.TempDir(), "dynamo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DYNAMO_TEST_REDIS", "redis.internal:6380")
	path := writeConfig(t, `
log:
  level: debug
store:
  driver: redis
  redis:
    addr: ${DYNAMO_TEST_REDIS}
    db: 2
run:
  short_circuit: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis.internal:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "dynamo", cfg.Store.Redis.Prefix, "unset keys keep their defaults")
	assert.True(t, cfg.Run.ShortCircuit)
	assert.Equal(t, 64, cfg.Run.MaxCallDepth)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "store:\n  driver: sqlite\n"},
		{"unknown level", "log:\n  level: loud\n"},
		{"redis without addr", "store:\n  driver: redis\n  redis:\n    addr: \"\"\n"},
		{"watch without dir", "definitions:\n  dir: \"\"\n  watch: true\n"},
		{"negative depth", "run:\n  max_call_depth: -1\n"},
		{"malformed", "log: [\n"},
		{"short key", "store:\n  encryption_key: c2hvcnQ=\n"},
		{"fallback without key", "store:\n  fallback_keys: [" + testKey + "]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RedisIgnoredForOtherDrivers(t *testing.T) {
	cfg, err := Load(writeConfig(t, "store:\n  driver: memory\n  redis:\n    addr: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// testKey is 32 zero bytes.
const testKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

func TestStoreConfig_Keys(t *testing.T) {
	cfg, err := Load(writeConfig(t, "store:\n  encryption_key: "+testKey+"\n  fallback_keys: ["+testKey+"]\n"))
	require.NoError(t, err)

	active, fallbacks, err := cfg.Store.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Len(t, fallbacks, 1)

	active, fallbacks, err = Default().Store.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallbacks)
}
