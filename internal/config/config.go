// Package config loads the dynamo configuration file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config is the application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log"`
	Definitions DefinitionsConfig `yaml:"definitions"`
	Store       StoreConfig       `yaml:"store"`
	HTTP        HTTPConfig        `yaml:"http"`
	Run         RunConfig         `yaml:"run"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Log),
		validation.Field(&c.Definitions),
		validation.Field(&c.Store),
		validation.Field(&c.HTTP),
		validation.Field(&c.Run),
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Validate validates the log configuration.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "warning", "error")),
	)
}

// DefinitionsConfig locates custom node documents.
type DefinitionsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the definitions configuration.
func (c DefinitionsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.When(c.Watch, validation.Required.Error("is required to watch definitions"))),
	)
}

// StoreConfig selects where custom node documents are kept.
//
// EncryptionKey and FallbackKeys are base64 encoded 32 byte AES keys. When
// EncryptionKey is set every document is encrypted at rest.
type StoreConfig struct {
	Driver        string      `yaml:"driver"`
	Redis         RedisConfig `yaml:"redis"`
	EncryptionKey string      `yaml:"encryption_key"`
	FallbackKeys  []string    `yaml:"fallback_keys"`
}

// Validate validates the store configuration.
func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverFile, DriverMemory, DriverRedis)),
		validation.Field(&c.Redis, validation.Skip.When(c.Driver != DriverRedis)),
		validation.Field(&c.EncryptionKey, validation.By(aesKey)),
		validation.Field(&c.FallbackKeys,
			validation.When(c.EncryptionKey == "" && len(c.FallbackKeys) > 0, validation.Empty.Error("need an encryption_key")),
			validation.Each(validation.By(aesKey))),
	)
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (c StoreConfig) Keys() (active []byte, fallbacks [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(c.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

func aesKey(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := decodeKey(s)
	return err
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("must be base64 encoded")
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// RedisConfig holds the redis store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Validate validates the redis configuration.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
	)
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Validate validates the HTTP configuration.
func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
	)
}

// RunConfig holds evaluator settings.
type RunConfig struct {
	ShortCircuit bool `yaml:"short_circuit"`
	MaxCallDepth int  `yaml:"max_call_depth"`
}

// Validate validates the run configuration.
func (c RunConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxCallDepth, validation.Min(0)),
	)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:         LogConfig{Level: "info"},
		Definitions: DefinitionsConfig{Dir: "definitions"},
		Store: StoreConfig{
			Driver: DriverFile,
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "dynamo"},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Run:  RunConfig{MaxCallDepth: 64},
	}
}

// Load reads filename over the defaults, expanding ${ENV} references first,
// and validates the result.
func Load(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads filename, or returns the defaults when filename is
// empty or does not exist.
func LoadOrDefault(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(filename)
}
