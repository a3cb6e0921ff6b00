package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/syncdex/internal/domain/mapping"
)

// Config holds the syncdex service configuration.
type Config struct {
	HTTP        HTTPConfig         `yaml:"http"`
	Auth        AuthConfig         `yaml:"auth"`
	Engine      EngineConfig       `yaml:"engine"`
	Sync        SyncConfig         `yaml:"sync"`
	Collections []CollectionConfig `yaml:"collections"`
	Redis       RedisConfig        `yaml:"redis"`
	Mongo       MongoConfig        `yaml:"mongo"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// CollectionConfig declares the index mapping of one store collection.
type CollectionConfig struct {
	Name       string        `yaml:"name"`
	Index      string        `yaml:"index"` // default: pluralized lowercase name
	IncludeAll bool          `yaml:"include_all"`
	Fields     []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one indexed field.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // text, keyword, number, date, boolean, geo_point
	Keyword  bool   `yaml:"keyword"`
	Exclude  bool   `yaml:"exclude"`
	Analyzer string `yaml:"analyzer"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Engine drivers.
const (
	DriverElastic = "elastic"
	DriverMemory  = "memory"
)

// EngineConfig holds search engine connection settings.
type EngineConfig struct {
	Driver           string `yaml:"driver"` // elastic, memory (default: elastic)
	URL              string `yaml:"url"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
	Shards           int    `yaml:"shards"`
	Replicas         int    `yaml:"replicas"`
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	Workers             int     `yaml:"workers"`
	MaxAttempts         int     `yaml:"max_attempts"`
	InitialIntervalMs   int     `yaml:"initial_interval_ms"`
	MaxIntervalMs       int     `yaml:"max_interval_ms"`
	Multiplier          float64 `yaml:"multiplier"`
	RandomizationFactor float64 `yaml:"randomization_factor"`
	BatchSize           int     `yaml:"batch_size"` // documents per bulk save during resync
}

// RedisConfig holds the dead-letter and checkpoint store settings.
// Empty addrs disables both.
type RedisConfig struct {
	Addrs         []string `yaml:"addrs"`
	Password      string   `yaml:"password"`
	KeyPrefix     string   `yaml:"key_prefix"`
	DeadLetterMax int64    `yaml:"dead_letter_max"`
}

// MongoConfig holds the change-stream source settings. Empty uri disables the watcher.
type MongoConfig struct {
	URI         string              `yaml:"uri"`
	Database    string              `yaml:"database"`
	Collections []CollectionBinding `yaml:"collections"`
}

// CollectionBinding maps a declared collection to its MongoDB collection.
type CollectionBinding struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"` // default: pluralized lowercase name
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.Driver == "" {
		c.Engine.Driver = DriverElastic
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 30
	}
	if c.Engine.ReadinessTimeout <= 0 {
		c.Engine.ReadinessTimeout = 10
	}
	if c.Engine.Shards <= 0 {
		c.Engine.Shards = 1
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = 8
	}
	if c.Sync.MaxAttempts <= 0 {
		c.Sync.MaxAttempts = 5
	}
	if c.Sync.InitialIntervalMs <= 0 {
		c.Sync.InitialIntervalMs = 100
	}
	if c.Sync.MaxIntervalMs <= 0 {
		c.Sync.MaxIntervalMs = 5000
	}
	if c.Sync.Multiplier <= 0 {
		c.Sync.Multiplier = 2
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 500
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "syncdex:"
	}
	if c.Redis.DeadLetterMax <= 0 {
		c.Redis.DeadLetterMax = 10000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Engine.Driver {
	case DriverElastic:
		if c.Engine.URL == "" {
			return fmt.Errorf("engine.url is required for driver %q", DriverElastic)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("engine.driver must be %q or %q, got %q", DriverElastic, DriverMemory, c.Engine.Driver)
	}
	if c.Engine.Replicas < 0 {
		return fmt.Errorf("engine.replicas must be >= 0, got %d", c.Engine.Replicas)
	}
	if c.Sync.MaxIntervalMs < c.Sync.InitialIntervalMs {
		return fmt.Errorf("sync.max_interval_ms (%d) must be >= sync.initial_interval_ms (%d)",
			c.Sync.MaxIntervalMs, c.Sync.InitialIntervalMs)
	}
	if c.Sync.Multiplier < 1 {
		return fmt.Errorf("sync.multiplier must be >= 1, got %g", c.Sync.Multiplier)
	}
	if c.Sync.RandomizationFactor < 0 || c.Sync.RandomizationFactor > 1 {
		return fmt.Errorf("sync.randomization_factor must be within [0, 1], got %g", c.Sync.RandomizationFactor)
	}
	if c.Mongo.URI != "" {
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database is required when mongo.uri is set")
		}
		if len(c.Mongo.Collections) == 0 {
			return fmt.Errorf("mongo.collections is required when mongo.uri is set")
		}
	}
	declared := make(map[string]bool, len(c.Collections))
	for i, cc := range c.Collections {
		if cc.Name == "" {
			return fmt.Errorf("collections[%d].name is required", i)
		}
		if declared[cc.Name] {
			return fmt.Errorf("collections[%d]: duplicate collection %q", i, cc.Name)
		}
		declared[cc.Name] = true
		if _, err := cc.Mapping(); err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
	}
	for i, b := range c.Mongo.Collections {
		if b.Name == "" {
			return fmt.Errorf("mongo.collections[%d].name is required", i)
		}
		if !declared[b.Name] {
			return fmt.Errorf("mongo.collections[%d]: collection %q is not declared under collections", i, b.Name)
		}
	}
	return nil
}

// Mapping builds the index mapping the collection declares.
func (cc CollectionConfig) Mapping() (mapping.Mapping, error) {
	fields := make([]mapping.Field, 0, len(cc.Fields))
	for _, fc := range cc.Fields {
		var opts []mapping.FieldOption
		if fc.Keyword {
			opts = append(opts, mapping.WithKeyword())
		}
		if fc.Exclude {
			opts = append(opts, mapping.Excluded())
		}
		if fc.Analyzer != "" {
			opts = append(opts, mapping.WithAnalyzer(fc.Analyzer))
		}
		f, err := mapping.NewField(fc.Name, mapping.Type(fc.Type), opts...)
		if err != nil {
			return mapping.Mapping{}, err
		}
		fields = append(fields, f)
	}

	var opts []mapping.Option
	if cc.Index != "" {
		opts = append(opts, mapping.WithIndexName(cc.Index))
	}
	if cc.IncludeAll {
		opts = append(opts, mapping.IncludeAll())
	}
	return mapping.New(cc.Name, fields, opts...)
}

// Mappings builds the mapping of every declared collection.
func (c *Config) Mappings() ([]mapping.Mapping, error) {
	out := make([]mapping.Mapping, 0, len(c.Collections))
	for _, cc := range c.Collections {
		m, err := cc.Mapping()
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", cc.Name, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// InitialInterval returns the first retry delay.
func (s SyncConfig) InitialInterval() time.Duration {
	return time.Duration(s.InitialIntervalMs) * time.Millisecond
}

// MaxInterval returns the retry delay cap.
func (s SyncConfig) MaxInterval() time.Duration {
	return time.Duration(s.MaxIntervalMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
