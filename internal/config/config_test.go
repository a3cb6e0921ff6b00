package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Engine: EngineConfig{URL: "http://localhost:9200"},
		Collections: []CollectionConfig{{
			Name: "Bond",
			Fields: []FieldConfig{
				{Name: "name", Type: "text", Keyword: true},
				{Name: "price", Type: "number"},
			},
		}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Engine.Driver != DriverElastic {
		t.Errorf("engine.driver = %q, want %q", cfg.Engine.Driver, DriverElastic)
	}
	if cfg.Engine.Shards != 1 {
		t.Errorf("engine.shards = %d, want 1", cfg.Engine.Shards)
	}
	if cfg.Sync.Workers != 8 || cfg.Sync.MaxAttempts != 5 {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Sync.InitialInterval() != 100*time.Millisecond || cfg.Sync.MaxInterval() != 5*time.Second {
		t.Errorf("backoff = %v..%v", cfg.Sync.InitialInterval(), cfg.Sync.MaxInterval())
	}
	if cfg.Redis.KeyPrefix != "syncdex:" {
		t.Errorf("redis.key_prefix = %q", cfg.Redis.KeyPrefix)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"memory driver needs no url", func(c *Config) { c.Engine.Driver = DriverMemory; c.Engine.URL = "" }, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"elastic without url", func(c *Config) { c.Engine.URL = "" }, "engine.url"},
		{"unknown driver", func(c *Config) { c.Engine.Driver = "solr" }, "engine.driver"},
		{"negative replicas", func(c *Config) { c.Engine.Replicas = -1 }, "engine.replicas"},
		{"max below initial", func(c *Config) { c.Sync.MaxIntervalMs = 10 }, "sync.max_interval_ms"},
		{"shrinking multiplier", func(c *Config) { c.Sync.Multiplier = 0.5 }, "sync.multiplier"},
		{"jitter above one", func(c *Config) { c.Sync.RandomizationFactor = 2 }, "sync.randomization_factor"},
		{"mongo without database", func(c *Config) {
			c.Mongo.URI = "mongodb://localhost"
			c.Mongo.Collections = []CollectionBinding{{Name: "Bond"}}
		}, "mongo.database"},
		{"mongo without collections", func(c *Config) {
			c.Mongo.URI = "mongodb://localhost"
			c.Mongo.Database = "app"
		}, "mongo.collections"},
		{"unnamed binding", func(c *Config) { c.Mongo.Collections = []CollectionBinding{{Source: "bonds"}} }, "mongo.collections[0].name"},
		{"undeclared binding", func(c *Config) { c.Mongo.Collections = []CollectionBinding{{Name: "Coupon"}} }, "not declared"},
		{"unnamed collection", func(c *Config) { c.Collections[0].Name = "" }, "collections[0].name"},
		{"duplicate collection", func(c *Config) { c.Collections = append(c.Collections, c.Collections[0]) }, "duplicate collection"},
		{"bad field type", func(c *Config) { c.Collections[0].Fields[1].Type = "vector" }, "invalid field type"},
		{"keyword on number", func(c *Config) { c.Collections[0].Fields[1].Keyword = true }, "require type text"},
		{"no fields", func(c *Config) { c.Collections[0].Fields = nil }, "no fields"},
		{"include all without fields", func(c *Config) {
			c.Collections[0].Fields = nil
			c.Collections[0].IncludeAll = true
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("SYNCDEX_TEST_ENGINE_URL", "http://es:9200")
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: 9000
engine:
  url: ${SYNCDEX_TEST_ENGINE_URL}
  password: ${SYNCDEX_TEST_UNSET:-changeme}
sync:
  workers: 2
collections:
  - name: Bond
    fields:
      - {name: name, type: text, keyword: true}
      - {name: type, type: keyword}
      - {name: price, type: number}
  - name: Coupon
    index: coupons_v2
    include_all: true
mongo:
  uri: mongodb://localhost:27017
  database: app
  collections:
    - name: Bond
    - name: Coupon
      source: coupon_v2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.URL != "http://es:9200" {
		t.Errorf("engine.url = %q", cfg.Engine.URL)
	}
	if cfg.Engine.Password != "changeme" {
		t.Errorf("engine.password = %q", cfg.Engine.Password)
	}
	if cfg.Sync.Workers != 2 || cfg.Sync.MaxAttempts != 5 {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if len(cfg.Mongo.Collections) != 2 || cfg.Mongo.Collections[1].Source != "coupon_v2" {
		t.Errorf("mongo.collections = %+v", cfg.Mongo.Collections)
	}

	ms, err := cfg.Mappings()
	if err != nil {
		t.Fatalf("mappings: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("mappings = %d, want 2", len(ms))
	}
	if ms[0].IndexName() != "bonds" || ms[1].IndexName() != "coupons_v2" {
		t.Errorf("indexes = %q, %q", ms[0].IndexName(), ms[1].IndexName())
	}
	if f, ok := ms[0].Field("name"); !ok || !f.HasKeyword() {
		t.Error("name should carry a keyword sub-field")
	}
	if !ms[1].IncludesAll() {
		t.Error("coupon mapping should include all fields")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
