package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig points at an upstream HTTP data API.
type SourceConfig struct {
	BaseURL     string `yaml:"base_url"`
	TokenEnv    string `yaml:"token_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// CacheConfig configures the world cache.
type CacheConfig struct {
	SnapshotDir         string `yaml:"snapshot_dir"`
	WriteBack           bool   `yaml:"write_back"`
	FetchTimeoutSecs    int    `yaml:"fetch_timeout_secs"`
	RefreshIntervalMins int    `yaml:"refresh_interval_mins"`
}

// MarketConfig configures the listing read-through cache. A RedisAddr
// switches it from in-process LRU to Redis.
type MarketConfig struct {
	TTLMins     int    `yaml:"ttl_mins"`
	LRUSize     int    `yaml:"lru_size"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// KnowledgeConfig selects where curated documents live: the local SQLite
// store ("sqlite") or the backend persistence API ("http").
type KnowledgeConfig struct {
	Backend   string `yaml:"backend"`
	DataDir   string `yaml:"data_dir"`
	Dimension int    `yaml:"dimension"`
	BaseURL   string `yaml:"base_url"`
	TokenEnv  string `yaml:"token_env"`
}

// EmbedderConfig configures the OpenAI-compatible embedding endpoint. An
// empty BaseURL disables vector retrieval.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig tunes the retrieval engine.
type RetrievalConfig struct {
	DefaultK             int `yaml:"default_k"`
	EmbedTimeoutSecs     int `yaml:"embed_timeout_secs"`
	SearchTimeoutSecs    int `yaml:"search_timeout_secs"`
	ConversationCapacity int `yaml:"conversation_capacity"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	LogMode   string          `yaml:"log_mode"`
	Primary   SourceConfig    `yaml:"primary"`
	Fallback  SourceConfig    `yaml:"fallback"`
	Cache     CacheConfig     `yaml:"cache"`
	Market    MarketConfig    `yaml:"market"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads the config at path. A missing file yields defaults. VERSE_*
// environment variables override file values.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.LogMode == "" {
		cfg.LogMode = "dev"
	}
	for _, s := range []*SourceConfig{&cfg.Primary, &cfg.Fallback} {
		if s.TimeoutSecs == 0 {
			s.TimeoutSecs = 20
		}
		if s.MaxRetries == 0 {
			s.MaxRetries = 2
		}
	}
	if cfg.Primary.TokenEnv == "" {
		cfg.Primary.TokenEnv = "VERSE_BACKEND_TOKEN"
	}
	if cfg.Fallback.TokenEnv == "" {
		cfg.Fallback.TokenEnv = "VERSE_PROVIDER_TOKEN"
	}
	if cfg.Cache.SnapshotDir == "" {
		cfg.Cache.SnapshotDir = "./data/snapshot"
	}
	if cfg.Cache.FetchTimeoutSecs == 0 {
		cfg.Cache.FetchTimeoutSecs = 20
	}
	if cfg.Cache.RefreshIntervalMins == 0 {
		cfg.Cache.RefreshIntervalMins = 60
	}
	if cfg.Market.TTLMins == 0 {
		cfg.Market.TTLMins = 60
	}
	if cfg.Market.LRUSize == 0 {
		cfg.Market.LRUSize = 512
	}
	if cfg.Market.RedisPrefix == "" {
		cfg.Market.RedisPrefix = "verse:listings:"
	}
	if cfg.Knowledge.Backend == "" {
		cfg.Knowledge.Backend = "sqlite"
	}
	if cfg.Knowledge.DataDir == "" {
		cfg.Knowledge.DataDir = "./data"
	}
	if cfg.Knowledge.Dimension == 0 {
		cfg.Knowledge.Dimension = 1536
	}
	if cfg.Knowledge.TokenEnv == "" {
		cfg.Knowledge.TokenEnv = "VERSE_BACKEND_TOKEN"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 15
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 5
	}
	if cfg.Retrieval.EmbedTimeoutSecs == 0 {
		cfg.Retrieval.EmbedTimeoutSecs = 10
	}
	if cfg.Retrieval.SearchTimeoutSecs == 0 {
		cfg.Retrieval.SearchTimeoutSecs = 10
	}
	if cfg.Retrieval.ConversationCapacity == 0 {
		cfg.Retrieval.ConversationCapacity = 500
	}
}

func applyEnv(cfg *AppConfig) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
			*dst = v
		}
	}
	str("VERSE_LOG_MODE", &cfg.LogMode)
	str("VERSE_PRIMARY_URL", &cfg.Primary.BaseURL)
	str("VERSE_FALLBACK_URL", &cfg.Fallback.BaseURL)
	str("VERSE_SNAPSHOT_DIR", &cfg.Cache.SnapshotDir)
	num("VERSE_REFRESH_INTERVAL_MINS", &cfg.Cache.RefreshIntervalMins)
	str("VERSE_REDIS_ADDR", &cfg.Market.RedisAddr)
	str("VERSE_KNOWLEDGE_BACKEND", &cfg.Knowledge.Backend)
	str("VERSE_KNOWLEDGE_URL", &cfg.Knowledge.BaseURL)
	str("VERSE_DATA_DIR", &cfg.Knowledge.DataDir)
	num("VERSE_EMBED_DIMENSION", &cfg.Knowledge.Dimension)
	str("VERSE_EMBED_URL", &cfg.Embedder.BaseURL)
	str("VERSE_EMBED_MODEL", &cfg.Embedder.Model)
}

// Secret reads the environment variable a *_env field names.
func Secret(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}

// Secs converts a seconds field to a duration.
func Secs(n int) time.Duration { return time.Duration(n) * time.Second }

// Mins converts a minutes field to a duration.
func Mins(n int) time.Duration { return time.Duration(n) * time.Minute }
