package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

const (
	defaultAIBaseURL      = "https://aiproxy.sanand.workers.dev/openai/v1"
	defaultEmbedModel     = "text-embedding-3-small"
	defaultChatModel      = "gpt-4o-mini"
	defaultContentFile    = "embeddings.json"
	defaultForumFile      = "discourse_posts_embeddings.json"
	defaultForumBaseURL   = "https://discourse.onlinedegree.iitm.ac.in"
	defaultDocsURL        = "https://tds.s-anand.net/#/docker"
	defaultDocsHost       = "s-anand.net"
	defaultDocsKeyword    = "docker"
	defaultAPIKeyEnv      = "PROXY_TOKEN"
	defaultTimeoutSeconds = 30
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Corpus        CorpusConfig     `json:"corpus"`
	AI            AIConfig         `json:"ai"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	Links         LinkConfig       `json:"links"`
	EmbedCache    EmbedCacheConfig `json:"embed_cache"`
	RateLimit     RateLimitConfig  `json:"rate_limit"`
	Auth          AuthConfig       `json:"auth"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	StatsCron     string           `json:"stats_cron"`
}

type CorpusConfig struct {
	// Source is "file" (JSON files in a file store) or "postgres".
	Source       string          `json:"source"`
	ContentFile  string          `json:"content_file"`
	ForumFile    string          `json:"forum_file"`
	FileStore    FileStoreConfig `json:"file_store"`
	Database     DatabaseConfig  `json:"database"`
	ContentTable string          `json:"content_table"`
	ForumTable   string          `json:"forum_table"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIConfig struct {
	Provider   string        `json:"provider"`
	APIKey     string        `json:"api_key"`
	APIKeyEnv  string        `json:"api_key_env"`
	BaseURL    string        `json:"base_url"`
	EmbedModel string        `json:"embed_model"`
	ChatModel  string        `json:"chat_model"`
	Timeout    int           `json:"timeout"`
	Breaker    BreakerConfig `json:"breaker"`
	RateLimit  float64       `json:"rate_limit"`
	Burst      int           `json:"burst"`
}

type BreakerConfig struct {
	Enabled      bool    `json:"enabled"`
	MaxRequests  uint32  `json:"max_requests"`
	Interval     int     `json:"interval"`
	Timeout      int     `json:"timeout"`
	MinRequests  uint32  `json:"min_requests"`
	FailureRatio float64 `json:"failure_ratio"`
}

type RetrievalConfig struct {
	PerCorpusK      int `json:"per_corpus_k"`
	FinalK          int `json:"final_k"`
	MaxContextChars int `json:"max_context_chars"`
}

type LinkConfig struct {
	ForumBaseURL string            `json:"forum_base_url"`
	Overrides    map[string]string `json:"overrides"`
	DocsHost     string            `json:"docs_host"`
	DocsKeyword  string            `json:"docs_keyword"`
	DocsURL      string            `json:"docs_url"`
	MaxLinks     int               `json:"max_links"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type RateLimitConfig struct {
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

func DefaultOverrides() map[string]string {
	return map[string]string{
		"https://discourse.onlinedegree.iitm.ac.in/t/ga2-deployment-tools-discussion-thread-tds-jan-2025/161120": defaultDocsURL,
	}
}

// Load reads a JSON config, or YAML when the file extension says so.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg Config
	if err := decode(path, raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// yaml goes through json so the json tags stay the single source of field names
		var tree map[string]interface{}
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return err
		}
		data, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(raw, cfg)
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}

	if cfg.Corpus.Source == "" {
		cfg.Corpus.Source = "file"
	}
	switch cfg.Corpus.Source {
	case "file":
		if cfg.Corpus.ContentFile == "" {
			cfg.Corpus.ContentFile = defaultContentFile
		}
		if cfg.Corpus.ForumFile == "" {
			cfg.Corpus.ForumFile = defaultForumFile
		}
		if cfg.Corpus.FileStore.Type == "" {
			cfg.Corpus.FileStore.Type = "local"
		}
		if cfg.Corpus.FileStore.Type == "local" && cfg.Corpus.FileStore.Data == nil {
			cfg.Corpus.FileStore.Data = map[string]interface{}{"dir": "."}
		}
	case "postgres":
		if cfg.Corpus.Database.DSN == "" && cfg.Corpus.Database.Host == "" {
			return fmt.Errorf("corpus.database dsn or host is required for postgres source")
		}
		if cfg.Corpus.ContentTable == "" {
			cfg.Corpus.ContentTable = "content_chunks"
		}
		if cfg.Corpus.ForumTable == "" {
			cfg.Corpus.ForumTable = "forum_posts"
		}
	default:
		return fmt.Errorf("corpus.source must be file or postgres")
	}

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = defaultAPIKeyEnv
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv(cfg.AI.APIKeyEnv)
	}
	if cfg.AI.BaseURL == "" && cfg.AI.Provider == "openai" {
		cfg.AI.BaseURL = defaultAIBaseURL
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = defaultEmbedModel
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = defaultChatModel
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = defaultTimeoutSeconds
	}

	if cfg.Retrieval.PerCorpusK <= 0 {
		cfg.Retrieval.PerCorpusK = 3
	}
	if cfg.Retrieval.FinalK <= 0 {
		cfg.Retrieval.FinalK = 5
	}

	if cfg.Links.ForumBaseURL == "" {
		cfg.Links.ForumBaseURL = defaultForumBaseURL
	}
	if cfg.Links.Overrides == nil {
		cfg.Links.Overrides = DefaultOverrides()
	}
	if cfg.Links.DocsHost == "" {
		cfg.Links.DocsHost = defaultDocsHost
	}
	if cfg.Links.DocsKeyword == "" {
		cfg.Links.DocsKeyword = defaultDocsKeyword
	}
	if cfg.Links.DocsURL == "" {
		cfg.Links.DocsURL = defaultDocsURL
	}
	if cfg.Links.MaxLinks <= 0 || cfg.Links.MaxLinks > 5 {
		cfg.Links.MaxLinks = 5
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	return cfg
}
