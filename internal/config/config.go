package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type RedisConfig struct {
	Addr       string `toml:"addr"`
	JobQueue   string `toml:"job_queue"`
	ResultList string `toml:"result_list"`
}

type VectorConfig struct {
	Path string `toml:"path"`
}

type ExpansionConfig struct {
	MaxDepth           int     `toml:"max_depth"`
	MaxChildren        int     `toml:"max_children"`
	MinContentChars    int     `toml:"min_content_chars"`
	MinDocumentChars   int     `toml:"min_document_chars"`
	OracleTimeoutSecs  int     `toml:"oracle_timeout_secs"`
	SiblingParallelism int     `toml:"sibling_parallelism"`
	BaseConfidence     float64 `toml:"base_confidence"`
}

func (c ExpansionConfig) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSecs) * time.Second
}

type ResolverConfig struct {
	GapTopN int `toml:"gap_top_n"`
}

type RetrievalConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

type WorkerConfig struct {
	PoolSize       int `toml:"pool_size"`
	JobTimeoutSecs int `toml:"job_timeout_secs"`
}

func (c WorkerConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSecs) * time.Second
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Graph     GraphConfig     `toml:"graph"`
	Redis     RedisConfig     `toml:"redis"`
	Vector    VectorConfig    `toml:"vector"`
	Expansion ExpansionConfig `toml:"expansion"`
	Resolver  ResolverConfig  `toml:"resolver"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Worker    WorkerConfig    `toml:"worker"`
	Server    ServerConfig    `toml:"server"`
}

// Load reads a TOML config file, fills defaults for zero-valued fields, and
// applies environment overrides for deployment-specific values (connection
// strings, credentials).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// Default returns a config with all defaults and env overrides applied,
// for running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.Graph.URI == "" {
		c.Graph.URI = "bolt://localhost:7687"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.JobQueue == "" {
		c.Redis.JobQueue = "lattice:jobs"
	}
	if c.Redis.ResultList == "" {
		c.Redis.ResultList = "lattice:results"
	}
	if c.Vector.Path == "" {
		c.Vector.Path = "./data/vectors"
	}
	if c.Expansion.MaxDepth == 0 {
		c.Expansion.MaxDepth = 3
	}
	if c.Expansion.MaxChildren == 0 {
		c.Expansion.MaxChildren = 3
	}
	if c.Expansion.MinContentChars == 0 {
		c.Expansion.MinContentChars = 800
	}
	if c.Expansion.MinDocumentChars == 0 {
		c.Expansion.MinDocumentChars = 200
	}
	if c.Expansion.OracleTimeoutSecs == 0 {
		c.Expansion.OracleTimeoutSecs = 60
	}
	if c.Expansion.SiblingParallelism == 0 {
		c.Expansion.SiblingParallelism = 3
	}
	if c.Expansion.BaseConfidence == 0 {
		c.Expansion.BaseConfidence = 0.5
	}
	if c.Resolver.GapTopN == 0 {
		c.Resolver.GapTopN = 5
	}
	if c.Retrieval.DefaultLimit == 0 {
		c.Retrieval.DefaultLimit = 10
	}
	if c.Worker.PoolSize == 0 {
		c.Worker.PoolSize = 4
	}
	if c.Worker.JobTimeoutSecs == 0 {
		c.Worker.JobTimeoutSecs = 600
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		c.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("GRAPH_URI"); v != "" {
		c.Graph.URI = v
	}
	if v := os.Getenv("GRAPH_USER"); v != "" {
		c.Graph.User = v
	}
	if v := os.Getenv("GRAPH_PASSWORD"); v != "" {
		c.Graph.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("VECTOR_PATH"); v != "" {
		c.Vector.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}
