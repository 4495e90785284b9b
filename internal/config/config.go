package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	RAG      RAGConfig      `yaml:"rag"`
	Context  ContextConfig  `yaml:"context"`
	Queue    QueueConfig    `yaml:"queue"`
}

type DatabaseConfig struct {
	URL    string `yaml:"url"`
	Key    string `yaml:"key"`
	Driver string `yaml:"driver"` // "pgdriver" or "postgres"
	Debug  bool   `yaml:"debug"`
}

// ProviderConfig selects and configures the AI backend. Backend is the only
// value that changes when swapping model services.
type ProviderConfig struct {
	Backend        string `yaml:"backend"` // "openai" or "ollama"
	BaseURL        string `yaml:"base_url"`
	Key            string `yaml:"key"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	VectorSize     int    `yaml:"vector_size"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	ExcerptLength int    `yaml:"excerpt_length"`
	SearchLimit   int    `yaml:"search_limit"`
	VectorStore   string `yaml:"vector_store"` // "postgres" or "memory"
	StorePath     string `yaml:"store_path"`   // memory store only, "" keeps it in RAM
}

type ContextConfig struct {
	HistoryWindow int `yaml:"history_window"`
	TimeoutMS     int `yaml:"timeout_ms"`
}

type QueueConfig struct {
	Workers int `yaml:"workers"`
	Buffer  int `yaml:"buffer"`
}

const (
	defaultVectorSize      = 768
	defaultProviderTimeout = 60 // seconds
	defaultChunkSize       = 4000
	defaultChunkOverlap    = 200
	defaultExcerptLength   = 500
	defaultSearchLimit     = 3
	defaultHistoryWindow   = 10
	defaultContextTimeout  = 2000 // milliseconds
	defaultWorkers         = 4
	defaultBuffer          = 64
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}
	if c.Provider.VectorSize == 0 {
		c.Provider.VectorSize = defaultVectorSize
	}
	if c.Provider.TimeoutSec == 0 {
		c.Provider.TimeoutSec = defaultProviderTimeout
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.ExcerptLength == 0 {
		c.RAG.ExcerptLength = defaultExcerptLength
	}
	if c.RAG.SearchLimit == 0 {
		c.RAG.SearchLimit = defaultSearchLimit
	}
	if c.RAG.VectorStore == "" {
		c.RAG.VectorStore = "postgres"
	}
	if c.Context.HistoryWindow == 0 {
		c.Context.HistoryWindow = defaultHistoryWindow
	}
	if c.Context.TimeoutMS == 0 {
		c.Context.TimeoutMS = defaultContextTimeout
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = defaultWorkers
	}
	if c.Queue.Buffer == 0 {
		c.Queue.Buffer = defaultBuffer
	}
}

func (c *Config) Validate() error {
	switch c.Provider.Backend {
	case "openai", "ollama":
	case "":
		return fmt.Errorf("provider.backend is required")
	default:
		return fmt.Errorf("unknown provider backend: %s", c.Provider.Backend)
	}
	switch c.RAG.VectorStore {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown vector store: %s", c.RAG.VectorStore)
	}
	return nil
}

func (c *ContextConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c *ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
