package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
provider:
  backend: ollama
  base_url: http://localhost:11434
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.VectorSize != 768 {
		t.Errorf("vector size default = %d", cfg.Provider.VectorSize)
	}
	if cfg.Context.HistoryWindow != 10 {
		t.Errorf("history window default = %d", cfg.Context.HistoryWindow)
	}
	if cfg.Context.Timeout() != 2*time.Second {
		t.Errorf("context timeout default = %v", cfg.Context.Timeout())
	}
	if cfg.RAG.VectorStore != "postgres" {
		t.Errorf("vector store default = %s", cfg.RAG.VectorStore)
	}
	if cfg.RAG.ExcerptLength != 500 {
		t.Errorf("excerpt length default = %d", cfg.RAG.ExcerptLength)
	}
	if cfg.Queue.Workers != 4 {
		t.Errorf("workers default = %d", cfg.Queue.Workers)
	}
}

func TestLoadConfigUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
provider:
  backend: acme
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadConfigMissingBackend(t *testing.T) {
	path := writeConfig(t, `
rag:
  chunk_size: 1000
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing backend")
	}
}

func TestLoadConfigUnknownVectorStore(t *testing.T) {
	path := writeConfig(t, `
provider:
  backend: openai
rag:
  vector_store: redis
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown vector store")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
