package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the scraped document corpus.
type CorpusConfig struct {
	Path    string `yaml:"path"`
	Lenient bool   `yaml:"lenient"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type         string `yaml:"type"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint (OpenAI, Groq).
type OpenAIConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// OllamaConfig holds configuration for a local Ollama server.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
	Ollama *OllamaConfig `yaml:"ollama,omitempty"`
}

// CompleterConfig selects and configures the completion provider.
type CompleterConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
	Ollama *OllamaConfig `yaml:"ollama,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	UseTLS     bool   `yaml:"use_tls"`
}

// SnapshotConfig selects where the built index is persisted.
type SnapshotConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// RetrievalConfig tunes retrieval and prompt construction.
type RetrievalConfig struct {
	TopK            int   `yaml:"top_k"`
	PreviewChars    int   `yaml:"preview_chars"`
	LexicalFallback *bool `yaml:"lexical_fallback,omitempty"`
}

// EvaluationConfig controls on-demand evaluation in interactive mode.
type EvaluationConfig struct {
	Auto bool `yaml:"auto"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus      CorpusConfig      `yaml:"corpus"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Completer   CompleterConfig   `yaml:"completer"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Evaluation  EvaluationConfig  `yaml:"evaluation"`
}

// UseLexicalFallback reports whether retrieval may fall back to token overlap.
func (c *AppConfig) UseLexicalFallback() bool {
	return c.Retrieval.LexicalFallback == nil || *c.Retrieval.LexicalFallback
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks invariants that defaults cannot repair.
func (c *AppConfig) Validate() error {
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunk_overlap must be >= 0 and < chunk_size (got %d, %d)", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize)
	}
	checks := []struct {
		field string
		value string
		known []string
	}{
		{"chunker.type", c.Chunker.Type, []string{"window", "sentence"}},
		{"embedder.type", c.Embedder.Type, []string{"tfidf", "openai", "ollama"}},
		{"completer.type", c.Completer.Type, []string{"groq", "openai", "ollama", "extractive"}},
		{"vector_store.type", c.VectorStore.Type, []string{"memory", "qdrant"}},
		{"snapshot.type", c.Snapshot.Type, []string{"sqlite", "json"}},
	}
	for _, ch := range checks {
		if !contains(ch.known, ch.value) {
			return fmt.Errorf("unknown %s: %q", ch.field, ch.value)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus:      CorpusConfig{Path: "data/scraped_data.json"},
		Chunker:     ChunkerConfig{Type: "window", ChunkSize: 512, ChunkOverlap: 20},
		Embedder:    EmbedderConfig{Type: "ollama"},
		Completer:   CompleterConfig{Type: "groq"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Snapshot:    SnapshotConfig{Type: "sqlite", Path: "data/vector_index.db"},
		Retrieval:   RetrievalConfig{TopK: 3, PreviewChars: 1000},
		Evaluation:  EvaluationConfig{Auto: true},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "data/scraped_data.json"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "window"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 512
		if cfg.Chunker.ChunkOverlap == 0 {
			cfg.Chunker.ChunkOverlap = 20
		}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Completer.Type == "" {
		cfg.Completer.Type = "groq"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Snapshot.Type == "" {
		cfg.Snapshot.Type = "sqlite"
	}
	if cfg.Snapshot.Path == "" {
		if cfg.Snapshot.Type == "json" {
			cfg.Snapshot.Path = "data/vector_index"
		} else {
			cfg.Snapshot.Path = "data/vector_index.db"
		}
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.PreviewChars <= 0 {
		cfg.Retrieval.PreviewChars = 1000
	}

	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		openAIDefaults(cfg.Embedder.OpenAI, "https://api.openai.com/v1", "OPENAI_API_KEY", "text-embedding-3-small")
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaConfig{}
		}
		ollamaDefaults(cfg.Embedder.Ollama, "bge-m3")
	}

	switch cfg.Completer.Type {
	case "groq":
		if cfg.Completer.OpenAI == nil {
			cfg.Completer.OpenAI = &OpenAIConfig{}
		}
		openAIDefaults(cfg.Completer.OpenAI, "https://api.groq.com/openai/v1", "GROQ_API_KEY", "llama-3.3-70b-versatile")
	case "openai":
		if cfg.Completer.OpenAI == nil {
			cfg.Completer.OpenAI = &OpenAIConfig{}
		}
		openAIDefaults(cfg.Completer.OpenAI, "https://api.openai.com/v1", "OPENAI_API_KEY", "gpt-4o-mini")
	case "ollama":
		if cfg.Completer.Ollama == nil {
			cfg.Completer.Ollama = &OllamaConfig{}
		}
		ollamaDefaults(cfg.Completer.Ollama, "llama3")
	}

	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.Host == "" {
			q.Host = "localhost"
		}
		if q.Port == 0 {
			q.Port = 6334
		}
		if q.Collection == "" {
			q.Collection = "ragqa"
		}
	}
}

func openAIDefaults(c *OpenAIConfig, baseURL, keyEnv, model string) {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = keyEnv
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
}

func ollamaDefaults(c *OllamaConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 120
	}
}
