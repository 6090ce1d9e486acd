// Package config loads memory-mcp's configuration in three tiers: hardcoded
// defaults, an optional project YAML file, then environment variables, the
// last tier always winning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete memory-mcp configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" json:"paths"`
	Chunk     ChunkConfig     `yaml:"chunk" json:"chunk"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Sessions  SessionsConfig  `yaml:"sessions" json:"sessions"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// PathsConfig configures where the workspace and database live.
type PathsConfig struct {
	Workspace string `yaml:"workspace" json:"workspace"`
	DBPath    string `yaml:"db_path" json:"db_path"`
}

// ChunkConfig configures the Chunker's sliding-window budget.
type ChunkConfig struct {
	Size int `yaml:"size" json:"size"` // tokens; 64-4096, default 512
}

// SearchConfig configures Search Engine defaults.
type SearchConfig struct {
	TokenMax int `yaml:"token_max" json:"token_max"` // 100-16384, default 4096
}

// SessionsConfig configures session-transcript scanning.
type SessionsConfig struct {
	Days int `yaml:"days" json:"days"` // >=0, default 30; 0 disables the window
	Max  int `yaml:"max" json:"max"`   // >=-1, default -1 (unbounded); 0 disables sessions
}

// EmbeddingConfig configures the Embedder.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" json:"provider"` // "ollama" (default) or "static"
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const (
	MinChunkSize = 64
	MaxChunkSize = 4096

	MinTokenMax = 100
	MaxTokenMax = 16384
)

// NewConfig returns the hardcoded defaults, resolved against the user's home
// directory and the Claude-style workspace ($HOME/.claude).
func NewConfig() *Config {
	home, _ := os.UserHomeDir()
	workspace := filepath.Join(home, ".claude")

	return &Config{
		Paths: PathsConfig{
			Workspace: workspace,
			DBPath:    filepath.Join(workspace, "memory.db"),
		},
		Chunk: ChunkConfig{Size: 512},
		Search: SearchConfig{
			TokenMax: 4096,
		},
		Sessions: SessionsConfig{
			Days: 30,
			Max:  -1,
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			OllamaHost: "http://127.0.0.1:11434",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(workspace, "memory-mcp.log"),
		},
	}
}

// Load builds the final Config: defaults, then an optional
// ".memory-mcp.yaml" found in dir (or, failing that, in the workspace
// directory), then environment variable overrides.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	// MEMORY_WORKSPACE is resolved early so loadFromFile's workspace-dir
	// fallback searches the right place; applyEnvOverrides re-applies it
	// (and everything else) below, after the YAML file has had its turn.
	if v := os.Getenv("MEMORY_WORKSPACE"); v != "" {
		cfg.Paths.Workspace = v
		cfg.Paths.DBPath = filepath.Join(v, "memory.db")
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	searchDirs := []string{dir}
	if c.Paths.Workspace != "" && c.Paths.Workspace != dir {
		searchDirs = append(searchDirs, c.Paths.Workspace)
	}

	for _, d := range searchDirs {
		for _, name := range []string{".memory-mcp.yaml", ".memory-mcp.yml"} {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return c.loadYAML(path)
			}
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)

	// mergeWith skips zero values, but 0 is meaningful for both session
	// settings, so apply them whenever the file sets them explicitly.
	var explicit struct {
		Sessions struct {
			Days *int `yaml:"days"`
			Max  *int `yaml:"max"`
		} `yaml:"sessions"`
	}
	if err := yaml.Unmarshal(data, &explicit); err == nil {
		if explicit.Sessions.Days != nil {
			c.Sessions.Days = *explicit.Sessions.Days
		}
		if explicit.Sessions.Max != nil {
			c.Sessions.Max = *explicit.Sessions.Max
		}
	}
	return nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Paths.Workspace != "" {
		c.Paths.Workspace = other.Paths.Workspace
	}
	if other.Paths.DBPath != "" {
		c.Paths.DBPath = other.Paths.DBPath
	}
	if other.Chunk.Size != 0 {
		c.Chunk.Size = other.Chunk.Size
	}
	if other.Search.TokenMax != 0 {
		c.Search.TokenMax = other.Search.TokenMax
	}
	if other.Sessions.Days != 0 {
		c.Sessions.Days = other.Sessions.Days
	}
	if other.Sessions.Max != 0 {
		c.Sessions.Max = other.Sessions.Max
	}
	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.OllamaHost != "" {
		c.Embedding.OllamaHost = other.Embedding.OllamaHost
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MEMORY_WORKSPACE"); v != "" {
		c.Paths.Workspace = v
		// DBPath and log file track the workspace unless separately overridden below.
		c.Paths.DBPath = filepath.Join(v, "memory.db")
		c.Logging.File = filepath.Join(v, "memory-mcp.log")
	}
	if v := os.Getenv("MEMORY_DB_PATH"); v != "" {
		c.Paths.DBPath = v
	}
	if v := os.Getenv("MEMORY_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunk.Size = n
		}
	}
	if v := os.Getenv("MEMORY_TOKEN_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.TokenMax = n
		}
	}
	if v := os.Getenv("MEMORY_SESSION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sessions.Days = n
		}
	}
	if v := os.Getenv("MEMORY_SESSION_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sessions.Max = n
		}
	}
	if v := os.Getenv("MEMORY_EMBEDDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("MEMORY_OLLAMA_HOST"); v != "" {
		c.Embedding.OllamaHost = v
	}
	if v := os.Getenv("MEMORY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MEMORY_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	if c.Chunk.Size < MinChunkSize || c.Chunk.Size > MaxChunkSize {
		return fmt.Errorf("chunk size %d out of range [%d, %d]", c.Chunk.Size, MinChunkSize, MaxChunkSize)
	}
	if c.Search.TokenMax < MinTokenMax || c.Search.TokenMax > MaxTokenMax {
		return fmt.Errorf("token max %d out of range [%d, %d]", c.Search.TokenMax, MinTokenMax, MaxTokenMax)
	}
	if c.Sessions.Days < 0 {
		return fmt.Errorf("session days %d must be >= 0", c.Sessions.Days)
	}
	if c.Sessions.Max < -1 {
		return fmt.Errorf("session max %d must be >= -1", c.Sessions.Max)
	}
	provider := strings.ToLower(c.Embedding.Provider)
	if provider != "ollama" && provider != "static" {
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	return nil
}

// MemoryFileNames lists the top-level memory files considered by the Scanner.
var MemoryFileNames = []string{"MEMORY.md", "memory.md", "MEMORY.txt", "memory.txt"}

// IndexedExtensions lists the extensions walked under memory/.
var IndexedExtensions = map[string]bool{
	".md": true, ".txt": true, ".json": true, ".jsonl": true, ".yaml": true, ".yml": true,
}
