// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Indexer IndexerConfig `yaml:"indexer"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the chunk store
type StoreConfig struct {
	// Path of the SQLite database file; ":memory:" for ephemeral use
	Path string `yaml:"path"`

	// Dimension is the fixed embedding dimensionality
	Dimension int `yaml:"dimension"`

	// Metric is "cosine" or "dot"
	Metric string `yaml:"metric"`
}

// SearchConfig configures the hybrid search engine
type SearchConfig struct {
	// Weights for the three ranking signals; normalized at query time
	VectorWeight     float64 `yaml:"vector_weight"`
	KeywordWeight    float64 `yaml:"keyword_weight"`
	DependencyWeight float64 `yaml:"dependency_weight"`

	// MaxHops bounds the dependency-signal traversal
	MaxHops int `yaml:"max_hops"`
}

// CacheConfig configures the semantic response cache
type CacheConfig struct {
	Capacity            int     `yaml:"capacity"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	DisableSemantic     bool    `yaml:"disable_semantic"`
}

// IndexerConfig configures incremental indexing
type IndexerConfig struct {
	// MetadataPath overrides the default <root>/.coreindex/metadata.json
	MetadataPath string `yaml:"metadata_path"`

	// Extensions restricts tracked files (e.g. [".go", ".ts"])
	Extensions []string `yaml:"extensions"`

	// Concurrency bounds parallel file hashing; 0 means NumCPU
	Concurrency int `yaml:"concurrency"`

	// WatchDebounceMS delays watcher reports until a path stops
	// changing
	WatchDebounceMS int `yaml:"watch_debounce_ms"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is provided
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path:      "coreindex.db",
			Dimension: 768,
			Metric:    "cosine",
		},
		Search: SearchConfig{
			VectorWeight:     0.5,
			KeywordWeight:    0.3,
			DependencyWeight: 0.2,
			MaxHops:          2,
		},
		Cache: CacheConfig{
			Capacity:            256,
			SimilarityThreshold: 0.92,
		},
		Indexer: IndexerConfig{
			Extensions:      []string{".go", ".ts", ".tsx", ".js", ".py"},
			WatchDebounceMS: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file layered over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no component accepts
func (c Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("store.dimension must be positive, got %d", c.Store.Dimension)
	}
	if c.Store.Metric != "cosine" && c.Store.Metric != "dot" {
		return fmt.Errorf("store.metric must be \"cosine\" or \"dot\", got %q", c.Store.Metric)
	}

	if c.Search.VectorWeight < 0 || c.Search.KeywordWeight < 0 || c.Search.DependencyWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.MaxHops < 0 {
		return fmt.Errorf("search.max_hops must be non-negative, got %d", c.Search.MaxHops)
	}

	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("cache.similarity_threshold must be in (0, 1], got %g", c.Cache.SimilarityThreshold)
	}

	if c.Indexer.Concurrency < 0 {
		return fmt.Errorf("indexer.concurrency must be non-negative, got %d", c.Indexer.Concurrency)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}
