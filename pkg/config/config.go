// Package config loads HelixDB's runtime configuration from a YAML file
// and HELIX_-prefixed environment variables, the latter always taking
// precedence. Adapted from straga-Mimir_lite's pkg/config/config.go,
// which loads purely from Neo4j-compatible environment variables;
// generalized here to read gopkg.in/yaml.v3 first (HelixDB has no
// Neo4j-tooling compatibility obligation) and then apply the same
// env-var-overlay pattern on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a HelixDB process.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Query    QueryConfig    `yaml:"query"`
	Vector   VectorConfig   `yaml:"vector"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig controls the storage engine.
type DatabaseConfig struct {
	// DataDir is the directory badger stores its files in.
	DataDir string `yaml:"data_dir"`
	// InMemory runs the engine without touching disk, overriding DataDir.
	InMemory bool `yaml:"in_memory"`
	// GCIntervalSeconds is how often the CLI's background GC loop runs
	// badger's value-log collection; 0 disables it.
	GCIntervalSeconds int `yaml:"gc_interval_seconds"`
	// GCDiscardRatio is the minimum reclaimable fraction RunGC requires.
	GCDiscardRatio float64 `yaml:"gc_discard_ratio"`
}

// QueryConfig controls HelixQL compilation and execution.
type QueryConfig struct {
	// MaxRangeLimit bounds the upper end of any range step the analyzer
	// accepts, guarding against accidental full-table materialization.
	MaxRangeLimit int `yaml:"max_range_limit"`
	// DefaultSearchVK is the k used by search_v when a query omits it.
	DefaultSearchVK int `yaml:"default_search_v_k"`
}

// VectorConfig controls the default similarity index behavior for vector
// labels that don't declare their own metric in schema.
type VectorConfig struct {
	DefaultMetric string `yaml:"default_metric"`
}

// LoggingConfig controls the ambient stdlib logger every package here
// writes through.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `yaml:"level"`
	// Output is "stdout", "stderr", or a file path.
	Output string `yaml:"output"`
}

// Default returns a Config with every field set to its production
// default, used as the base that LoadFile and LoadEnv overlay onto.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataDir:           "./data",
			InMemory:          false,
			GCIntervalSeconds: 600,
			GCDiscardRatio:    0.5,
		},
		Query: QueryConfig{
			MaxRangeLimit:   100_000,
			DefaultSearchVK: 10,
		},
		Vector: VectorConfig{
			DefaultMetric: "cosine",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Output: "stdout",
		},
	}
}

// Load builds a Config starting from Default, overlaying path's YAML
// contents (if path is non-empty and the file exists), then overlaying
// HELIX_-prefixed environment variables on top of that.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.Database.DataDir = getEnv("HELIX_DATA_DIR", c.Database.DataDir)
	c.Database.InMemory = getEnvBool("HELIX_IN_MEMORY", c.Database.InMemory)
	c.Database.GCIntervalSeconds = getEnvInt("HELIX_GC_INTERVAL_SECONDS", c.Database.GCIntervalSeconds)
	c.Database.GCDiscardRatio = getEnvFloat("HELIX_GC_DISCARD_RATIO", c.Database.GCDiscardRatio)

	c.Query.MaxRangeLimit = getEnvInt("HELIX_MAX_RANGE_LIMIT", c.Query.MaxRangeLimit)
	c.Query.DefaultSearchVK = getEnvInt("HELIX_DEFAULT_SEARCH_V_K", c.Query.DefaultSearchVK)

	c.Vector.DefaultMetric = getEnv("HELIX_VECTOR_DEFAULT_METRIC", c.Vector.DefaultMetric)

	c.Logging.Level = getEnv("HELIX_LOG_LEVEL", c.Logging.Level)
	c.Logging.Output = getEnv("HELIX_LOG_OUTPUT", c.Logging.Output)
}

// Validate checks the configuration for values that would make the
// engine fail to start or behave nonsensically.
func (c *Config) Validate() error {
	if !c.Database.InMemory && c.Database.DataDir == "" {
		return fmt.Errorf("config: database.data_dir must be set unless database.in_memory is true")
	}
	if c.Database.GCDiscardRatio <= 0 || c.Database.GCDiscardRatio > 1 {
		return fmt.Errorf("config: database.gc_discard_ratio must be in (0, 1], got %v", c.Database.GCDiscardRatio)
	}
	if c.Query.MaxRangeLimit <= 0 {
		return fmt.Errorf("config: query.max_range_limit must be positive, got %d", c.Query.MaxRangeLimit)
	}
	switch c.Vector.DefaultMetric {
	case "cosine", "euclidean", "dot":
	default:
		return fmt.Errorf("config: vector.default_metric %q is not one of cosine, euclidean, dot", c.Vector.DefaultMetric)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: logging.level %q is not one of DEBUG, INFO, WARN, ERROR", c.Logging.Level)
	}
	return nil
}

// GCInterval returns Database.GCIntervalSeconds as a time.Duration, 0
// meaning "disabled".
func (c *Config) GCInterval() time.Duration {
	return time.Duration(c.Database.GCIntervalSeconds) * time.Second
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
