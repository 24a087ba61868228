// Package config loads gqlcore's configuration from environment variables,
// an optional YAML file, or both — the YAML file supplies the base, then
// any GQLCORE_* variable present overrides the matching field.
//
// Configuration is organized into the same sections the rest of the
// codebase is: Catalog (storage location), Txn (WAL behavior), Cache
// (plan/result/subquery tier sizing), and Planner (cost-based optimizer
// knobs).
//
// Grounded on the teacher's pkg/config/config.go (env-var-only Config
// struct, LoadFromEnv/Validate, section-per-concern layout), narrowed from
// its Neo4j-compatible/memory-decay/compliance scope down to what a query
// execution core actually needs, plus file-based loading and hot-reload
// the teacher's config package didn't have.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable gqlcore reads at startup.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Txn     TxnConfig     `yaml:"txn"`
	Cache   CacheConfig   `yaml:"cache"`
	Planner PlannerConfig `yaml:"planner"`
}

// CatalogConfig locates the on-disk database.
type CatalogConfig struct {
	DataDir string `yaml:"data_dir"`
}

// TxnConfig controls the transaction manager's WAL.
type TxnConfig struct {
	WALDir     string `yaml:"wal_dir"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// CacheConfig sizes the three query-cache tiers (spec.md §4.2).
type CacheConfig struct {
	ResultL1MaxEntries   int           `yaml:"result_l1_max_entries"`
	ResultL1MaxBytes     int64         `yaml:"result_l1_max_bytes"`
	ResultL2MaxEntries   int           `yaml:"result_l2_max_entries"`
	PlanCacheMaxEntries  int           `yaml:"plan_cache_max_entries"`
	PlanCacheTTL         time.Duration `yaml:"plan_cache_ttl"`
	SubqueryMaxEntries   int           `yaml:"subquery_max_entries"`
}

// PlannerConfig tunes the cost-based optimizer (spec.md §4.3).
type PlannerConfig struct {
	OptimizationLevel int `yaml:"optimization_level"`
}

// Default returns gqlcore's built-in defaults, before any env var or file
// is applied.
func Default() Config {
	return Config{
		Catalog: CatalogConfig{DataDir: "./data"},
		Txn:     TxnConfig{WALDir: "./data/wal", SyncWrites: false},
		Cache: CacheConfig{
			ResultL1MaxEntries:  1000,
			ResultL1MaxBytes:    64 << 20,
			ResultL2MaxEntries:  5000,
			PlanCacheMaxEntries: 256,
			PlanCacheTTL:        time.Hour,
			SubqueryMaxEntries:  1000,
		},
		Planner: PlannerConfig{OptimizationLevel: 1},
	}
}

// LoadFromFile reads a YAML config file over gqlcore's defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv starts from cfg (typically Default() or a file-loaded
// config) and overrides any field whose GQLCORE_* variable is set.
//
// Recognized variables:
//
//	GQLCORE_DATA_DIR
//	GQLCORE_WAL_DIR
//	GQLCORE_WAL_SYNC_WRITES
//	GQLCORE_CACHE_L1_ENTRIES
//	GQLCORE_CACHE_L1_BYTES
//	GQLCORE_CACHE_L2_ENTRIES
//	GQLCORE_PLAN_CACHE_ENTRIES
//	GQLCORE_PLAN_CACHE_TTL
//	GQLCORE_SUBQUERY_CACHE_ENTRIES
//	GQLCORE_PLANNER_OPTIMIZATION_LEVEL
func LoadFromEnv(cfg Config) Config {
	if v, ok := os.LookupEnv("GQLCORE_DATA_DIR"); ok {
		cfg.Catalog.DataDir = v
	}
	if v, ok := os.LookupEnv("GQLCORE_WAL_DIR"); ok {
		cfg.Txn.WALDir = v
	}
	if v, ok := lookupBool("GQLCORE_WAL_SYNC_WRITES"); ok {
		cfg.Txn.SyncWrites = v
	}
	if v, ok := lookupInt("GQLCORE_CACHE_L1_ENTRIES"); ok {
		cfg.Cache.ResultL1MaxEntries = v
	}
	if v, ok := lookupInt64("GQLCORE_CACHE_L1_BYTES"); ok {
		cfg.Cache.ResultL1MaxBytes = v
	}
	if v, ok := lookupInt("GQLCORE_CACHE_L2_ENTRIES"); ok {
		cfg.Cache.ResultL2MaxEntries = v
	}
	if v, ok := lookupInt("GQLCORE_PLAN_CACHE_ENTRIES"); ok {
		cfg.Cache.PlanCacheMaxEntries = v
	}
	if v, ok := lookupDuration("GQLCORE_PLAN_CACHE_TTL"); ok {
		cfg.Cache.PlanCacheTTL = v
	}
	if v, ok := lookupInt("GQLCORE_SUBQUERY_CACHE_ENTRIES"); ok {
		cfg.Cache.SubqueryMaxEntries = v
	}
	if v, ok := lookupInt("GQLCORE_PLANNER_OPTIMIZATION_LEVEL"); ok {
		cfg.Planner.OptimizationLevel = v
	}
	return cfg
}

func lookupBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func lookupInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func lookupInt64(name string) (int64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

func lookupDuration(name string) (time.Duration, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	return d, err == nil
}

// Validate rejects a config that would leave a cache tier or the catalog
// location unusable.
func (c Config) Validate() error {
	if c.Catalog.DataDir == "" {
		return fmt.Errorf("config: catalog.data_dir must not be empty")
	}
	if c.Cache.ResultL1MaxEntries <= 0 {
		return fmt.Errorf("config: cache.result_l1_max_entries must be positive")
	}
	if c.Cache.ResultL1MaxBytes <= 0 {
		return fmt.Errorf("config: cache.result_l1_max_bytes must be positive")
	}
	if c.Cache.PlanCacheMaxEntries <= 0 {
		return fmt.Errorf("config: cache.plan_cache_max_entries must be positive")
	}
	if c.Planner.OptimizationLevel < 0 {
		return fmt.Errorf("config: planner.optimization_level must not be negative")
	}
	return nil
}
