package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Search   SearchConfig   `mapstructure:"search"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CatalogConfig holds upstream catalog API configuration
type CatalogConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	Warehouse            string        `mapstructure:"warehouse"`
	Lang                 string        `mapstructure:"lang"`
	TreeTimeout          time.Duration `mapstructure:"tree_timeout"`
	SubcategoryTimeout   time.Duration `mapstructure:"subcategory_timeout"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	RetryWaitTime        time.Duration `mapstructure:"retry_wait_time"`
	RetryMaxWaitTime     time.Duration `mapstructure:"retry_max_wait_time"`
	MaxWorkers           int           `mapstructure:"max_workers"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	UserAgent            string        `mapstructure:"user_agent"`
	Proxies              []string      `mapstructure:"proxies"`
}

// CacheConfig holds TTLs and bounds for the in-memory caches
type CacheConfig struct {
	TreeTTL        time.Duration `mapstructure:"tree_ttl"`
	SubcategoryTTL time.Duration `mapstructure:"subcategory_ttl"`
	SearchTTL      time.Duration `mapstructure:"search_ttl"`
	SearchMaxSize  int           `mapstructure:"search_max_size"`
}

// SearchConfig holds the matching and ranking knobs
type SearchConfig struct {
	MinQueryLength    int     `mapstructure:"min_query_length"`
	MinWordLength     int     `mapstructure:"min_word_length"`
	WordMatchRatio    float64 `mapstructure:"word_match_ratio"`
	SingleWordMinLen  int     `mapstructure:"single_word_min_length"`
	ScoreExactName    int     `mapstructure:"score_exact_name"`
	ScoreNamePrefix   int     `mapstructure:"score_name_prefix"`
	ScoreNameContains int     `mapstructure:"score_name_contains"`
	ScoreWordInName   int     `mapstructure:"score_word_in_name"`
	ScoreWordInBrand  int     `mapstructure:"score_word_in_brand"`
	ScoreCheap        int     `mapstructure:"score_cheap"`
	ScoreAffordable   int     `mapstructure:"score_affordable"`
	CheapBelow        float64 `mapstructure:"cheap_below"`
	AffordableBelow   float64 `mapstructure:"affordable_below"`
	ScoreDiscounted   int     `mapstructure:"score_discounted"`
}

// AdminConfig names the identity allowed to run privileged operations
type AdminConfig struct {
	Identity string `mapstructure:"identity"`
}

// DatabaseConfig holds database configuration for the shopping list store
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN returns the pgx connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// LogConfig holds logrus settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from config.yaml with environment variable overrides.
// A missing file is not an error: defaults and environment still apply.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), ".")
}

// LoadFrom loads configuration with the given viper instance, searching paths for config.yaml
func LoadFrom(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must be set")
	}
	if c.Catalog.MaxAttempts < 1 {
		return fmt.Errorf("catalog.max_attempts must be at least 1, got %d", c.Catalog.MaxAttempts)
	}
	if c.Cache.SearchMaxSize < 1 {
		return fmt.Errorf("cache.search_max_size must be at least 1, got %d", c.Cache.SearchMaxSize)
	}
	if c.Search.WordMatchRatio <= 0 || c.Search.WordMatchRatio > 1 {
		return fmt.Errorf("search.word_match_ratio must be in (0, 1], got %v", c.Search.WordMatchRatio)
	}
	return nil
}

// Default returns the configuration built from defaults and environment only
func Default() *Config {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")

	v.SetDefault("catalog.base_url", "https://tienda.mercadona.es/api")
	v.SetDefault("catalog.warehouse", "mad1")
	v.SetDefault("catalog.lang", "es")
	v.SetDefault("catalog.tree_timeout", 10*time.Second)
	v.SetDefault("catalog.subcategory_timeout", 8*time.Second)
	v.SetDefault("catalog.max_attempts", 3)
	v.SetDefault("catalog.retry_wait_time", 1*time.Second)
	v.SetDefault("catalog.retry_max_wait_time", 8*time.Second)
	v.SetDefault("catalog.max_workers", 8)
	v.SetDefault("catalog.max_requests_per_second", 20)
	v.SetDefault("catalog.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("catalog.proxies", []string{})

	v.SetDefault("cache.tree_ttl", 120*time.Second)
	v.SetDefault("cache.subcategory_ttl", 120*time.Second)
	v.SetDefault("cache.search_ttl", 30*time.Minute)
	v.SetDefault("cache.search_max_size", 500)

	v.SetDefault("search.min_query_length", 2)
	v.SetDefault("search.min_word_length", 2)
	v.SetDefault("search.word_match_ratio", 0.7)
	v.SetDefault("search.single_word_min_length", 3)
	v.SetDefault("search.score_exact_name", 100)
	v.SetDefault("search.score_name_prefix", 80)
	v.SetDefault("search.score_name_contains", 60)
	v.SetDefault("search.score_word_in_name", 10)
	v.SetDefault("search.score_word_in_brand", 5)
	v.SetDefault("search.score_cheap", 5)
	v.SetDefault("search.score_affordable", 2)
	v.SetDefault("search.cheap_below", 5.0)
	v.SetDefault("search.affordable_below", 10.0)
	v.SetDefault("search.score_discounted", 3)

	v.SetDefault("admin.identity", "admin")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "household")
	v.SetDefault("database.user", "household_user")
	v.SetDefault("database.password", "household_pass")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
