package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmcdole/folio/internal/domain"
)

// CacheBackend selects where API responses are cached
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendBolt   CacheBackend = "bolt"
	CacheBackendRedis  CacheBackend = "redis"
)

// Config holds all application configuration
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Server      ServerConfig      `mapstructure:"server"`
	UI          UIConfig          `mapstructure:"ui"`
	Viewer      ViewerConfig      `mapstructure:"viewer"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// APIConfig holds the repository endpoint and credentials
type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`       // e.g. https://library.example.org/api
	KeyIdentity   string `mapstructure:"key_identity"`   // Sent as key_identity
	KeyCredential string `mapstructure:"key_credential"` // Sent as key_credential
}

// FetchConfig tunes the transport chain
type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`   // Per attempt
	Relays   []string      `mapstructure:"relays"`    // Fallback relays in order: allorigins, codetabs
	RelayRPS float64       `mapstructure:"relay_rps"` // Requests per second allowed per relay
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	Backend      CacheBackend  `mapstructure:"backend"`
	Path         string        `mapstructure:"path"`
	RedisURL     string        `mapstructure:"redis_url"`
	ListingTTL   time.Duration `mapstructure:"listing_ttl"`
	MediaTTL     time.Duration `mapstructure:"media_ttl"`
	ThumbnailTTL time.Duration `mapstructure:"thumbnail_ttl"` // 0 keeps resolved covers for the session
}

// PreferencesConfig holds user preferences
type PreferencesConfig struct {
	Language       string `mapstructure:"language"`        // Wanted display language
	HTTPSDocuments bool   `mapstructure:"https_documents"` // Upgrade http document URLs to https
}

// ServerConfig holds the HTTP server configuration for `folio serve`
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig holds terminal UI configuration
type UIConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// ViewerConfig holds the external document viewer configuration
type ViewerConfig struct {
	Command string   `mapstructure:"command"` // Empty auto-detects
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json, for stderr logging
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout:  15 * time.Second,
			Relays:   []string{"allorigins", "codetabs"},
			RelayRPS: 2,
		},
		Cache: CacheConfig{
			Backend:    CacheBackendMemory,
			Path:       defaultCachePath(),
			ListingTTL: 30 * time.Second,
			MediaTTL:   60 * time.Second,
		},
		Preferences: PreferencesConfig{
			Language:       "th",
			HTTPSDocuments: true,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		UI: UIConfig{
			PageSize: 24,
		},
		Viewer: ViewerConfig{
			Args: []string{},
		},
		Logging: LoggingConfig{
			File:   defaultLogPath(),
			Level:  "INFO",
			Format: "text",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "folio", "folio.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "folio", "folio.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "folio")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "folio")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "folio", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "folio", "cache")
	}
}

// envBound lists keys that are read from FOLIO_* variables even without a config file entry
var envBound = []string{
	"api.base_url",
	"api.key_identity",
	"api.key_credential",
	"fetch.timeout",
	"cache.backend",
	"cache.redis_url",
	"preferences.language",
	"server.addr",
	"logging.level",
}

// envAliases are shorter variable names accepted for common keys
var envAliases = map[string]string{
	"preferences.language": "FOLIO_LANGUAGE",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaultConfigPath())
	v.AddConfigPath(".")

	// Environment variable overrides: api.base_url -> FOLIO_API_BASE_URL
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envBound {
		names := []string{key, "FOLIO_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if alias, ok := envAliases[key]; ok {
			names = append(names, alias)
		}
		_ = v.BindEnv(names...)
	}
	return v
}

// LoadConfig loads configuration from file and environment. An explicit
// configFile replaces the default search path.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults and environment
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Cache.Backend = CacheBackend(strings.ToLower(string(cfg.Cache.Backend)))
	return cfg, nil
}

// Validate fails fast on missing endpoint or credentials with a *domain.ConfigError
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.API.BaseURL) == "":
		return &domain.ConfigError{Field: "api.base_url"}
	case c.API.KeyIdentity == "":
		return &domain.ConfigError{Field: "api.key_identity"}
	case c.API.KeyCredential == "":
		return &domain.ConfigError{Field: "api.key_credential"}
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendBolt:
	case CacheBackendRedis:
		if c.Cache.RedisURL == "" {
			return &domain.ConfigError{Field: "cache.redis_url"}
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	for _, r := range c.Fetch.Relays {
		switch strings.ToLower(r) {
		case "allorigins", "codetabs":
		default:
			return fmt.Errorf("unknown relay: %s", r)
		}
	}
	return nil
}

// IsConfigured returns true if the endpoint and both credentials are set
func (c *Config) IsConfigured() bool {
	return c.API.BaseURL != "" && c.API.KeyIdentity != "" && c.API.KeyCredential != ""
}

// SaveConfig writes the configuration to the default config file and returns its path
func SaveConfig(cfg *Config) (string, error) {
	configPath := defaultConfigPath()

	// Ensure config directory exists
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := writeConfig(cfg, configFile); err != nil {
		return "", err
	}
	return configFile, nil
}

func writeConfig(cfg *Config, configFile string) error {
	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.key_identity", cfg.API.KeyIdentity)
	v.Set("api.key_credential", cfg.API.KeyCredential)

	v.Set("fetch.timeout", cfg.Fetch.Timeout.String())
	v.Set("fetch.relays", cfg.Fetch.Relays)
	v.Set("fetch.relay_rps", cfg.Fetch.RelayRPS)

	v.Set("cache.backend", string(cfg.Cache.Backend))
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("cache.redis_url", cfg.Cache.RedisURL)
	v.Set("cache.listing_ttl", cfg.Cache.ListingTTL.String())
	v.Set("cache.media_ttl", cfg.Cache.MediaTTL.String())
	v.Set("cache.thumbnail_ttl", cfg.Cache.ThumbnailTTL.String())

	v.Set("preferences.language", cfg.Preferences.Language)
	v.Set("preferences.https_documents", cfg.Preferences.HTTPSDocuments)

	v.Set("server.addr", cfg.Server.Addr)
	v.Set("ui.page_size", cfg.UI.PageSize)
	v.Set("viewer.command", cfg.Viewer.Command)
	v.Set("viewer.args", cfg.Viewer.Args)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.format", cfg.Logging.Format)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ClearCache removes all persisted cache data under path
func ClearCache(path string) error {
	if path == "" {
		path = defaultCachePath()
	}
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
