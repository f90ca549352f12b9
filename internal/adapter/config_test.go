package adapter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/folio/internal/domain"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateHome(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, []string{"allorigins", "codetabs"}, cfg.Fetch.Relays)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.ListingTTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.MediaTTL)
	assert.Equal(t, time.Duration(0), cfg.Cache.ThumbnailTTL)
	assert.Equal(t, "th", cfg.Preferences.Language)
	assert.True(t, cfg.Preferences.HTTPSDocuments)
	assert.False(t, cfg.IsConfigured())
}

func TestLoadConfig_Environment(t *testing.T) {
	isolateHome(t)
	t.Setenv("FOLIO_API_BASE_URL", "https://lib.example.org/api")
	t.Setenv("FOLIO_API_KEY_IDENTITY", "ident")
	t.Setenv("FOLIO_API_KEY_CREDENTIAL", "secret")
	t.Setenv("FOLIO_LANGUAGE", "en")
	t.Setenv("FOLIO_FETCH_TIMEOUT", "5s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://lib.example.org/api", cfg.API.BaseURL)
	assert.Equal(t, "ident", cfg.API.KeyIdentity)
	assert.Equal(t, "secret", cfg.API.KeyCredential)
	assert.Equal(t, "en", cfg.Preferences.Language)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://lib.example.org/api/
  key_identity: a
  key_credential: b
cache:
  backend: BOLT
  listing_ttl: 45s
fetch:
  relays: [codetabs]
preferences:
  language: zh
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, CacheBackendBolt, cfg.Cache.Backend)
	assert.Equal(t, 45*time.Second, cfg.Cache.ListingTTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.MediaTTL, "unset keys keep defaults")
	assert.Equal(t, []string{"codetabs"}, cfg.Fetch.Relays)
	assert.Equal(t, "zh", cfg.Preferences.Language)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolateHome(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.API = APIConfig{BaseURL: "https://x/api", KeyIdentity: "a", KeyCredential: "b"}
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantErr   bool
	}{
		{"valid", func(*Config) {}, "", false},
		{"missing base url", func(c *Config) { c.API.BaseURL = "  " }, "api.base_url", true},
		{"missing identity", func(c *Config) { c.API.KeyIdentity = "" }, "api.key_identity", true},
		{"missing credential", func(c *Config) { c.API.KeyCredential = "" }, "api.key_credential", true},
		{"redis without url", func(c *Config) { c.Cache.Backend = CacheBackendRedis }, "cache.redis_url", true},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "", true},
		{"unknown relay", func(c *Config) { c.Fetch.Relays = []string{"corsproxy"} }, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantField != "" {
				var ce *domain.ConfigError
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, tt.wantField, ce.Field)
				assert.ErrorIs(t, err, domain.ErrNotConfigured)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	home := isolateHome(t)

	cfg := DefaultConfig()
	cfg.API = APIConfig{BaseURL: "https://x/api", KeyIdentity: "a", KeyCredential: "b"}
	cfg.Cache.ThumbnailTTL = 10 * time.Minute

	path, err := SaveConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "folio", "config.yaml"), path)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.API, loaded.API)
	assert.Equal(t, 10*time.Minute, loaded.Cache.ThumbnailTTL)
}

func TestClearCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "abc"), 0755))

	require.NoError(t, ClearCache(dir))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
