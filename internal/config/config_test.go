package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Scraper.PageTimeout)
	assert.Equal(t, 15*time.Second, cfg.Scraper.ResolveTimeout)
	assert.Equal(t, 10*time.Second, cfg.Scraper.SearchTimeout)
	assert.Equal(t, time.Second, cfg.Scraper.WalkDelay)
	assert.Equal(t, 20, cfg.Scraper.WalkMax)
	assert.Equal(t, "amazon", cfg.Scraper.DefaultStore)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, JobsMemory, cfg.Jobs.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.TTL)
	assert.True(t, cfg.Server.AllowCreds)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("SCRAPER_WALK_DELAY", "250ms")
	t.Setenv("AMAZON_ASSOCIATE_TAG", "creator-20")
	t.Setenv("EBAY_APP_ID", "app-123")
	t.Setenv("DEFAULT_STORE", "AliExpress")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("JOBS_BACKEND", "redis")
	t.Setenv("VIDEO_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.WalkDelay)
	assert.Equal(t, "creator-20", cfg.Amazon.AssociateTag)
	assert.Equal(t, "app-123", cfg.Ebay.AppID)
	assert.Equal(t, "aliexpress", cfg.Scraper.DefaultStore)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, JobsRedis, cfg.Jobs.Backend)
	assert.Equal(t, 2, cfg.Jobs.VideoWorkers)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ALIEXPRESS_AFFILIATE_TRACKING=trk_from_file\nLOG_LEVEL=debug\n"), 0o644))
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("ALIEXPRESS_AFFILIATE_TRACKING") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "trk_from_file", cfg.AliExpress.TrackingID)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Scraper: ScraperConfig{PageTimeout: time.Second, ResolveTimeout: time.Second, SearchTimeout: time.Second, WalkMax: 20, DefaultStore: "amazon"},
			Storage: StorageConfig{Backend: StorageFile, File: "products.json"},
			Jobs:    JobsConfig{Backend: JobsMemory, VideoWorkers: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero walk delay allowed", mutate: func(c *Config) { c.Scraper.WalkDelay = 0 }},
		{name: "negative walk delay", mutate: func(c *Config) { c.Scraper.WalkDelay = -time.Second }, wantErr: "SCRAPER_WALK_DELAY"},
		{name: "zero page timeout", mutate: func(c *Config) { c.Scraper.PageTimeout = 0 }, wantErr: "timeouts"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "port"},
		{name: "unknown store", mutate: func(c *Config) { c.Scraper.DefaultStore = "etsy" }, wantErr: "DEFAULT_STORE"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Backend = "s3" }, wantErr: "STORAGE_BACKEND"},
		{name: "postgres needs host", mutate: func(c *Config) { c.Storage.Backend = StoragePostgres }, wantErr: "database host"},
		{name: "unknown jobs backend", mutate: func(c *Config) { c.Jobs.Backend = "kafka" }, wantErr: "JOBS_BACKEND"},
		{name: "no workers", mutate: func(c *Config) { c.Jobs.VideoWorkers = 0 }, wantErr: "VIDEO_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
