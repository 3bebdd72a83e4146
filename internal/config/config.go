package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"

	JobsMemory = "memory"
	JobsRedis  = "redis"
)

var knownStores = []string{"amazon", "aliexpress", "ebay"}

type Config struct {
	Server     ServerConfig
	Scraper    ScraperConfig
	Amazon     AmazonConfig
	AliExpress AliExpressConfig
	Ebay       EbayConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Jobs       JobsConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
	AllowCreds      bool
}

type ScraperConfig struct {
	PageTimeout       time.Duration
	ResolveTimeout    time.Duration
	SearchTimeout     time.Duration
	VDPTimeout        time.Duration
	WalkDelay         time.Duration
	WalkMax           int
	UserAgent         string
	AcceptLanguage    string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryDelay        time.Duration
	MaxRedirects      int
	DefaultStore      string
	AmazonBaseURL     string
	AliExpressBaseURL string
	EbayBaseURL       string
}

type AmazonConfig struct {
	AccessKey    string
	SecretKey    string
	AssociateTag string
	Region       string
}

type AliExpressConfig struct {
	AppKey     string
	AppSecret  string
	TrackingID string
}

type EbayConfig struct {
	AppID      string
	CertID     string
	DevID      string
	CampaignID string
}

type StorageConfig struct {
	Backend string
	File    string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JobsConfig struct {
	Backend      string
	VideoWorkers int
	OutputDir    string
	TTL          time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("PORT", 8080),
			Host:            getEnvOrDefault("HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getDurationOrDefault("SERVER_REQUEST_TIMEOUT", 90*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
			AllowCreds:      getBoolOrDefault("CORS_ALLOW_CREDENTIALS", true),
		},
		Scraper: ScraperConfig{
			PageTimeout:       getDurationOrDefault("SCRAPER_PAGE_TIMEOUT", 15*time.Second),
			ResolveTimeout:    getDurationOrDefault("SCRAPER_RESOLVE_TIMEOUT", 15*time.Second),
			SearchTimeout:     getDurationOrDefault("SCRAPER_SEARCH_TIMEOUT", 10*time.Second),
			VDPTimeout:        getDurationOrDefault("SCRAPER_VDP_TIMEOUT", 10*time.Second),
			WalkDelay:         getDurationOrDefault("SCRAPER_WALK_DELAY", time.Second),
			WalkMax:           getIntOrDefault("SCRAPER_WALK_MAX", 20),
			UserAgent:         getEnvOrDefault("SCRAPER_USER_AGENT", ""),
			AcceptLanguage:    getEnvOrDefault("SCRAPER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			RequestsPerSecond: getFloatOrDefault("SCRAPER_REQUESTS_PER_SECOND", 0),
			Burst:             getIntOrDefault("SCRAPER_BURST", 1),
			MaxRetries:        getIntOrDefault("SCRAPER_MAX_RETRIES", 0),
			RetryDelay:        getDurationOrDefault("SCRAPER_RETRY_DELAY", time.Second),
			MaxRedirects:      getIntOrDefault("SCRAPER_MAX_REDIRECTS", 10),
			DefaultStore:      strings.ToLower(getEnvOrDefault("DEFAULT_STORE", "amazon")),
			AmazonBaseURL:     getEnvOrDefault("AMAZON_BASE_URL", ""),
			AliExpressBaseURL: getEnvOrDefault("ALIEXPRESS_BASE_URL", ""),
			EbayBaseURL:       getEnvOrDefault("EBAY_BASE_URL", ""),
		},
		Amazon: AmazonConfig{
			AccessKey:    getEnvOrDefault("AMAZON_ACCESS_KEY", ""),
			SecretKey:    getEnvOrDefault("AMAZON_SECRET_KEY", ""),
			AssociateTag: getEnvOrDefault("AMAZON_ASSOCIATE_TAG", ""),
			Region:       getEnvOrDefault("AMAZON_REGION", "US"),
		},
		AliExpress: AliExpressConfig{
			AppKey:     getEnvOrDefault("ALIEXPRESS_APP_KEY", ""),
			AppSecret:  getEnvOrDefault("ALIEXPRESS_APP_SECRET", ""),
			TrackingID: getEnvOrDefault("ALIEXPRESS_AFFILIATE_TRACKING", ""),
		},
		Ebay: EbayConfig{
			AppID:      getEnvOrDefault("EBAY_APP_ID", ""),
			CertID:     getEnvOrDefault("EBAY_CERT_ID", ""),
			DevID:      getEnvOrDefault("EBAY_DEV_ID", ""),
			CampaignID: getEnvOrDefault("EBAY_AFFILIATE_CAMPAIGN_ID", ""),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", StorageFile)),
			File:    getEnvOrDefault("STORAGE_FILE", "saved_products.json"),
		},
		Database: DatabaseConfig{
			URL:      getEnvOrDefault("DATABASE_URL", ""),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "affiliate_products"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Jobs: JobsConfig{
			Backend:      strings.ToLower(getEnvOrDefault("JOBS_BACKEND", JobsMemory)),
			VideoWorkers: getIntOrDefault("VIDEO_WORKERS", 2),
			OutputDir:    getEnvOrDefault("VIDEO_OUTPUT_DIR", "output_videos"),
			TTL:          getDurationOrDefault("JOBS_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Scraper.WalkDelay < 0 {
		errs = append(errs, errors.New("SCRAPER_WALK_DELAY cannot be negative"))
	}
	if c.Scraper.PageTimeout <= 0 || c.Scraper.ResolveTimeout <= 0 || c.Scraper.SearchTimeout <= 0 {
		errs = append(errs, errors.New("scraper timeouts must be positive"))
	}
	if c.Scraper.WalkMax < 1 {
		errs = append(errs, errors.New("SCRAPER_WALK_MAX must be at least 1"))
	}
	if !slices.Contains(knownStores, c.Scraper.DefaultStore) {
		errs = append(errs, fmt.Errorf("unknown DEFAULT_STORE %q", c.Scraper.DefaultStore))
	}

	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.File == "" {
			errs = append(errs, errors.New("STORAGE_FILE is required for the file backend"))
		}
	case StoragePostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("database host or DATABASE_URL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	if c.Jobs.Backend != JobsMemory && c.Jobs.Backend != JobsRedis {
		errs = append(errs, fmt.Errorf("unknown JOBS_BACKEND %q", c.Jobs.Backend))
	}
	if c.Jobs.VideoWorkers < 1 {
		errs = append(errs, errors.New("VIDEO_WORKERS must be at least 1"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
