package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	OpsDBPath   string
	LogLevel    string
	SiteURL     string

	Logging   LoggingConfig
	Capture   CaptureConfig
	Scheduler SchedulerConfig
	Scraper   ScraperConfig
	Delivery  DeliveryConfig
	CRM       CRMConfig
	Email     EmailConfig
	S3        S3Config

	// Per-dealer overrides loaded from config/dealers/*.yaml, keyed by slug.
	Dealers map[string]*DealerOverride
}

type LoggingConfig struct {
	File      string
	MaxSizeMB int
	Backups   int
}

type CaptureConfig struct {
	APIKey  string
	BaseURL string
}

type SchedulerConfig struct {
	Cron string
}

type ScraperConfig struct {
	MaxConcurrent int
	LoadMoreMax   int
}

type DeliveryConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type CRMConfig struct {
	APIKey  string
	BaseURL string
}

type EmailConfig struct {
	APIKey   string
	BaseURL  string
	From     string
	FromName string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// DealerOverride lets ops pin scraping parameters for a dealer without a
// database change. Fields left empty keep the stored configuration.
type DealerOverride struct {
	Slug         string            `yaml:"slug"`
	CaptureBotID string            `yaml:"capture_bot_id"`
	ListName     string            `yaml:"list_name"`
	RequiresJS   *bool             `yaml:"requires_js"`
	FieldMapping map[string]string `yaml:"field_mapping"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OpsDBPath:   getEnv("OPS_DB_PATH", "autoleads.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		SiteURL:     getEnv("SITE_URL", "https://autoleadsdirectory.com"),
		Logging: LoggingConfig{
			File:      getEnv("LOG_FILE", "daemon.log"),
			MaxSizeMB: getEnvInt("LOG_MAX_SIZE_MB", 5),
			Backups:   getEnvInt("LOG_BACKUPS", 2),
		},
		Capture: CaptureConfig{
			APIKey:  os.Getenv("CAPTURE_API_KEY"),
			BaseURL: getEnv("CAPTURE_API_URL", "https://api.browse.ai/v2"),
		},
		Scheduler: SchedulerConfig{
			Cron: getEnv("SCRAPE_CRON", "0 2 * * *"),
		},
		Scraper: ScraperConfig{
			MaxConcurrent: getEnvInt("MAX_CONCURRENT_SCRAPES", 3),
			LoadMoreMax:   getEnvInt("SCRAPE_LOAD_MORE_MAX", 5),
		},
		Delivery: DeliveryConfig{
			MaxAttempts: getEnvInt("WEBHOOK_MAX_ATTEMPTS", 3),
			RetryDelay:  getEnvDuration("WEBHOOK_RETRY_DELAY", 5*time.Second),
		},
		CRM: CRMConfig{
			APIKey:  os.Getenv("CRM_API_KEY"),
			BaseURL: getEnv("CRM_API_URL", "https://rest.gohighlevel.com/v1"),
		},
		Email: EmailConfig{
			APIKey:   os.Getenv("EMAIL_API_KEY"),
			BaseURL:  getEnv("EMAIL_API_URL", "https://api.sendgrid.com"),
			From:     getEnv("EMAIL_FROM", "leads@autoleadsdirectory.com"),
			FromName: getEnv("EMAIL_FROM_NAME", "Auto Leads Directory"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Dealers: make(map[string]*DealerOverride),
	}

	if err := cfg.loadDealerOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadDealerOverrides() error {
	configDir := "config/dealers"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(configDir, entry.Name()))
		if err != nil {
			return err
		}

		var override DealerOverride
		if err := yaml.Unmarshal(data, &override); err != nil {
			return err
		}
		if override.Slug == "" {
			continue
		}

		c.Dealers[override.Slug] = &override
	}

	return nil
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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
