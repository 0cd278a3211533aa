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
	LogPath     string
	Scheduler   SchedulerConfig
	Sync        SyncConfig
	Archive     ArchiveConfig
	Push        PushConfig
	Properties  map[string]*PropertySeed
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type SyncConfig struct {
	HorizonDays int
	Timeout     time.Duration
	Concurrency int
	Timezone    string
}

type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type PushConfig struct {
	URL        string
	ServiceKey string
}

// PropertySeed is a declarative property definition loaded from
// config/properties/*.yaml and upserted into the database at startup.
type PropertySeed struct {
	ID          string `yaml:"id"`
	OwnerID     string `yaml:"owner_id"`
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	CalendarURL string `yaml:"calendar_url"`
	Active      *bool  `yaml:"active"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OpsDBPath:   getEnv("OPS_DB_PATH", "turnover.db"),
		LogPath:     getEnv("LOG_PATH", "turnover.log"),
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SYNC_CRON"),
		},
		Sync: SyncConfig{
			HorizonDays: getEnvInt("SYNC_HORIZON_DAYS", 30),
			Timeout:     getEnvDuration("SYNC_TIMEOUT", 5*time.Minute),
			Concurrency: getEnvInt("SYNC_CONCURRENCY", 4),
			Timezone:    os.Getenv("TIMEZONE"),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("ARCHIVE_BUCKET"),
			Region:          getEnv("ARCHIVE_REGION", "us-east-1"),
			Endpoint:        os.Getenv("ARCHIVE_ENDPOINT"),
			AccessKeyID:     os.Getenv("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARCHIVE_SECRET_ACCESS_KEY"),
		},
		Push: PushConfig{
			URL:        os.Getenv("PUSH_URL"),
			ServiceKey: os.Getenv("PUSH_SERVICE_KEY"),
		},
		Properties: make(map[string]*PropertySeed),
	}

	if interval := os.Getenv("SYNC_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadPropertySeeds(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves the operating timezone. An empty or invalid TIMEZONE
// falls back to the host's local zone.
func (c *Config) Location() *time.Location {
	if c.Sync.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) loadPropertySeeds() error {
	configDir := "config/properties"
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

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var seed PropertySeed
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return err
		}

		c.Properties[seed.ID] = &seed
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
