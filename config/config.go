package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	// Pipeline is the remote generation API the orchestrator drives.
	Pipeline struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"pipeline"`
	Poll struct {
		Interval    time.Duration `yaml:"interval"`
		MaxAttempts int           `yaml:"max_attempts"`
	} `yaml:"poll"`
	Worker struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`
	MinIO struct {
		Enabled   bool   `yaml:"enabled"`
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`
}

var AppConfig *Config

// InitConfig loads DefaultPath into AppConfig and exits on failure.
func InitConfig() {
	cfg, err := Load(DefaultPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Load reads the YAML file at path, applies defaults and VIDEOGEN_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Pipeline.Timeout == 0 {
		c.Pipeline.Timeout = 30 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 5 * time.Second
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = 360
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 5
	}
	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = "generations"
	}
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("VIDEOGEN_PORT", c.Server.Port)
	c.MySQL.DSN = getEnv("VIDEOGEN_MYSQL_DSN", c.MySQL.DSN)
	c.Redis.Addr = getEnv("VIDEOGEN_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("VIDEOGEN_REDIS_PASSWORD", c.Redis.Password)
	c.Pipeline.BaseURL = getEnv("VIDEOGEN_PIPELINE_BASE_URL", c.Pipeline.BaseURL)
	c.Pipeline.APIKey = getEnv("VIDEOGEN_PIPELINE_API_KEY", c.Pipeline.APIKey)
	c.MinIO.AccessKey = getEnv("VIDEOGEN_MINIO_ACCESS_KEY", c.MinIO.AccessKey)
	c.MinIO.SecretKey = getEnv("VIDEOGEN_MINIO_SECRET_KEY", c.MinIO.SecretKey)

	if v := os.Getenv("VIDEOGEN_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Poll.Interval = d
		} else {
			log.Printf("[Config] ignoring VIDEOGEN_POLL_INTERVAL=%q: %v", v, err)
		}
	}
	if v := os.Getenv("VIDEOGEN_POLL_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Poll.MaxAttempts = n
		} else {
			log.Printf("[Config] ignoring VIDEOGEN_POLL_MAX_ATTEMPTS=%q: %v", v, err)
		}
	}
}

func (c *Config) Validate() error {
	if c.Pipeline.BaseURL == "" {
		return fmt.Errorf("pipeline.base_url is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max_attempts must be positive")
	}
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return fmt.Errorf("minio.endpoint is required when minio is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
