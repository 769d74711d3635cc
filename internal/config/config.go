package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Result store backends
const (
	ResultStoreMongo  = "mongo"
	ResultStoreSQLite = "sqlite"
)

// Config is the server configuration. Values come from defaults, then an
// optional YAML file (CONFIG_PATH), then environment variables.
type Config struct {
	Port          string `yaml:"port"`
	PublicBaseURL string `yaml:"public_base_url"`
	DataDir       string `yaml:"data_dir"`

	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		URI string `yaml:"uri"`
	} `yaml:"redis"`
	Results struct {
		Store      string `yaml:"store"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"results"`

	Auth struct {
		HostUsername string `yaml:"host_username"`
		HostPassword string `yaml:"host_password"`
		JWTSecret    string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	CORS struct {
		AllowedOrigins string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Game GameConfig `yaml:"game"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	cfg := &Config{
		Port:          "8080",
		PublicBaseURL: "http://localhost:8080",
		DataDir:       "Data",
		Game:          DefaultGameConfig(),
	}
	cfg.Mongo.URI = "mongodb://localhost:27017"
	cfg.Mongo.Database = "riskierwas"
	cfg.Redis.URI = "localhost:6379"
	cfg.Results.Store = ResultStoreMongo
	cfg.Results.SQLitePath = "riskierwas.db"
	cfg.Auth.HostUsername = "admin"
	cfg.Auth.HostPassword = "password123"
	cfg.Auth.JWTSecret = "super-secret-key-change-in-production"
	cfg.CORS.AllowedOrigins = "*"
	return cfg
}

// Load builds the configuration for the server and the seeder
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
		log.Printf("Loaded config file %s", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads a YAML file over the defaults without looking at the environment
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.Redis.URI = getEnv("REDIS_URI", c.Redis.URI)
	c.Results.Store = strings.ToLower(getEnv("RESULT_STORE", c.Results.Store))
	c.Results.SQLitePath = getEnv("SQLITE_PATH", c.Results.SQLitePath)

	c.Auth.HostUsername = getEnv("HOST_USERNAME", c.Auth.HostUsername)
	c.Auth.HostPassword = getEnv("HOST_PASSWORD", c.Auth.HostPassword)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.CORS.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)

	c.Game.DecayInterval = getEnvDuration("DECAY_INTERVAL", c.Game.DecayInterval)
	c.Game.ProgressInterval = getEnvDuration("DECAY_PROGRESS_INTERVAL", c.Game.ProgressInterval)
	c.Game.ForfeitRule = strings.ToLower(getEnv("FORFEIT_RULE", c.Game.ForfeitRule))
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Results.Store {
	case ResultStoreMongo, ResultStoreSQLite:
	default:
		return fmt.Errorf("unknown result store %q", c.Results.Store)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	return c.Game.Validate()
}

// RedisAddr strips an optional redis:// scheme
func (c *Config) RedisAddr() string {
	return strings.TrimPrefix(c.Redis.URI, "redis://")
}

// DefaultBankPath is where the question bank is loaded from at startup
func (c *Config) DefaultBankPath() string {
	return filepath.Join(c.DataDir, "questions.json")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// Plain numbers are milliseconds
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("Warning: ignoring invalid %s=%q", key, val)
	return defaultVal
}
