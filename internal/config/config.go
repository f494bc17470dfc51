package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	TestDBName string `mapstructure:"test_name"` // Separate database for testing
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// RedisConfig enables the category cache and the auth rate limiter when Addr is set
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AMQPConfig enables transaction event publishing when URL is set
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
	Block  time.Duration `mapstructure:"block"`
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// defaults and the environment variable bound to each key
var settings = []struct {
	key string
	env string
	def interface{}
}{
	{"server.port", "SERVER_PORT", 8080},
	{"server.mode", "GIN_MODE", "release"},
	{"server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT", 10 * time.Second},

	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", 5432},
	{"database.username", "DB_USERNAME", "postgres"},
	{"database.password", "DB_PASSWORD", "password"},
	{"database.name", "DB_NAME", "expenses"},
	{"database.sslmode", "DB_SSLMODE", "disable"},
	{"database.test_name", "TEST_DB_NAME", "expenses_test"},

	{"auth.jwt_secret", "JWT_SECRET", "your-secret-key-here"},
	{"auth.token_ttl", "JWT_TTL", 24 * time.Hour},
	{"auth.bcrypt_cost", "BCRYPT_COST", 10},

	{"redis.addr", "REDIS_ADDR", ""},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},
	{"redis.cache_ttl", "REDIS_CACHE_TTL", 10 * time.Minute},

	{"amqp.url", "AMQP_URL", ""},
	{"amqp.exchange", "AMQP_EXCHANGE", "expenses.events"},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.development", "LOG_DEVELOPMENT", false},

	{"rate_limit.limit", "AUTH_RATE_LIMIT", 10},
	{"rate_limit.window", "AUTH_RATE_WINDOW", time.Minute},
	{"rate_limit.block", "AUTH_RATE_BLOCK", 5 * time.Minute},
}

// LoadConfig loads the configuration from environment variables, layered
// over an optional YAML file named by CONFIG_FILE.
func LoadConfig() (*Config, error) {
	v := viper.New()

	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", s.env, err)
		}
	}

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, fmt.Errorf("bind env CONFIG_FILE: %w", err)
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate returns every configuration problem at once
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid server port %d: must be between 1 and 65535", c.Server.Port))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("invalid gin mode %q: must be debug, release or test", c.Server.Mode))
	}
	if c.Database.Host == "" {
		problems = append(problems, "database host cannot be empty")
	}
	if c.Database.DBName == "" {
		problems = append(problems, "database name cannot be empty")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "JWT secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid token ttl %v: must be positive", c.Auth.TokenTTL))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.Auth.BcryptCost))
	}
	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		problems = append(problems, "AMQP exchange cannot be empty when AMQP URL is provided")
	}
	if c.Redis.Addr != "" && c.RateLimit.Limit < 1 {
		problems = append(problems, fmt.Sprintf("invalid auth rate limit %d: must be at least 1", c.RateLimit.Limit))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
