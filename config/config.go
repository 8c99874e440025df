package config

import (
	"log"

	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	Scheme          string `mapstructure:"scheme"`
	BaseURL         string `mapstructure:"base_url"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type PostgresConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnIdleTimeout int    `mapstructure:"conn_idle_timeout"`
	QueryTimeout    int    `mapstructure:"query_timeout"`
}

type RedisConfig struct {
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type CacheConfig struct {
	URLTTLSeconds     int   `mapstructure:"url_ttl_seconds"`
	PopularTTLSeconds int   `mapstructure:"popular_ttl_seconds"`
	PopularThreshold  int64 `mapstructure:"popular_threshold"`
	ClickTTLSeconds   int   `mapstructure:"click_ttl_seconds"`
	LocalEnabled      bool  `mapstructure:"local_enabled"`
	LocalMaxSizeMB    int   `mapstructure:"local_max_size_mb"`
	LocalTTLSeconds   int   `mapstructure:"local_ttl_seconds"`
	LocalCounterSize  int   `mapstructure:"local_counter_size"`
}

// RateWindow is one fixed-window budget: Max requests per Window seconds.
type RateWindow struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	Max           int `mapstructure:"max"`
}

type RateLimitConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	General RateWindow `mapstructure:"general"`
	Auth    RateWindow `mapstructure:"auth"`
	Create  RateWindow `mapstructure:"create"`
}

type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	TokenTTLDays int    `mapstructure:"token_ttl_days"`
	BcryptCost   int    `mapstructure:"bcrypt_cost"`
}

type ShortCodeConfig struct {
	Length     int `mapstructure:"length"`
	MaxRetries int `mapstructure:"max_retries"`
}

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	WebServer WebServerConfig `mapstructure:"webserver"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	ShortCode ShortCodeConfig `mapstructure:"shortcode"`
}

func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("SHORTLINK")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
		// No config file is fine, defaults plus env cover everything
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

func setDefaults() {
	viper.SetDefault("log_level", "info")

	// WebServer defaults
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.ip", "127.0.0.1")
	viper.SetDefault("webserver.scheme", "http")
	viper.SetDefault("webserver.base_url", "")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 15)
	viper.SetDefault("webserver.shutdown_timeout", 30)

	// Postgres defaults
	viper.SetDefault("postgres.dsn", "postgres://localhost:5432/shortlink?sslmode=disable")
	viper.SetDefault("postgres.max_open_conns", 20)
	viper.SetDefault("postgres.conn_idle_timeout", 30)
	viper.SetDefault("postgres.query_timeout", 5)

	// Redis defaults
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.operation_timeout", 2)

	// Cache defaults
	viper.SetDefault("cache.url_ttl_seconds", 3600)     // 1 hour
	viper.SetDefault("cache.popular_ttl_seconds", 7200) // 2 hours for hot links
	viper.SetDefault("cache.popular_threshold", 100)
	viper.SetDefault("cache.click_ttl_seconds", 86400) // 24 hours
	viper.SetDefault("cache.local_enabled", true)
	viper.SetDefault("cache.local_max_size_mb", 64)
	viper.SetDefault("cache.local_ttl_seconds", 60)
	viper.SetDefault("cache.local_counter_size", 100000)

	// RateLimit defaults
	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.general.window_seconds", 900)
	viper.SetDefault("ratelimit.general.max", 100)
	viper.SetDefault("ratelimit.auth.window_seconds", 900)
	viper.SetDefault("ratelimit.auth.max", 5)
	viper.SetDefault("ratelimit.create.window_seconds", 60)
	viper.SetDefault("ratelimit.create.max", 10)

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_ttl_days", 7)
	viper.SetDefault("auth.bcrypt_cost", 12)

	// ShortCode defaults
	viper.SetDefault("shortcode.length", 8)
	viper.SetDefault("shortcode.max_retries", 5)
}
