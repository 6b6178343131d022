// Package config parses and loads the service configuration from the
// YAML file pointed at by CONFIG_PATH, with environment overrides
// handled by cleanenv.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full service configuration.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_DSN"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	UploadsDir              string `yaml:"uploads_dir" env-default:"./uploads"`
	ProvenanceURL           string `yaml:"provenance_url"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitConnection        `yaml:"rabbit_connection"`
	JWTToken                `yaml:"jwttoken"`
	Session                 `yaml:"session"`
	Bootstrap               `yaml:"bootstrap"`
}

// HTTPServer configures the listener.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection configures the session store backend.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitConnection configures the review-event publisher. Leave the URL
// empty to disable publishing.
type RabbitConnection struct {
	URL            string        `yaml:"url"`
	ConnectRetries int           `yaml:"connect_retries" env-default:"5"`
	RetryDelay     time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken configures bearer-token signing.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"30m"`
}

// Session configures opaque session references.
type Session struct {
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"168h"` // 7 days
}

// Bootstrap holds the platform-admin account provisioned idempotently at
// startup.
type Bootstrap struct {
	AdminEmail    string `yaml:"admin_email" env:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
	AdminName     string `yaml:"admin_name" env-default:"Platform Admin"`
}

// MustLoad loads the config from CONFIG_PATH or exits.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
