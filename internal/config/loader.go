package config

import (
	"fmt"
	"time"

	"github.com/rotaops/ingest/internal/db"
	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

// UploadConfig holds the ingestion limits and timeouts.
type UploadConfig struct {
	MaxFiles        int
	MaxFileBytes    int64
	BatchSize       int
	RateLimitMax    int
	RateLimitWindow time.Duration
	RPCTimeout      time.Duration
	RefreshTimeout  time.Duration
}

// AppConfig aggregates all service configuration.
type AppConfig struct {
	Database db.Config
	Server   ServerConfig
	Upload   UploadConfig
}

// DefaultAppConfig returns the built-in defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Upload: UploadConfig{
			MaxFiles:        10,
			MaxFileBytes:    50 << 20,
			BatchSize:       500,
			RateLimitMax:    5,
			RateLimitWindow: 10 * time.Minute,
			RPCTimeout:      120 * time.Second,
			RefreshTimeout:  600 * time.Second,
		},
	}
}

// Load reads config.yaml from configPath, with environment overrides.
func Load(configPath string) (AppConfig, error) {
	// Start with defaults
	cfg := DefaultAppConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()         // allow environment overrides
	v.SetEnvPrefix("INGEST") // map env vars like INGEST_DATABASE_HOST

	// Map nested keys to flat env vars
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.port")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if v.IsSet("upload.max_files") {
		cfg.Upload.MaxFiles = v.GetInt("upload.max_files")
	}
	if v.IsSet("upload.max_file_bytes") {
		cfg.Upload.MaxFileBytes = v.GetInt64("upload.max_file_bytes")
	}
	if v.IsSet("upload.batch_size") {
		cfg.Upload.BatchSize = v.GetInt("upload.batch_size")
	}
	if v.IsSet("upload.rate_limit_max") {
		cfg.Upload.RateLimitMax = v.GetInt("upload.rate_limit_max")
	}
	if v.IsSet("upload.rate_limit_window") {
		cfg.Upload.RateLimitWindow = v.GetDuration("upload.rate_limit_window")
	}
	if v.IsSet("upload.rpc_timeout") {
		cfg.Upload.RPCTimeout = v.GetDuration("upload.rpc_timeout")
	}
	if v.IsSet("upload.refresh_timeout") {
		cfg.Upload.RefreshTimeout = v.GetDuration("upload.refresh_timeout")
	}

	return cfg, nil
}
