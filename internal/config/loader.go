package config

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/rpattn/esgdash/internal/db"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// StorageConfig points at the S3 compatible document bucket.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	URLTTL    time.Duration
	PathStyle bool
}

// DefaultJWTSecret is the development signing secret of DefaultConfig.
const DefaultJWTSecret = "change-me"

// ErrDefaultJWTSecret is returned when auth is enforced without a real secret.
var ErrDefaultJWTSecret = errors.New("auth.required is set but auth.jwt_secret is empty or the development default")

// AuthConfig controls session tokens.
type AuthConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
	Required   bool
}

// UsesDefaultSecret reports whether tokens would be signed with an empty or
// development secret.
func (c AuthConfig) UsesDefaultSecret() bool {
	secret := strings.TrimSpace(c.JWTSecret)
	return secret == "" || secret == DefaultJWTSecret
}

// Validate refuses enforced auth with a guessable signing secret.
func (c AuthConfig) Validate() error {
	if c.Required && c.UsesDefaultSecret() {
		return ErrDefaultJWTSecret
	}
	return nil
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Config is the full process configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// DefaultConfig returns defaults suitable for local development.
func DefaultConfig() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
		Storage: StorageConfig{
			Bucket: "esg-documents",
			Region: "eu-central-1",
			URLTTL: 15 * time.Minute,
		},
		Auth: AuthConfig{
			JWTSecret:  DefaultJWTSecret,
			SessionTTL: 12 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

var boundKeys = []string{
	"database.host", "database.port", "database.user", "database.password",
	"database.dbname", "database.sslmode", "database.max_conns",
	"server.addr", "server.allowed_origins", "server.read_timeout",
	"server.write_timeout", "server.max_upload_bytes",
	"storage.bucket", "storage.region", "storage.endpoint", "storage.access_key",
	"storage.secret_key", "storage.url_ttl", "storage.path_style",
	"auth.jwt_secret", "auth.session_ttl", "auth.required",
	"log.level", "log.format",
	"metrics.enabled", "metrics.path",
}

// Load reads config.yaml from configPath, then applies ESG_ prefixed
// environment overrides (ESG_DATABASE_HOST, ESG_AUTH_JWT_SECRET, ...).
func Load(configPath string) (Config, error) {
	// Start with default
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("ESG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return cfg, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		logrus.WithField("path", configPath).Info("no config.yaml found, using defaults and env vars")
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Info("loaded config file")
	}

	// Override defaults if values exist
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
	if v.IsSet("database.max_conns") {
		cfg.Database.MaxConns = v.GetInt32("database.max_conns")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = splitList(v.GetStringSlice("server.allowed_origins"))
	}
	if v.IsSet("server.read_timeout") {
		cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	}
	if v.IsSet("server.write_timeout") {
		cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	}
	if v.IsSet("server.max_upload_bytes") {
		cfg.Server.MaxUploadBytes = v.GetInt64("server.max_upload_bytes")
	}

	if v.IsSet("storage.bucket") {
		cfg.Storage.Bucket = v.GetString("storage.bucket")
	}
	if v.IsSet("storage.region") {
		cfg.Storage.Region = v.GetString("storage.region")
	}
	if v.IsSet("storage.endpoint") {
		cfg.Storage.Endpoint = v.GetString("storage.endpoint")
	}
	if v.IsSet("storage.access_key") {
		cfg.Storage.AccessKey = v.GetString("storage.access_key")
	}
	if v.IsSet("storage.secret_key") {
		cfg.Storage.SecretKey = v.GetString("storage.secret_key")
	}
	if v.IsSet("storage.url_ttl") {
		cfg.Storage.URLTTL = v.GetDuration("storage.url_ttl")
	}
	if v.IsSet("storage.path_style") {
		cfg.Storage.PathStyle = v.GetBool("storage.path_style")
	}

	if v.IsSet("auth.jwt_secret") {
		cfg.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	}
	if v.IsSet("auth.session_ttl") {
		cfg.Auth.SessionTTL = v.GetDuration("auth.session_ttl")
	}
	if v.IsSet("auth.required") {
		cfg.Auth.Required = v.GetBool("auth.required")
	}

	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}

	if v.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	}
	if v.IsSet("metrics.path") {
		cfg.Metrics.Path = v.GetString("metrics.path")
	}

	return cfg, nil
}

// splitList accepts both a YAML list and a comma separated env value.
func splitList(items []string) []string {
	out := []string{}
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ConfigureLogger applies the log section to the standard logrus logger.
func ConfigureLogger(cfg LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
