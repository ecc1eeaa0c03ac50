package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gogotex/gogotex/backend/go-resource/internal/resource"
	"github.com/gogotex/gogotex/backend/go-resource/internal/storage"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Resource  ResourceConfig
	MinIO     storage.MinIOConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Gzip         bool
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// AuthConfig selects how mutating requests are authenticated: "none", "jwt"
// (HS256 with Secret) or "oidc" (Keycloak).
type AuthConfig struct {
	Mode     string
	Secret   string
	Keycloak KeycloakConfig
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

// ResourceConfig describes the served collection.
type ResourceConfig struct {
	Name string
	Path string
	Sort resource.Sort
	// History is the change-log collection; empty disables history.
	History string
	// HistoryBackend is "store" (same database as documents) or "minio".
	HistoryBackend string
}

// Resource converts the section into the core resource configuration.
func (r ResourceConfig) Resource() resource.Config {
	return resource.Config{Name: r.Name, Path: r.Path, Sort: r.Sort, History: r.History}
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(envFile())

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5020")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_GZIP", true)
	v.SetDefault("MONGODB_DATABASE", "gogotex")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("AUTH_MODE", "none")
	v.SetDefault("RESOURCE_NAME", "documents")
	v.SetDefault("RESOURCE_HISTORY_BACKEND", "store")
	v.SetDefault("MINIO_BUCKET", "resource-history")
	v.SetDefault("LOG_LEVEL", "info")

	order, err := ParseSort(v.GetString("RESOURCE_SORT"))
	if err != nil {
		return nil, fmt.Errorf("RESOURCE_SORT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Gzip:         v.GetBool("SERVER_GZIP"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Auth: AuthConfig{
			Mode:   strings.ToLower(v.GetString("AUTH_MODE")),
			Secret: os.Getenv("JWT_SECRET"),
			Keycloak: KeycloakConfig{
				URL:      v.GetString("KEYCLOAK_URL"),
				Realm:    v.GetString("KEYCLOAK_REALM"),
				ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
			},
		},
		Resource: ResourceConfig{
			Name:           v.GetString("RESOURCE_NAME"),
			Path:           v.GetString("RESOURCE_PATH"),
			Sort:           order,
			History:        v.GetString("RESOURCE_HISTORY"),
			HistoryBackend: strings.ToLower(v.GetString("RESOURCE_HISTORY_BACKEND")),
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Resource.Name == "" {
		return fmt.Errorf("RESOURCE_NAME must not be empty")
	}
	switch c.Auth.Mode {
	case "none":
	case "jwt":
		if c.Auth.Secret == "" {
			return fmt.Errorf("AUTH_MODE=jwt requires JWT_SECRET")
		}
	case "oidc":
		if c.Auth.Keycloak.URL == "" || c.Auth.Keycloak.ClientID == "" {
			return fmt.Errorf("AUTH_MODE=oidc requires KEYCLOAK_URL and KEYCLOAK_CLIENT_ID")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode)
	}
	switch c.Resource.HistoryBackend {
	case "store":
	case "minio":
		if c.Resource.History != "" && c.MinIO.Endpoint == "" {
			return fmt.Errorf("RESOURCE_HISTORY_BACKEND=minio requires MINIO_ENDPOINT")
		}
	default:
		return fmt.Errorf("unknown RESOURCE_HISTORY_BACKEND %q", c.Resource.HistoryBackend)
	}
	return nil
}

// ParseSort reads a comma separated sort spec. A field is ascending unless
// prefixed with "-" or suffixed with ":desc" (":asc", ":1" and ":-1" also work).
func ParseSort(spec string) (resource.Sort, error) {
	var out resource.Sort
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := resource.SortField{Field: part, Direction: resource.Ascending}
		if strings.HasPrefix(part, "-") {
			f.Field, f.Direction = part[1:], resource.Descending
		} else if name, dir, ok := strings.Cut(part, ":"); ok {
			f.Field = name
			switch strings.ToLower(dir) {
			case "asc", "1":
			case "desc", "-1":
				f.Direction = resource.Descending
			default:
				return nil, fmt.Errorf("bad direction %q for %q", dir, name)
			}
		}
		if f.Field == "" {
			return nil, fmt.Errorf("empty field in %q", spec)
		}
		out = append(out, f)
	}
	return out, nil
}

func envFile() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}
