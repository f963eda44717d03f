// Package config loads the routing service configuration from the
// environment (prefix ROUTING_) and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ROUTING"

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

// JWTConfig holds access token settings for the admin endpoints.
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
	Issuer    string
}

// KafkaConfig holds broker settings. Events are disabled when Enabled is false.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	GroupPrefix string
}

// RoutingConfig configures the routing provider.
type RoutingConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PlanningConfig configures the upstream planning API.
type PlanningConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// ServiceConfig holds all configuration for the routing service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	DBConfig       DatabaseConfig
	JWTConfig      JWTConfig
	KafkaConfig    KafkaConfig
	RoutingConfig  RoutingConfig
	PlanningConfig PlanningConfig
}

// Load reads configuration from environment variables, after loading .env
// from the working directory when present. Variables already set in the
// environment win over .env.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.port", "8080")
	v.SetDefault("app.env", "development")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "routing")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.migrations_dir", "migrations")

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.issuer", "service-routing")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "")

	v.SetDefault("routing.base_url", "http://router.project-osrm.org/route/v1/driving/")
	v.SetDefault("routing.timeout", "10s")

	v.SetDefault("planning.base_url", "")
	v.SetDefault("planning.token", "")
	v.SetDefault("planning.timeout", "15s")
}

// FromViper builds a ServiceConfig from v.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:   servicePort(v.GetString("service.port")),
		AppEnv: v.GetString("app.env"),
		DBConfig: DatabaseConfig{
			Host:            v.GetString("db.host"),
			Port:            v.GetString("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			DBName:          v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			MigrationsDir:   v.GetString("db.migrations_dir"),
		},
		JWTConfig: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			AccessTTL: v.GetDuration("jwt.access_ttl"),
			Issuer:    v.GetString("jwt.issuer"),
		},
		KafkaConfig: KafkaConfig{
			Enabled:     v.GetBool("kafka.enabled"),
			Brokers:     splitList(v.GetString("kafka.brokers")),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		RoutingConfig: RoutingConfig{
			BaseURL: v.GetString("routing.base_url"),
			Timeout: v.GetDuration("routing.timeout"),
		},
		PlanningConfig: PlanningConfig{
			BaseURL: strings.TrimRight(v.GetString("planning.base_url"), "/"),
			Token:   v.GetString("planning.token"),
			Timeout: v.GetDuration("planning.timeout"),
		},
	}

	if cfg.KafkaConfig.Enabled && len(cfg.KafkaConfig.Brokers) == 0 {
		return nil, fmt.Errorf("kafka enabled but %s_KAFKA_BROKERS is empty", envPrefix)
	}
	if cfg.AppEnv == "production" && cfg.JWTConfig.Secret == "change-me" {
		return nil, fmt.Errorf("%s_JWT_SECRET must be set in production", envPrefix)
	}
	return cfg, nil
}

func servicePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
