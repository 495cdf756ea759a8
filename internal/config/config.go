package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                int      `mapstructure:"port"`
	MongoURI            string   `mapstructure:"mongo_uri"`
	MongoDBName         string   `mapstructure:"mongo_db_name"`
	LogLevel            string   `mapstructure:"log_level"`
	LogFile             string   `mapstructure:"log_file"` // empty = stderr only
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
	Namespaces          []string `mapstructure:"namespaces"`        // namespaces scanned for pods/deployments
	PrimaryNamespace    string   `mapstructure:"primary_namespace"` // namespace holding the chat platform workloads
	StoreNamespace      string   `mapstructure:"store_namespace"`   // mongodb health bucket; empty = primary
	SearchNamespace     string   `mapstructure:"search_namespace"`  // meilisearch health bucket; empty = primary
	KubeconfigPath      string   `mapstructure:"kubeconfig_path"`
	KubeContext         string   `mapstructure:"kube_context"`
	K8sTimeoutSec       int      `mapstructure:"k8s_timeout_sec"` // 0 = request context only
	AllowedCommands     []string `mapstructure:"allowed_commands"`
	TracingEndpoint     string   `mapstructure:"tracing_endpoint"` // empty = tracing disabled
	TracingProtocol     string   `mapstructure:"tracing_protocol"` // http or grpc
	TracingInsecure     bool     `mapstructure:"tracing_insecure"`
	TracingSamplingRate float64  `mapstructure:"tracing_sampling_rate"`
	MaxBodyBytes        int64    `mapstructure:"max_body_bytes"`
	RateLimitEnabled    bool     `mapstructure:"rate_limit_enabled"`
	ShutdownTimeoutSec  int      `mapstructure:"shutdown_timeout_sec"`

	// AuditRetentionDays > 0 enables the periodic purge of older audit entries.
	AuditRetentionDays        int `mapstructure:"audit_retention_days"`
	AuditRetentionIntervalSec int `mapstructure:"audit_retention_interval_sec"`
}

// Load reads configuration from defaults, an optional config.yaml, an optional
// .env file and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/admin-console/")
	v.AddConfigPath(".")

	v.SetDefault("port", 3090)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "LibreChat")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("namespaces", []string{"librechat"})
	v.SetDefault("primary_namespace", "librechat")
	v.SetDefault("store_namespace", "")
	v.SetDefault("search_namespace", "")
	v.SetDefault("kubeconfig_path", "")
	v.SetDefault("kube_context", "")
	v.SetDefault("k8s_timeout_sec", 30)
	v.SetDefault("allowed_commands", []string{"get", "describe", "logs", "top", "explain"})
	v.SetDefault("tracing_endpoint", "")
	v.SetDefault("tracing_protocol", "http")
	v.SetDefault("tracing_insecure", true)
	v.SetDefault("tracing_sampling_rate", 1.0)
	v.SetDefault("max_body_bytes", 1024*1024)
	v.SetDefault("rate_limit_enabled", true)
	v.SetDefault("shutdown_timeout_sec", 15)
	v.SetDefault("audit_retention_days", 0)
	v.SetDefault("audit_retention_interval_sec", 3600)

	// The deployment manifests of the chat platform already export these
	// unprefixed names, so they are bound explicitly.
	_ = v.BindEnv("mongo_uri", "MONGO_URI")
	_ = v.BindEnv("mongo_db_name", "MONGO_DB_NAME")
	_ = v.BindEnv("port", "PORT")

	v.SetEnvPrefix("ADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)
	cfg.Namespaces = cleanList(cfg.Namespaces)
	cfg.AllowedCommands = cleanList(cfg.AllowedCommands)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.MongoURI) == "" {
		return errors.New("mongo_uri is required")
	}
	if strings.TrimSpace(c.MongoDBName) == "" {
		return errors.New("mongo_db_name is required")
	}
	if len(c.Namespaces) == 0 {
		return errors.New("at least one namespace is required")
	}
	if c.TracingProtocol != "" && c.TracingProtocol != "http" && c.TracingProtocol != "grpc" {
		return fmt.Errorf("invalid tracing_protocol %q", c.TracingProtocol)
	}
	if c.AuditRetentionDays < 0 {
		return fmt.Errorf("invalid audit_retention_days %d", c.AuditRetentionDays)
	}
	if c.PrimaryNamespace == "" {
		c.PrimaryNamespace = c.Namespaces[0]
	}
	return nil
}

// cleanList trims comma-split env values and drops empties.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
