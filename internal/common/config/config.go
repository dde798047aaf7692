// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Catalog  CatalogConfig           `mapstructure:"catalog"`
	Dispatch DispatchConfig          `mapstructure:"dispatch"`
	Borehole BoreholeConfig          `mapstructure:"borehole"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Query Pipeline Configuration ---

// Catalog backends.
const (
	CatalogStatic        = "static"
	CatalogPostgres      = "postgres"
	CatalogElasticsearch = "elasticsearch"
)

// CatalogConfig selects where endpoint metadata comes from.
type CatalogConfig struct {
	Backend   string           `mapstructure:"backend"`
	Index     string           `mapstructure:"index"`     // elasticsearch
	Table     string           `mapstructure:"table"`     // postgres
	CacheTTL  int              `mapstructure:"cache_ttl"` // seconds, 0 disables the redis cache
	Endpoints []EndpointConfig `mapstructure:"endpoints"`
}

// EndpointConfig is a statically configured online resource.
type EndpointConfig struct {
	URL          string `mapstructure:"url"`
	ResourceType string `mapstructure:"resource_type"`
	TypeName     string `mapstructure:"type_name"`
}

type DispatchConfig struct {
	MaxWorkers         int `mapstructure:"max_workers"`
	RequestTimeout     int `mapstructure:"request_timeout"` // milliseconds
	DefaultMaxFeatures int `mapstructure:"default_max_features"`
}

type BoreholeConfig struct {
	Profile                 string `mapstructure:"profile"`
	OmitGeometry            bool   `mapstructure:"omit_geometry"`
	BoreholeTypeName        string `mapstructure:"borehole_type_name"`
	ScannedBoreholeTypeName string `mapstructure:"scanned_borehole_type_name"`
	TSGCacheURL             string `mapstructure:"tsg_cache_url"`
	TSGServiceMessage       string `mapstructure:"tsg_service_message"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"` // empty disables export
	ServiceName    string `mapstructure:"service_name"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
