// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	AI            AIConfig                `mapstructure:"ai"`
	Chat          ChatConfig              `mapstructure:"chat"`
	Tools         ToolsConfig             `mapstructure:"tools"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// ObservabilityConfig enables optional trace export. Metrics are always on.
type ObservabilityConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
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
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
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

// --- AI Configuration ---

// AIConfig holds provider credentials, the ordered per-use-case provider
// routes and the assessment decision thresholds. It is unmarshalled once at
// startup and passed by reference; nothing reads it through global state.
type AIConfig struct {
	Providers  ProvidersConfig          `mapstructure:"providers"`
	UseCases   map[string]UseCaseConfig `mapstructure:"use_cases"`
	Assessment AssessmentConfig         `mapstructure:"assessment"`
}

type ProvidersConfig struct {
	OpenAI    ProviderCredentials `mapstructure:"openai"`
	Anthropic ProviderCredentials `mapstructure:"anthropic"`
	Gemini    ProviderCredentials `mapstructure:"gemini"`
}

type ProviderCredentials struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // override for tests/proxies
}

// UseCaseConfig is the ordered fallback route list for one named AI use case
// (e.g. "assessment", "chat", "vision"), plus its call defaults.
type UseCaseConfig struct {
	Routes         []RouteConfig `mapstructure:"routes"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	AttemptTimeout int           `mapstructure:"attempt_timeout"` // milliseconds
	ChainTimeout   int           `mapstructure:"chain_timeout"`   // milliseconds, bounds the whole fallback chain
}

// RouteConfig is one (provider, model) pair in a use-case fallback chain.
type RouteConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// AssessmentConfig holds the decision thresholds for the assessment pipeline.
type AssessmentConfig struct {
	AutoApproveThreshold  int     `mapstructure:"auto_approve_threshold"`  // 0-100
	PassportPassThreshold float64 `mapstructure:"passport_pass_threshold"` // 0-10
	PhotoMatchConfidence  float64 `mapstructure:"photo_match_confidence"`  // 0-1
}

// --- Conversation Configuration ---

// ChatConfig bounds the conversation orchestrator loop.
type ChatConfig struct {
	MaxIterations  int `mapstructure:"max_iterations"`
	HistoryLimit   int `mapstructure:"history_limit"`   // most recent N turns sent to the model
	SessionTTLMins int `mapstructure:"session_ttl_min"` // redis session expiry
}

// ToolsConfig points at the tool catalogue registry file.
type ToolsConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
}

// NotificationConfig holds settings for notification delivery.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled           bool   `mapstructure:"enabled"`
		PriorityThreshold string `mapstructure:"priority_threshold"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
