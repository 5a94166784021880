// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override; legacy REDSHIFT_* names and
//     DATABASE_URL are honored for the warehouse block)
//  2. Config file (~/.sqlsage/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Model: provider selection, model and embedder names
//   - Generation: sampling parameters for SQL generation
//   - Fewshot: example corpus location and selection parameters
//   - Warehouse: connection and execution limits (see storage.go)
//   - Tracing: optional OTLP trace export
//
// Sensitive data (the warehouse password) is never logged; MarshalJSON masks
// it. Validation uses sentinel errors checkable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max output tokens")

	// ErrInvalidTopP indicates the nucleus sampling cutoff is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidTopK indicates the example selection count is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidIndex indicates an unknown example index backend.
	ErrInvalidIndex = errors.New("invalid example index")

	// ErrInvalidWarehouseHost indicates the warehouse host is invalid.
	ErrInvalidWarehouseHost = errors.New("invalid warehouse host")

	// ErrInvalidWarehousePort indicates the warehouse port is out of range.
	ErrInvalidWarehousePort = errors.New("invalid warehouse port")

	// ErrInvalidWarehouseDatabase indicates the warehouse database name is invalid.
	ErrInvalidWarehouseDatabase = errors.New("invalid warehouse database name")

	// ErrInvalidWarehouseUser indicates the warehouse user is invalid.
	ErrInvalidWarehouseUser = errors.New("invalid warehouse user")

	// ErrInvalidWarehousePassword indicates the warehouse password is invalid.
	ErrInvalidWarehousePassword = errors.New("invalid warehouse password")

	// ErrInvalidWarehouseSSLMode indicates the warehouse SSL mode is invalid.
	ErrInvalidWarehouseSSLMode = errors.New("invalid warehouse SSL mode")

	// ErrInvalidMaxRows indicates the displayed-row cap is out of range.
	ErrInvalidMaxRows = errors.New("invalid max rows")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Example index backends used in Config.Fewshot.Index.
const (
	IndexMemory   = "memory"
	IndexPGVector = "pgvector"
)

// DefaultEmbedderModel is the default Gemini embedder model.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation to 768 via OutputDimensionality; the pgvector example index
// schema uses 768 dimensions (see fewshot.VectorDimension).
const DefaultEmbedderModel = "gemini-embedding-001"

// GenerationConfig holds the sampling parameters passed to the model on
// every generation call. These are the only recognized generation options.
type GenerationConfig struct {
	MaxOutputTokens int     `mapstructure:"max_output_tokens" json:"max_output_tokens"`
	Temperature     float64 `mapstructure:"temperature" json:"temperature"`
	TopP            float64 `mapstructure:"top_p" json:"top_p"`
}

// FewshotConfig controls the example corpus and similarity selection.
type FewshotConfig struct {
	// ExamplesPath points at a YAML corpus file. Empty means the corpus
	// embedded in the binary.
	ExamplesPath string `mapstructure:"examples_path" json:"examples_path"`
	// TopK is the number of examples selected per question.
	TopK int `mapstructure:"top_k" json:"top_k"`
	// Index selects the vector index backend: "memory" or "pgvector".
	Index string `mapstructure:"index" json:"index"`
}

// WarehouseConfig holds the analytical database connection and execution
// limits. Redshift and plain PostgreSQL both speak the pgx wire protocol.
type WarehouseConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Database string `mapstructure:"database" json:"database"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"` // SENSITIVE: masked in MarshalJSON
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`

	// MaxRows caps the rows retained for display; the executor drains but
	// does not keep anything beyond it.
	MaxRows int `mapstructure:"max_rows" json:"max_rows"`
	// Preflight enables the server-side syntax check before execution.
	Preflight bool `mapstructure:"preflight" json:"preflight"`
	// QueryTimeoutSeconds bounds a single statement.
	QueryTimeoutSeconds int `mapstructure:"query_timeout_seconds" json:"query_timeout_seconds"`
}

// MarshalJSON masks the password so the nested struct is safe to log.
func (w WarehouseConfig) MarshalJSON() ([]byte, error) {
	type alias WarehouseConfig
	a := alias(w)
	a.Password = maskSecret(a.Password)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal warehouse config: %w", err)
	}
	return data, nil
}

// TracingConfig configures optional OTLP/HTTP trace export. An empty
// endpoint disables tracing entirely.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	Service     string `mapstructure:"service" json:"service"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON; when
// adding new secrets, update the relevant MarshalJSON.
type Config struct {
	// Model provider and names
	Provider      string `mapstructure:"provider" json:"provider"`   // "gemini" (default), "ollama", "openai"
	ModelName     string `mapstructure:"model" json:"model"`         // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	EmbedderModel string `mapstructure:"embedder" json:"embedder"`   // e.g. "gemini-embedding-001"
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"` // only used when provider is "ollama"

	// TimeoutSeconds bounds one whole answer request (selection through
	// formatting) when the caller supplies no deadline.
	TimeoutSeconds int `mapstructure:"timeout_seconds" json:"timeout_seconds"`

	Generation GenerationConfig `mapstructure:"generation" json:"generation"`
	Fewshot    FewshotConfig    `mapstructure:"fewshot" json:"fewshot"`
	Warehouse  WarehouseConfig  `mapstructure:"warehouse" json:"warehouse"`
	Tracing    TracingConfig    `mapstructure:"tracing" json:"tracing"`
	Log        LogConfig        `mapstructure:"log" json:"log"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Configuration directory: ~/.sqlsage/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sqlsage")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, if set, overrides the whole warehouse connection block
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Model defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model", "gemini-2.5-flash")
	viper.SetDefault("embedder", DefaultEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("timeout_seconds", 60)

	// Generation defaults: deterministic-leaning, SQL is not a creative task
	viper.SetDefault("generation.max_output_tokens", 1024)
	viper.SetDefault("generation.temperature", 0.0)
	viper.SetDefault("generation.top_p", 1.0)

	// Few-shot selection defaults
	viper.SetDefault("fewshot.examples_path", "")
	viper.SetDefault("fewshot.top_k", 3)
	viper.SetDefault("fewshot.index", IndexMemory)

	// Warehouse defaults: Redshift conventions (port 5439, SSL required).
	// The password has no default; it must come from config or environment.
	viper.SetDefault("warehouse.host", "localhost")
	viper.SetDefault("warehouse.port", 5439)
	viper.SetDefault("warehouse.database", "dev")
	viper.SetDefault("warehouse.user", "awsuser")
	viper.SetDefault("warehouse.sslmode", "require")
	viper.SetDefault("warehouse.max_rows", 20)
	viper.SetDefault("warehouse.preflight", true)
	viper.SetDefault("warehouse.query_timeout_seconds", 30)

	// Tracing defaults: disabled until an endpoint is configured
	viper.SetDefault("tracing.endpoint", "")
	viper.SetDefault("tracing.service", "sqlsage")
	viper.SetDefault("tracing.environment", "dev")

	// Logging defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)
}

// bindEnvVariables binds environment variables explicitly. The warehouse
// keys also accept the legacy REDSHIFT_* names used by earlier deployments
// of this pipeline.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't
	// fail). If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key string, envVars ...string) {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %v: %v", key, envVars, err))
		}
	}

	mustBind("provider", "SQLSAGE_PROVIDER")
	mustBind("model", "SQLSAGE_MODEL")
	mustBind("embedder", "SQLSAGE_EMBEDDER")
	mustBind("ollama_host", "SQLSAGE_OLLAMA_HOST")

	mustBind("fewshot.examples_path", "SQLSAGE_EXAMPLES_PATH")

	mustBind("warehouse.host", "SQLSAGE_WAREHOUSE_HOST", "REDSHIFT_HOST")
	mustBind("warehouse.port", "SQLSAGE_WAREHOUSE_PORT", "REDSHIFT_PORT")
	mustBind("warehouse.database", "SQLSAGE_WAREHOUSE_DATABASE", "REDSHIFT_DB")
	mustBind("warehouse.user", "SQLSAGE_WAREHOUSE_USER", "REDSHIFT_USER")
	mustBind("warehouse.password", "SQLSAGE_WAREHOUSE_PASSWORD", "REDSHIFT_PASSWORD")
	mustBind("warehouse.sslmode", "SQLSAGE_WAREHOUSE_SSLMODE")

	mustBind("tracing.endpoint", "SQLSAGE_OTLP_ENDPOINT")

	// NOTE: GEMINI_API_KEY and OPENAI_API_KEY are read directly by the
	// Genkit provider plugins, not via Viper. Validate() checks their
	// presence based on the selected provider.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 bytes or
// fewer are fully masked; longer ones show the first and last 2 characters
// for debug utility. This defends against accidental logging, nothing more:
// if logs are compromised, rotate the secret.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler; the warehouse block masks its own
// password via WarehouseConfig.MarshalJSON.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	data, err := json.Marshal(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// RequestTimeout returns the whole-request deadline as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// QueryTimeout returns the single-statement deadline as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Warehouse.QueryTimeoutSeconds) * time.Second
}
