package config

import (
	"errors"
	"os"
	"testing"
)

// validBaseConfig returns a Config with all required fields set for the
// given provider.
func validBaseConfig(provider string) *Config {
	cfg := &Config{
		Provider:       provider,
		ModelName:      "gemini-2.5-flash",
		EmbedderModel:  "gemini-embedding-001",
		TimeoutSeconds: 60,
		Generation: GenerationConfig{
			MaxOutputTokens: 1024,
			Temperature:     0.0,
			TopP:            1.0,
		},
		Fewshot: FewshotConfig{
			TopK:  3,
			Index: IndexMemory,
		},
		Warehouse: WarehouseConfig{
			Host:                "localhost",
			Port:                5439,
			Database:            "dev",
			User:                "awsuser",
			Password:            "test_password",
			SSLMode:             "require",
			MaxRows:             20,
			QueryTimeoutSeconds: 30,
		},
	}
	switch provider {
	case ProviderOllama:
		cfg.ModelName = "llama3.3"
		cfg.OllamaHost = "http://localhost:11434"
	case ProviderOpenAI:
		cfg.ModelName = "gpt-4o"
	}
	return cfg
}

// setEnvForProvider sets the required API key for the given provider and
// registers cleanup.
func setEnvForProvider(t *testing.T, provider string) {
	t.Helper()
	switch provider {
	case ProviderGemini, "":
		t.Setenv("GEMINI_API_KEY", "test-api-key")
	case ProviderOpenAI:
		t.Setenv("OPENAI_API_KEY", "test-openai-key")
	case ProviderOllama:
		// no key needed
	}
}

func TestValidateSuccess(t *testing.T) {
	providers := []string{"", ProviderGemini, ProviderOllama, ProviderOpenAI}

	for _, provider := range providers {
		name := provider
		if name == "" {
			name = "default"
		}
		t.Run(name, func(t *testing.T) {
			setEnvForProvider(t, provider)

			cfg := validBaseConfig(provider)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error with valid config (provider %q): %v", provider, err)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestValidateInvalidProvider(t *testing.T) {
	cfg := validBaseConfig("")
	cfg.Provider = "unsupported"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unsupported provider, got nil")
	}
	if !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("Validate() error = %v, want ErrInvalidProvider", err)
	}
}

func TestValidateProviderAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "gemini missing key", provider: ProviderGemini, wantErr: true},
		{name: "openai missing key", provider: ProviderOpenAI, wantErr: true},
		{name: "ollama no key needed", provider: ProviderOllama, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Isolate from the developer's environment.
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("OPENAI_API_KEY", "")
			os.Unsetenv("GEMINI_API_KEY")
			os.Unsetenv("OPENAI_API_KEY")

			cfg := validBaseConfig(tt.provider)
			err := cfg.Validate()

			if tt.wantErr && !errors.Is(err, ErrMissingAPIKey) {
				t.Errorf("Validate() error = %v, want ErrMissingAPIKey", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for provider %q: %v", tt.provider, err)
			}
		})
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Generation.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature negative",
			mutate:  func(c *Config) { c.Generation.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "max tokens zero",
			mutate:  func(c *Config) { c.Generation.MaxOutputTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "top_p zero",
			mutate:  func(c *Config) { c.Generation.TopP = 0 },
			wantErr: ErrInvalidTopP,
		},
		{
			name:    "top_p above one",
			mutate:  func(c *Config) { c.Generation.TopP = 1.1 },
			wantErr: ErrInvalidTopP,
		},
		{
			name:    "top_k zero",
			mutate:  func(c *Config) { c.Fewshot.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "top_k too large",
			mutate:  func(c *Config) { c.Fewshot.TopK = 11 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "unknown index backend",
			mutate:  func(c *Config) { c.Fewshot.Index = "faiss" },
			wantErr: ErrInvalidIndex,
		},
		{
			name:    "empty host",
			mutate:  func(c *Config) { c.Warehouse.Host = "" },
			wantErr: ErrInvalidWarehouseHost,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Warehouse.Port = 70000 },
			wantErr: ErrInvalidWarehousePort,
		},
		{
			name:    "empty database",
			mutate:  func(c *Config) { c.Warehouse.Database = "" },
			wantErr: ErrInvalidWarehouseDatabase,
		},
		{
			name:    "empty user",
			mutate:  func(c *Config) { c.Warehouse.User = "" },
			wantErr: ErrInvalidWarehouseUser,
		},
		{
			name:    "empty password",
			mutate:  func(c *Config) { c.Warehouse.Password = "" },
			wantErr: ErrInvalidWarehousePassword,
		},
		{
			name:    "deprecated sslmode",
			mutate:  func(c *Config) { c.Warehouse.SSLMode = "prefer" },
			wantErr: ErrInvalidWarehouseSSLMode,
		},
		{
			name:    "max rows zero",
			mutate:  func(c *Config) { c.Warehouse.MaxRows = 0 },
			wantErr: ErrInvalidMaxRows,
		},
		{
			name:    "request timeout zero",
			mutate:  func(c *Config) { c.TimeoutSeconds = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "query timeout zero",
			mutate:  func(c *Config) { c.Warehouse.QueryTimeoutSeconds = 0 },
			wantErr: ErrInvalidTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvForProvider(t, ProviderGemini)

			cfg := validBaseConfig(ProviderGemini)
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
