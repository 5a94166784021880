package config

import (
	"fmt"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and API key validation. Empty means gemini, matching
	// FullModelName and the app wiring.
	switch c.Provider {
	case ProviderGemini, "":
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	case ProviderOllama:
		// local server, no key
	default:
		return fmt.Errorf("%w: %q is not one of gemini, ollama, openai", ErrInvalidProvider, c.Provider)
	}

	// 2. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder cannot be empty", ErrInvalidEmbedderModel)
	}

	// Temperature range: 0.0 (deterministic) to 2.0
	if c.Generation.Temperature < 0.0 || c.Generation.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Generation.Temperature)
	}

	// MaxOutputTokens range: 1 to 2097152 (Gemini 2.5 max context window)
	if c.Generation.MaxOutputTokens < 1 || c.Generation.MaxOutputTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.Generation.MaxOutputTokens)
	}

	// TopP is a probability mass cutoff
	if c.Generation.TopP <= 0.0 || c.Generation.TopP > 1.0 {
		return fmt.Errorf("%w: must be in (0.0, 1.0], got %.2f", ErrInvalidTopP, c.Generation.TopP)
	}

	// 3. Few-shot selection validation
	if c.Fewshot.TopK < 1 || c.Fewshot.TopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.Fewshot.TopK)
	}
	if c.Fewshot.Index != IndexMemory && c.Fewshot.Index != IndexPGVector {
		return fmt.Errorf("%w: %q is not one of %q, %q", ErrInvalidIndex, c.Fewshot.Index, IndexMemory, IndexPGVector)
	}

	// 4. Warehouse connection validation
	if c.Warehouse.Host == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidWarehouseHost)
	}
	if c.Warehouse.Port < 1 || c.Warehouse.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidWarehousePort, c.Warehouse.Port)
	}
	if c.Warehouse.Database == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidWarehouseDatabase)
	}
	if c.Warehouse.User == "" {
		return fmt.Errorf("%w: user cannot be empty", ErrInvalidWarehouseUser)
	}
	if c.Warehouse.Password == "" {
		return fmt.Errorf("%w: warehouse password must be set (config file, "+
			"SQLSAGE_WAREHOUSE_PASSWORD, REDSHIFT_PASSWORD, or DATABASE_URL)",
			ErrInvalidWarehousePassword)
	}

	// 5. SSL mode validation. Modern modes only: allow/prefer are deprecated
	// (vulnerable to MITM).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.Warehouse.SSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidWarehouseSSLMode, c.Warehouse.SSLMode, validSSLModes)
	}

	// 6. Execution limits
	if c.Warehouse.MaxRows < 1 || c.Warehouse.MaxRows > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d", ErrInvalidMaxRows, c.Warehouse.MaxRows)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: timeout_seconds must be positive, got %d", ErrInvalidTimeout, c.TimeoutSeconds)
	}
	if c.Warehouse.QueryTimeoutSeconds < 1 {
		return fmt.Errorf("%w: warehouse.query_timeout_seconds must be positive, got %d",
			ErrInvalidTimeout, c.Warehouse.QueryTimeoutSeconds)
	}

	return nil
}
