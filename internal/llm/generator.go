// Package llm wraps the Genkit generation call used to turn a few-shot
// prompt into SQL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

var (
	// ErrEmptyResponse reports a generation call that succeeded at the
	// transport level but produced no text.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrTimeout reports a generation call aborted by the request deadline.
	ErrTimeout = errors.New("generation timed out")
)

// Config enumerates the recognized sampling options, passed unchanged on
// every generation call. Unknown provider options are deliberately not
// supported.
type Config struct {
	// MaxOutputTokens caps the response length.
	MaxOutputTokens int
	// Temperature sets sampling randomness; 0 makes SQL generation as
	// repeatable as the provider allows.
	Temperature float64
	// TopP is the nucleus sampling cutoff.
	TopP float64
}

// DefaultConfig suits SQL generation: bounded output, no sampling noise.
func DefaultConfig() Config {
	return Config{MaxOutputTokens: 1024, Temperature: 0, TopP: 1.0}
}

// Generator issues single blocking generation calls against one model.
// There is no retry and no streaming; the orchestrator owns failure policy.
type Generator struct {
	g      *genkit.Genkit
	model  string
	cfg    Config
	logger *slog.Logger
}

// New creates a Generator for the provider-qualified model name, e.g.
// "googleai/gemini-2.5-flash". A nil logger falls back to slog.Default().
func New(g *genkit.Genkit, model string, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{g: g, model: model, cfg: cfg, logger: logger}
}

// Generate runs one generation call and returns the trimmed response text.
// Cancellation of ctx aborts the call; deadline expiry surfaces wrapped in
// ErrTimeout so callers can phrase timeouts separately.
func (gen *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.model),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			MaxOutputTokens: gen.cfg.MaxOutputTokens,
			Temperature:     gen.cfg.Temperature,
			TopP:            gen.cfg.TopP,
		}),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return "", fmt.Errorf("generating SQL with %s: %w", gen.model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	gen.logger.Debug("generation complete",
		"model", gen.model,
		"prompt_bytes", len(prompt),
		"response_bytes", len(text),
		"elapsed", time.Since(start),
	)
	return text, nil
}
