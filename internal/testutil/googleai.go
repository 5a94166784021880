package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// GoogleAISetup bundles the resources live-API tests need: Genkit
// initialized with the Google AI plugin, its embedder, and a quiet logger.
type GoogleAISetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   *slog.Logger
}

// SetupGoogleAI initializes Genkit with the Google AI plugin for tests that
// exercise the real embedding API. The test is skipped when GEMINI_API_KEY
// is not set, so the suite passes offline.
func SetupGoogleAI(t *testing.T) *GoogleAISetup {
	t.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set - skipping test requiring the live embedding API")
	}

	g := genkit.Init(context.Background(),
		genkit.WithPlugins(&googlegenai.GoogleAI{}))

	return &GoogleAISetup{
		Embedder: googlegenai.GoogleAIEmbedder(g, "gemini-embedding-001"),
		Genkit:   g,
		Logger:   slog.New(slog.DiscardHandler),
	}
}
