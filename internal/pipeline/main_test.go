package pipeline

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for the whole package, so a
// failed request can never strand a generation or query goroutine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// HTTP/2 connection pool goroutines persist across tests
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
		// OpenCensus stats worker is a global singleton that can't be stopped
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}
