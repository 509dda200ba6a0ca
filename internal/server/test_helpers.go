package server

import (
	"log/slog"
	"os"
	"testing"

	"peoplebox/internal/ctgov"
	"peoplebox/internal/policy"
)

// TestAPIKey is the shared key used across server tests
const TestAPIKey = "test-api-key-for-curation-actions"

// newTestServer builds a server in test mode (no history, no rate limits)
func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return NewServer(policy.Default(), nil, ctgov.NewClient(), logger, TestAPIKey, true)
}
