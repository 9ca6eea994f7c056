package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/skosovsky/toolbridge"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests. It fails tb on registration errors and shuts the registry
// down when the test ends.
func NewTestRegistry(tb testing.TB, tools ...toolbridge.Tool) *toolbridge.Registry {
	tb.Helper()
	reg := toolbridge.NewRegistry(
		toolbridge.WithDefaultTimeout(30*time.Second),
		toolbridge.WithRecoverPanics(true),
	)
	if err := reg.Register(tools...); err != nil {
		tb.Fatalf("register tools: %v", err)
	}
	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	return reg
}
