package log_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendoreval/procflow/pkg/log"
)

// Setup swaps the process-wide default logger, so these cases run in one
// sequential test.
func TestSetup(t *testing.T) {
	ctx := context.Background()

	log.Setup("warn")
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelWarn))

	log.Setup("DEBUG")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	log.Setup("not-a-level")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelInfo))
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelDebug))
}
