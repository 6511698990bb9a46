// Package cmd provides shared wiring helpers for the procflow commands.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vendoreval/procflow/pkg/persistence"
	"github.com/vendoreval/procflow/pkg/persistence/file"
	"github.com/vendoreval/procflow/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL:
// postgres:// URLs get the PostgreSQL implementation, anything else is
// treated as a file-store root path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	}

	return file.NewPersistence(databaseURL), nil
}
