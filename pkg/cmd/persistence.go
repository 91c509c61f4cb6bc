// Package cmd provides common initialization for command-line entry points.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/persistence/file"
	"github.com/alik-grt/flowd/pkg/persistence/postgres"
)

// NewPersistence builds the persistence layer from a database URL. Postgres
// URLs get the SQL implementation with migrations applied; everything else
// is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch persistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgres.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func persistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
