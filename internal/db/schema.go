package db

import (
	"context"
	"fmt"
)

// EnsureSchema creates the songs table and its search index when missing.
// Every statement is guarded, so it runs on each process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	sqlQuery, err := getQueryString("createSongs")
	if err != nil {
		return fmt.Errorf("failed to get SQL query string: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sqlQuery); err != nil {
		return fmt.Errorf("error creating songs schema: %w", err)
	}

	logger.Info("Database schema ready")
	return nil
}
