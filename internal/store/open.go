package store

import (
	"context"
	"strings"

	"tycoon/internal/db"
)

// Open picks a backend from a DATABASE_URL: postgres URLs use pgx, "sqlite:<path>" uses SQLite,
// and an empty URL keeps everything in memory.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	switch {
	case databaseURL == "":
		return NewMemory(), nil
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return OpenSQLite(strings.TrimPrefix(databaseURL, "sqlite:"))
	default:
		pool, err := db.Connect(ctx, databaseURL, db.DefaultOptions())
		if err != nil {
			return nil, err
		}
		pg := NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pg, nil
	}
}
