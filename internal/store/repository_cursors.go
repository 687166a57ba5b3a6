package store

import (
	"context"
	"time"
)

func (s *Store) LoadCursor(ctx context.Context, name string) (*SyncCursor, error) {
	var c SyncCursor
	err := s.Pool.QueryRow(ctx, `SELECT name, cursor_at, updated_at FROM sync_cursors WHERE name = $1`, name).
		Scan(&c.Name, &c.CursorAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &c, nil
}

// SaveCursor upserts the watermark and never moves it backwards.
func (s *Store) SaveCursor(ctx context.Context, name string, at time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sync_cursors (name, cursor_at)
		VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE
		SET cursor_at = GREATEST(sync_cursors.cursor_at, EXCLUDED.cursor_at),
		    updated_at = now()
	`, name, timestamptzParam(at))
	return mapSchemaError(err)
}
