package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/histories/internal/history"
)

const selectRecords = `
	SELECT id, host, topic, message, created_at
	FROM histories
	ORDER BY created_at DESC, id DESC
`

// ListRecent returns up to history.RecentLimit records, most recent first.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListRecent(ctx context.Context) ([]history.Record, error) {
	return s.queryRecords(ctx, "list recent", selectRecords+" LIMIT ?", history.RecentLimit)
}

// All returns every record in list order.
func (s *Store) All(ctx context.Context) ([]history.Record, error) {
	return s.queryRecords(ctx, "list all", selectRecords)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM histories`).Scan(&n); err != nil {
		return 0, history.NewStorageError("count", err)
	}
	return n, nil
}

// Span returns the count and created_at range in one statement. Each
// subquery is answered from the primary key or the recent-window index.
func (s *Store) Span(ctx context.Context) (history.Span, error) {
	var span history.Span
	var oldest, newest sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM histories),
		       (SELECT MIN(created_at) FROM histories),
		       (SELECT MAX(created_at) FROM histories)`,
	).Scan(&span.Count, &oldest, &newest)
	if err != nil {
		return history.Span{}, history.NewStorageError("span", err)
	}

	if oldest.Valid {
		span.Oldest = time.UnixMilli(oldest.Int64).UTC()
	}
	if newest.Valid {
		span.Newest = time.UnixMilli(newest.Int64).UTC()
	}
	return span, nil
}

// queryRecords runs a listing query. Any scan or iteration error discards the
// rows read so far; callers never see a truncated list.
func (s *Store) queryRecords(ctx context.Context, op, query string, args ...any) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, history.NewStorageError(op, err)
	}
	defer rows.Close()

	records := []history.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, history.NewStorageError(op, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, history.NewStorageError(op, err)
	}

	return records, nil
}

// scanRecord scans a row into a Record.
func scanRecord(rows *sql.Rows) (history.Record, error) {
	var rec history.Record
	var createdAt int64

	if err := rows.Scan(&rec.ID, &rec.Host, &rec.Topic, &rec.Message, &createdAt); err != nil {
		return history.Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}
