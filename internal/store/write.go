package store

import (
	"context"

	"github.com/roach88/histories/internal/history"
)

// Insert parses the draft, assigns a fresh id and persists the record.
//
// The timestamp is parsed before anything touches the database, so a
// validation error has no side effect. A failed INSERT leaves no row behind.
func (s *Store) Insert(ctx context.Context, d history.Draft) (history.Record, error) {
	rec, err := history.NewRecord(s.ids.Generate(), d)
	if err != nil {
		return history.Record{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO histories (id, host, topic, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Host,
		rec.Topic,
		rec.Message,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return history.Record{}, history.NewStorageError("insert", err)
	}

	return rec, nil
}

// Delete removes the record with the given id.
// Returns 0 without error if no such record exists.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM histories WHERE id = ?`, id)
	if err != nil {
		return 0, history.NewStorageError("delete", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, history.NewStorageError("delete", err)
	}
	return n, nil
}
