// Package history defines the history record domain shared by every durable
// backend.
//
// A history record is a small log entry (host, topic, message, created_at)
// identified by a store-assigned id. Backends implement three operations:
//
//   - ListRecent: up to RecentLimit records, created_at DESC, id DESC
//   - Insert: parse the external timestamp, assign a fresh id, persist
//   - Delete: remove by id, returning the number of records removed (0 or 1)
//
// # Ordering
//
// Records are ordered by created_at descending. Equal timestamps are broken by
// id descending. Ids are UUIDv7 strings whose lexical order follows generation
// order, so the most recently inserted record of a tie is listed first.
//
// # Timestamps
//
// created_at is caller supplied and never validated against wall time. It is
// normalised to UTC with millisecond precision so that every backend stores and
// returns the same instant.
//
// # Errors
//
// Backends report failures as *Error values carrying CodeValidation or
// CodeStorageUnavailable. Deleting an unknown id is not an error.
package history
