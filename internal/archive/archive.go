// Package archive exports history records to a canonical JSON document and
// imports them back.
//
// An archive lists records newest first, the same order as a full listing,
// and carries a digest over the canonical encoding of its records:
//
//	{"count":2,"digest":"sha256:…","format":"histories/archive/v1","records":[…]}
//
// Importing re-inserts every record through the normal insert path, so the
// target store assigns fresh ids.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/roach88/histories/internal/canonical"
	"github.com/roach88/histories/internal/history"
)

// Format identifies the archive layout. It doubles as the digest domain.
const Format = "histories/archive/v1"

// Archive is a full export of a store.
type Archive struct {
	Format  string  `json:"format"`
	Count   int     `json:"count"`
	Digest  string  `json:"digest,omitempty"`
	Records []Entry `json:"records"`
}

// Entry is one archived record. CreatedAt uses history.FormatTimestamp.
type Entry struct {
	ID        string `json:"_id"`
	Host      string `json:"host"`
	Topic     string `json:"topic"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// Source lists every record in recent-window order.
type Source interface {
	All(ctx context.Context) ([]history.Record, error)
}

// Sink accepts new records.
type Sink interface {
	Insert(ctx context.Context, d history.Draft) (history.Record, error)
}

// New builds a digested archive from records in list order.
func New(records []history.Record) (*Archive, error) {
	a := &Archive{
		Format:  Format,
		Count:   len(records),
		Records: make([]Entry, 0, len(records)),
	}
	for _, r := range records {
		a.Records = append(a.Records, Entry{
			ID:        r.ID,
			Host:      r.Host,
			Topic:     r.Topic,
			Message:   r.Message,
			CreatedAt: history.FormatTimestamp(r.CreatedAt),
		})
	}

	digest, err := Digest(a.Records)
	if err != nil {
		return nil, err
	}
	a.Digest = digest
	return a, nil
}

// Digest computes "sha256:<hex>" over the domain, a NUL separator and the
// canonical encoding of entries.
func Digest(entries []Entry) (string, error) {
	data, err := canonical.Marshal(entriesValue(entries))
	if err != nil {
		return "", fmt.Errorf("archive: digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(Format))
	h.Write([]byte{0x00})
	h.Write(data)
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks the record count and, when present, the digest.
func (a *Archive) Verify() error {
	if a.Format != Format {
		return fmt.Errorf("archive: unsupported format %q", a.Format)
	}
	if a.Count != len(a.Records) {
		return fmt.Errorf("archive: count is %d but %d records are present", a.Count, len(a.Records))
	}
	if a.Digest == "" {
		return nil
	}

	want, err := Digest(a.Records)
	if err != nil {
		return err
	}
	if want != a.Digest {
		return fmt.Errorf("archive: digest mismatch: have %s, computed %s", a.Digest, want)
	}
	return nil
}

// Marshal encodes a as canonical JSON.
func (a *Archive) Marshal() ([]byte, error) {
	doc := map[string]any{
		"format":  a.Format,
		"count":   a.Count,
		"records": entriesValue(a.Records),
	}
	if a.Digest != "" {
		doc["digest"] = a.Digest
	}

	data, err := canonical.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal: %w", err)
	}
	return data, nil
}

// Export writes every record of src to w as a canonical archive followed by
// a newline.
func Export(ctx context.Context, src Source, w io.Writer) (*Archive, error) {
	records, err := src.All(ctx)
	if err != nil {
		return nil, err
	}

	a, err := New(records)
	if err != nil {
		return nil, err
	}

	data, err := a.Marshal()
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("archive: write: %w", err)
	}
	return a, nil
}

// Import inserts the archived records into dst, oldest first, and returns
// the stored records in insertion order. Archived ids are not reused.
//
// Import stops at the first failure; records inserted before it remain.
func Import(ctx context.Context, dst Sink, a *Archive) ([]history.Record, error) {
	if err := a.Verify(); err != nil {
		return nil, history.NewValidationError("archive", "invalid archive", err)
	}

	stored := make([]history.Record, 0, len(a.Records))
	for i := len(a.Records) - 1; i >= 0; i-- {
		e := a.Records[i]
		rec, err := dst.Insert(ctx, history.Draft{
			Host:      e.Host,
			Topic:     e.Topic,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		})
		if err != nil {
			return stored, fmt.Errorf("archive: import record %q: %w", e.ID, err)
		}
		stored = append(stored, rec)
	}
	return stored, nil
}

func entriesValue(entries []Entry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{
			"_id":        e.ID,
			"host":       e.Host,
			"topic":      e.Topic,
			"message":    e.Message,
			"created_at": e.CreatedAt,
		}
	}
	return out
}
