package testutil

import (
	"sync"
	"time"

	"github.com/roach88/histories/internal/history"
)

// Epoch is the default start of a TimestampSequence.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// TimestampSequence hands out strictly increasing created_at strings for tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type TimestampSequence struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewTimestampSequence creates a sequence whose first value is start and
// which advances by step on every call to Next.
func NewTimestampSequence(start time.Time, step time.Duration) *TimestampSequence {
	return &TimestampSequence{start: start, step: step}
}

// Next returns the next timestamp formatted the way clients send it.
func (s *TimestampSequence) Next() string {
	return history.FormatTimestamp(s.NextTime())
}

// NextTime returns the next timestamp as a time.Time.
func (s *TimestampSequence) NextTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.start.Add(time.Duration(s.n) * s.step)
	s.n++
	return t
}

// Reset restarts the sequence at its start value.
func (s *TimestampSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
