package server

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/histories/internal/history"
)

// CreateRequest is the POST /api/histories body.
// CreatedAt may be a JSON string or a JSON number of epoch milliseconds.
type CreateRequest struct {
	Host      string          `json:"host"`
	Topic     string          `json:"topic"`
	Message   string          `json:"message"`
	CreatedAt json.RawMessage `json:"created_at"`
}

// Draft converts the request into a history.Draft.
// A created_at that is neither a string nor a number is a validation error.
func (req CreateRequest) Draft() (history.Draft, error) {
	d := history.Draft{Host: req.Host, Topic: req.Topic, Message: req.Message}

	raw := bytes.TrimSpace(req.CreatedAt)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		// Left empty; the store rejects it.
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &d.CreatedAt); err != nil {
			return history.Draft{}, history.NewValidationError("created_at", "invalid string", err)
		}
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		d.CreatedAt = string(raw)
	default:
		return history.Draft{}, history.NewValidationError("created_at", "must be a string or epoch milliseconds", nil)
	}
	return d, nil
}

// DeleteRequest is the DELETE /api/histories body.
type DeleteRequest struct {
	ID string `json:"_id"`
}

// RecordResponse is the wire form of a record.
type RecordResponse struct {
	ID        string `json:"_id"`
	Host      string `json:"host"`
	Topic     string `json:"topic"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// NewRecordResponse converts a record to its wire form.
func NewRecordResponse(r history.Record) RecordResponse {
	return RecordResponse{
		ID:        r.ID,
		Host:      r.Host,
		Topic:     r.Topic,
		Message:   r.Message,
		CreatedAt: history.FormatTimestamp(r.CreatedAt),
	}
}

// NewRecordResponses converts records, returning an empty slice for none.
func NewRecordResponses(records []history.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, NewRecordResponse(r))
	}
	return out
}
