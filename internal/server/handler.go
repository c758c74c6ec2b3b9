// Package server exposes a history store over HTTP.
//
// Routes:
//
//	GET    /api/histories       recent-window listing
//	POST   /api/histories       insert {host, topic, message, created_at}
//	DELETE /api/histories       delete {"_id": "..."}
//	DELETE /api/histories/{id}  delete by path
//	GET    /health              store reachability
//	GET    /metrics             Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/histories/internal/history"
)

// Store is the subset of history.Backend the handler needs.
type Store interface {
	ListRecent(ctx context.Context) ([]history.Record, error)
	Insert(ctx context.Context, d history.Draft) (history.Record, error)
	Delete(ctx context.Context, id string) (int64, error)
	Ping(ctx context.Context) error
}

// Handler serves the histories API.
type Handler struct {
	store     Store
	logger    *slog.Logger
	metrics   *Metrics
	bodyLimit int64
}

// NewHandler creates a handler. metrics may be nil.
func NewHandler(store Store, logger *slog.Logger, metrics *Metrics, bodyLimit int64) *Handler {
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}
	return &Handler{store: store, logger: logger, metrics: metrics, bodyLimit: bodyLimit}
}

// Register mounts the API and health routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/histories", h.HandleList)
	r.Post("/api/histories", h.HandleCreate)
	r.Delete("/api/histories", h.HandleDelete)
	r.Delete("/api/histories/{id}", h.HandleDeleteByID)
	r.Get("/health", h.HandleHealth)
}

// HandleList returns the recent-window listing.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start := time.Now()
	records, err := h.store.ListRecent(ctx)
	h.metrics.ObserveStoreOp("list_recent", start, err)
	if err != nil {
		h.logger.ErrorContext(ctx, "list histories failed", "error", err, "request_id", GetRequestID(ctx))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewRecordResponses(records))
}

// HandleCreate inserts a record and returns it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	draft, err := req.Draft()
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	rec, err := h.store.Insert(ctx, draft)
	h.metrics.ObserveStoreOp("insert", start, err)
	if err != nil {
		if !history.IsValidation(err) {
			h.logger.ErrorContext(ctx, "insert history failed", "error", err, "request_id", GetRequestID(ctx))
		}
		writeError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "history inserted", "id", rec.ID, "request_id", GetRequestID(ctx))
	writeJSON(w, http.StatusOK, NewRecordResponse(rec))
}

// HandleDelete deletes the record named in the request body.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	// A missing _id matches nothing and deletes 0 records.
	h.delete(w, r, req.ID)
}

// HandleDeleteByID deletes the record named in the path.
func (h *Handler) HandleDeleteByID(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	start := time.Now()
	n, err := h.store.Delete(ctx, id)
	h.metrics.ObserveStoreOp("delete", start, err)
	if err != nil {
		h.logger.ErrorContext(ctx, "delete history failed", "error", err, "id", id, "request_id", GetRequestID(ctx))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// HandleHealth reports whether the store is reachable.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// decode reads a size-limited JSON body into v, writing the error response
// itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, h.bodyLimit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:            "request_too_large",
				ErrorDescription: "request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "bad_request",
			ErrorDescription: "invalid JSON body",
		})
		return false
	}
	return true
}
