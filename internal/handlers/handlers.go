package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stong1994/secret-book-server/internal/models"
	"github.com/stong1994/secret-book-server/internal/repositories"
	"github.com/stong1994/secret-book-server/internal/services"
)

const maxPushBodyBytes = 1 << 20

type Ingester interface {
	Push(ctx context.Context, payload *models.EventPayload) (*models.LogEntry, error)
}

type Querier interface {
	ListEvents(ctx context.Context, cursor *string) (*models.EventPage, error)
	ListStates(ctx context.Context, dataType string, cursor *string) ([]*models.FinalState, error)
	FindState(ctx context.Context, host string) ([]*models.FinalState, error)
}

type Handler struct {
	ingest Ingester
	query  Querier
	log    *slog.Logger
}

func NewHandler(ingest Ingester, query Querier, log *slog.Logger) *Handler {
	return &Handler{ingest: ingest, query: query, log: log}
}

type pushResponse struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	var payload models.EventPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if payload.From == "" {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			payload.From = claims.Subject
		}
	}

	entry, err := h.ingest.Push(r.Context(), &payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, pushResponse{ID: entry.ID, EventID: entry.EventID})
}

func (h *Handler) FetchEvents(w http.ResponseWriter, r *http.Request) {
	page, err := h.query.ListEvents(r.Context(), optionalParam(r, "last_sync_date"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, page)
}

func (h *Handler) FetchStates(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("data_type")
	states, err := h.query.ListStates(r.Context(), dataType, optionalParam(r, "last_sync_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, states)
}

func (h *Handler) FetchState(w http.ResponseWriter, r *http.Request) {
	states, err := h.query.FindState(r.Context(), r.URL.Query().Get("host"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, states)
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("PONG"))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		h.writeError(w, r, status, "internal error")
		return
	}
	h.writeError(w, r, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidEventType),
		errors.Is(err, services.ErrInvalidEvent),
		errors.Is(err, services.ErrMissingDataType),
		errors.Is(err, services.ErrEmptyHost):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrStateExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// optionalParam returns nil when the query parameter is absent or empty.
func optionalParam(r *http.Request, name string) *string {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	writeJSON(h.log, w, r, status, v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(h.log, w, r, status, errorResponse{Error: msg})
}

// writeJSON writes v with status. The header is already sent when encoding
// fails, so the failure can only be logged.
func writeJSON(log *slog.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorContext(r.Context(), "failed to encode response",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}
}
