package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mmcdole/folio/internal/domain"
)

// Responder writes JSON bodies and maps domain errors to HTTP statuses
type Responder struct {
	DebugMode bool
	Logger    *slog.Logger
}

// RespondError classifies err, logs it with an error id and renders it.
// Not-found conditions are user facing and always carry their message.
func (rr *Responder) RespondError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var nf *domain.NotFoundError

	switch {
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response
		rr.logger().DebugContext(ctx, "request cancelled", "request_id", RequestIDFrom(ctx))
		return
	case errors.As(err, &nf):
		rr.respond(w, ctx, slog.LevelInfo, http.StatusNotFound, err, true)
	case errors.Is(err, domain.ErrNotConfigured):
		rr.respond(w, ctx, slog.LevelError, http.StatusServiceUnavailable, err, false)
	case domain.IsTransport(err):
		// The failing attempt says what went wrong upstream; URLs in it are redacted
		rr.respondWith(w, ctx, slog.LevelWarn, http.StatusBadGateway, err, upstreamMessage(err))
	case errors.Is(err, context.DeadlineExceeded):
		rr.respond(w, ctx, slog.LevelWarn, http.StatusBadGateway, err, false)
	default:
		rr.respond(w, ctx, slog.LevelError, http.StatusInternalServerError, err, false)
	}
}

// RespondBadRequest reports a malformed request parameter
func (rr *Responder) RespondBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	rr.respond(w, r.Context(), slog.LevelDebug, http.StatusBadRequest, err, true)
}

func (rr *Responder) respond(w http.ResponseWriter, ctx context.Context, lvl slog.Level, status int, err error, public bool) {
	var message string
	if public {
		message = err.Error()
	}
	rr.respondWith(w, ctx, lvl, status, err, message)
}

// respondWith logs err and renders message, or a generic text when message is empty
func (rr *Responder) respondWith(w http.ResponseWriter, ctx context.Context, lvl slog.Level, status int, err error, message string) {
	errID := uuid.NewString()
	rr.logger().Log(ctx, lvl, err.Error(),
		slog.String("err_id", errID),
		slog.String("request_id", RequestIDFrom(ctx)),
		slog.Int("status", status))
	if rr.DebugMode {
		message = err.Error()
	}
	rr.renderError(w, ctx, status, message, errID)
}

// upstreamMessage returns the most specific attempt of a failed fetch
func upstreamMessage(err error) string {
	var ex *domain.ExhaustedError
	if errors.As(err, &ex) {
		if cause := ex.Cause(); cause != nil {
			return cause.Error()
		}
	}
	var te *domain.TransportError
	if errors.As(err, &te) {
		return te.Error()
	}
	return ""
}

// SendJSON writes data as a 200 JSON response
func (rr *Responder) SendJSON(w http.ResponseWriter, r *http.Request, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		rr.RespondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func (rr *Responder) renderError(w http.ResponseWriter, ctx context.Context, status int, message, errID string) {
	data := map[string]any{"error_id": errID}

	if message != "" {
		r, s := utf8.DecodeRuneInString(message)
		data["error"] = string(unicode.ToUpper(r)) + message[s:]
	} else {
		data["error"] = "Unknown error occurred while processing your request. Error ID: " + errID
	}

	bs, err := json.Marshal(data)
	if err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		rr.logger().ErrorContext(ctx, "cannot marshal error response body", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bs = []byte("unknown error")
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func (rr *Responder) logger() *slog.Logger {
	if rr.Logger == nil {
		return slog.Default()
	}
	return rr.Logger
}
