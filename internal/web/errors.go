package web

// errors.go turns errors into responses.
//
// The technical error is logged with the request id, then mapped through
// core.MapError to a message the user can act on. API routes get JSON, HTMX
// requests get an alert fragment, and browser form posts get the upload page
// with the alert on top.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/logging"
	"github.com/JonMunkholm/casesync/internal/shiphero"
	"github.com/JonMunkholm/casesync/internal/web/templates"
)

// Request errors raised by the handlers themselves.
var (
	errNoFile      = errors.New("no file provided")
	errFileTooBig  = errors.New("file too large or invalid form")
	errInvalidJSON = errors.New("invalid request body")
	errNoHistory   = errors.New("run history is not configured")
	errNoPresets   = errors.New("mapping presets are not configured")
)

// ErrorResponse is the JSON body of every API error. Error carries the same
// text as Message so clients that only read "error" still get a useful line.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var authErr *shiphero.AuthError
	switch {
	case errors.As(err, &authErr):
		if authErr.Status >= 400 {
			return authErr.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, core.ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrMissingData),
		errors.Is(err, core.ErrIncompleteMapping),
		errors.Is(err, core.ErrNoValidProducts),
		errors.Is(err, core.ErrInvalidCSV),
		errors.Is(err, core.ErrPresetNameRequired),
		errors.Is(err, shiphero.ErrMissingRefreshToken),
		errors.Is(err, errNoFile),
		errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrFileNotFound),
		errors.Is(err, core.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrPresetExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyRuns),
		errors.Is(err, errNoHistory),
		errors.Is(err, errNoPresets):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped message in the format the
// client expects. A zero statusCode means statusFor(err).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)
	logRequestError(r, err, statusCode, userMsg.Code)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// logRequestError logs the technical error. FromContext adds the request id,
// so a user quoting the code can be matched to the log line.
func logRequestError(r *http.Request, err error, statusCode int, code string) {
	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", code,
	)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSONStatus(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML re-renders the upload page with the error on top.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	alert := templates.ErrorAlert(msg.Message, msg.Action, msg.Code)
	if err := templates.UploadPage(alert).Render(r.Context(), w); err != nil {
		slog.Error("render error page", "error", err)
	}
}

func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error partial", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers JSON. API routes always do.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
