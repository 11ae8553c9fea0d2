package web

// errors.go turns workspace and transport errors into API responses.
//
// Every error is:
//   - Logged with the request id and the technical error (server-side)
//   - Returned as {error, message, action, code} with a status chosen by kind
//
// Workspace failures have already raised a notification by the time they
// reach a handler, so the JSON body is for scripted clients.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/querydesk/internal/logging"
	"github.com/JonMunkholm/querydesk/internal/remote"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := workspace.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   workspace.Describe(err),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeError reports a malformed request that never reached the workspace.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("bad request", "path", r.URL.Path, "status", status, "error", message)
	writeJSON(w, status, ErrorResponse{Error: message, Message: message, Code: "REQ001"})
}

// statusFor picks the response status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, workspace.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, workspace.ErrUploadInProgress), errors.Is(err, workspace.ErrQueryRunning):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrDeleteDeclined):
		return http.StatusPreconditionRequired
	case errors.Is(err, workspace.ErrNoResult), errors.Is(err, workspace.ErrUnknownTable):
		return http.StatusNotFound
	}

	if status := remote.StatusCode(err); status != 0 {
		if status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}

	var (
		netErr    *remote.NetworkError
		malformed *remote.MalformedResponseError
	)
	switch {
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.As(err, &malformed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
