package workspace

// errors.go defines the workspace error taxonomy and its user-facing messages.
//
// # Error Codes Reference
//
// Users can quote a code to support staff for faster diagnosis.
//
// # Network (NET001)
//
//	NET001 - Unable to reach the query service
//	         Action: Check that the service is running and API_BASE_URL is correct
//	         Matches: *remote.NetworkError, "connection refused", "deadline exceeded"
//
// # Service Responses (HTTP001-HTTP002, RESP001)
//
//	HTTP001 - The service rejected the request (4xx)
//	          Action: Review the request and try again
//	HTTP002 - The service failed to process the request (5xx)
//	          Action: Please try again in a few moments
//	RESP001 - The service sent a response that could not be read
//	          Action: Check that the client and service versions match
//
// # Files (FILE001-FILE002)
//
//	FILE001 - File too large
//	          Action: Split the file into smaller chunks
//	FILE002 - Unsupported file type
//	          Action: Upload a .csv, .xlsx or .xls file
//
// # Uploads (UPL001)
//
//	UPL001 - Another upload is still running
//	         Action: Wait for it to finish and try again
//
// # Queries (QRY001-QRY003)
//
//	QRY001 - Query is empty
//	         Action: Type a question about your data
//	QRY002 - A query is already running
//	         Action: Wait for the current query to finish
//	QRY003 - No query result to export
//	         Action: Run a query first
//
// # Tables (TBL001-TBL002)
//
//	TBL001 - Table not found (HTTP 404 from table endpoints, or "table not found")
//	         Action: Refresh the table list
//	TBL002 - Deletion was not confirmed
//	         Action: Confirm the deletion to remove the table
//
// # Default (ERR000)
//
//	ERR000 - An unexpected error occurred
//	         Action: Please try again or check the logs
//
// Typed errors are classified first with errors.Is/As. Anything left is
// matched case-insensitively against errorPatterns; the first match wins.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

var (
	// ErrUnsupportedFileType is returned for files that are neither CSV nor Excel.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileTooLarge is returned for files above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUploadInProgress is returned when an upload is started while another runs.
	ErrUploadInProgress = errors.New("an upload is already in progress")

	// ErrEmptyQuery is returned for blank query text. Nothing is sent.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrQueryRunning is returned when a query is submitted while another runs.
	ErrQueryRunning = errors.New("a query is already running")

	// ErrDeleteDeclined is returned when the confirmation gate answers no.
	ErrDeleteDeclined = errors.New("delete not confirmed")

	// ErrNoResult is returned when exporting before any query succeeded.
	ErrNoResult = errors.New("no query result to export")

	// ErrUnknownTable is returned when selecting or deleting an id not in the table list.
	ErrUnknownTable = errors.New("table not found")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgNetwork = UserMessage{
		Message: "Unable to reach the query service",
		Action:  "Check that the service is running and API_BASE_URL is correct",
		Code:    "NET001",
	}
	msgRejected = UserMessage{
		Message: "The service rejected the request",
		Action:  "Review the request and try again",
		Code:    "HTTP001",
	}
	msgServerFailed = UserMessage{
		Message: "The service failed to process the request",
		Action:  "Please try again in a few moments",
		Code:    "HTTP002",
	}
	msgMalformed = UserMessage{
		Message: "The service sent a response that could not be read",
		Action:  "Check that the client and service versions match",
		Code:    "RESP001",
	}
	msgTooLarge = UserMessage{
		Message: "File too large",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgUnsupported = UserMessage{
		Message: "Unsupported file type",
		Action:  "Upload a .csv, .xlsx or .xls file",
		Code:    "FILE002",
	}
	msgUploadBusy = UserMessage{
		Message: "Another upload is still running",
		Action:  "Wait for it to finish and try again",
		Code:    "UPL001",
	}
	msgEmptyQuery = UserMessage{
		Message: "Query is empty",
		Action:  "Type a question about your data",
		Code:    "QRY001",
	}
	msgQueryBusy = UserMessage{
		Message: "A query is already running",
		Action:  "Wait for the current query to finish",
		Code:    "QRY002",
	}
	msgNoResult = UserMessage{
		Message: "No query result to export",
		Action:  "Run a query first",
		Code:    "QRY003",
	}
	msgDeleteDeclined = UserMessage{
		Message: "Deletion was not confirmed",
		Action:  "Confirm the deletion to remove the table",
		Code:    "TBL002",
	}
	msgTableNotFound = UserMessage{
		Message: "Table not found",
		Action:  "Refresh the table list",
		Code:    "TBL001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch untyped errors, typically wrapped transport errors
// that lost their type on the way up.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: msgNetwork},
	{pattern: "no such host", msg: msgNetwork},
	{pattern: "deadline exceeded", msg: msgNetwork},
	{pattern: "file too large", msg: msgTooLarge},
	{pattern: "unsupported file type", msg: msgUnsupported},
	{pattern: "table not found", msg: msgTableNotFound},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		httpErr   *remote.HTTPError
		netErr    *remote.NetworkError
		malformed *remote.MalformedResponseError
	)
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return msgTooLarge
	case errors.Is(err, ErrUnsupportedFileType):
		return msgUnsupported
	case errors.Is(err, ErrUploadInProgress):
		return msgUploadBusy
	case errors.Is(err, ErrEmptyQuery):
		return msgEmptyQuery
	case errors.Is(err, ErrQueryRunning):
		return msgQueryBusy
	case errors.Is(err, ErrNoResult):
		return msgNoResult
	case errors.Is(err, ErrDeleteDeclined):
		return msgDeleteDeclined
	case errors.Is(err, ErrUnknownTable):
		return msgTableNotFound
	case errors.As(err, &netErr):
		return msgNetwork
	case errors.As(err, &malformed):
		return msgMalformed
	case errors.As(err, &httpErr):
		switch {
		case httpErr.Status == http.StatusNotFound && strings.Contains(httpErr.Op, "table"):
			return msgTableNotFound
		case httpErr.Status == http.StatusRequestEntityTooLarge:
			return msgTooLarge
		case httpErr.Status >= 500:
			return msgServerFailed
		default:
			return msgRejected
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// Describe is the notification body for a failure. Service-provided detail
// and the HTTP status are kept so the user sees what the service said.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := MapError(err)
	text := msg.Message

	var httpErr *remote.HTTPError
	if errors.As(err, &httpErr) {
		text = fmt.Sprintf("%s (HTTP %d)", text, httpErr.Status)
		if httpErr.Message != "" {
			text += ": " + httpErr.Message
		}
	}
	return fmt.Sprintf("%s (Code: %s). %s", text, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
