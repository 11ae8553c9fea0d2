package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/querydesk/internal/remote"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported type", workspace.ErrUnsupportedFileType, http.StatusUnsupportedMediaType},
		{"too large", workspace.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"upload busy", workspace.ErrUploadInProgress, http.StatusConflict},
		{"empty query", workspace.ErrEmptyQuery, http.StatusBadRequest},
		{"not confirmed", workspace.ErrDeleteDeclined, http.StatusPreconditionRequired},
		{"no result", workspace.ErrNoResult, http.StatusNotFound},
		{"service 404", &remote.HTTPError{Op: "get schema", Status: 404}, http.StatusNotFound},
		{"wrapped service 404", fmt.Errorf("select: %w", &remote.HTTPError{Op: "get schema", Status: 404}), http.StatusNotFound},
		{"service 500", &remote.HTTPError{Op: "run query", Status: 500}, http.StatusBadGateway},
		{"service 422", &remote.HTTPError{Op: "run query", Status: 422}, http.StatusBadGateway},
		{"network", &remote.NetworkError{Op: "list tables", Err: context.DeadlineExceeded}, http.StatusBadGateway},
		{"malformed", &remote.MalformedResponseError{Op: "run query", Err: errors.New("no rows")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
