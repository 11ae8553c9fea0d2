package workspace

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/querydesk/internal/logging"
	"github.com/JonMunkholm/querydesk/internal/remote"
)

// DefaultMaxFileSize is the upload size limit when none is configured (100MB).
const DefaultMaxFileSize = 100 << 20

var acceptedContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

var acceptedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// ValidateFile checks type and size before anything is sent.
// A file passes the type check on either its content type or its extension.
// maxSize <= 0 disables the size check.
func ValidateFile(f remote.File, maxSize int64) error {
	if !acceptedType(f) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, f.Name)
	}
	if maxSize > 0 && f.Size > maxSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, f.Name, f.Size, maxSize)
	}
	return nil
}

func acceptedType(f remote.File) bool {
	if f.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(f.ContentType)
		if err == nil && acceptedContentTypes[strings.ToLower(mediaType)] {
			return true
		}
	}
	return acceptedExtensions[strings.ToLower(filepath.Ext(f.Name))]
}

// Uploader sends a file to the service.
type Uploader interface {
	Upload(ctx context.Context, f remote.File, onProgress remote.ProgressFunc) (remote.UploadResult, error)
}

// UploadCoordinator runs at most one upload at a time and tracks its progress.
type UploadCoordinator struct {
	svc      Uploader
	notifier Notifier
	maxSize  int64
	onChange func()
	guard    *flightGuard

	mu    sync.Mutex
	state UploadState
}

// NewUploadCoordinator creates an idle coordinator.
func NewUploadCoordinator(svc Uploader, notifier Notifier, maxSize int64, onChange func()) *UploadCoordinator {
	return &UploadCoordinator{
		svc:      svc,
		notifier: notifier,
		maxSize:  maxSize,
		onChange: onChange,
		guard:    newFlightGuard(),
		state:    UploadState{Status: UploadIdle},
	}
}

// State returns the current upload phase and progress.
func (c *UploadCoordinator) State() UploadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartUpload validates f and streams it to the service, blocking until the
// upload finishes. Every failure raises one error notification. Whatever the
// outcome, the coordinator ends idle with progress 0.
func (c *UploadCoordinator) StartUpload(ctx context.Context, f remote.File) (remote.UploadResult, error) {
	if err := ValidateFile(f, c.maxSize); err != nil {
		c.fail("Upload rejected", err)
		return remote.UploadResult{}, err
	}

	if !c.guard.TryAcquire() {
		c.fail("Upload rejected", ErrUploadInProgress)
		return remote.UploadResult{}, ErrUploadInProgress
	}
	defer c.guard.Release()

	uploadID := uuid.NewString()
	log := logging.WithFields(ctx, "upload_id", uploadID, "file", f.Name)
	log.Info("upload started", "size", f.Size)

	c.setState(UploadState{Status: UploadInProgress, FileName: f.Name})

	result, err := c.svc.Upload(ctx, f, c.progress)
	if err != nil {
		log.Warn("upload failed", "error", err)
		c.finish(UploadFailed, f.Name)
		c.fail("Upload failed", err)
		return remote.UploadResult{}, err
	}

	log.Info("upload complete", "table", result.TableName, "rows", result.RowCount)
	c.finish(UploadDone, f.Name)
	return result, nil
}

// WaitIdle blocks until no upload is running or ctx is done.
func (c *UploadCoordinator) WaitIdle(ctx context.Context) error {
	return c.guard.WaitForDrain(ctx)
}

// progress is the transport callback. Percentages only move forward.
func (c *UploadCoordinator) progress(loaded, total int64) {
	pct, ok := remote.Percent(loaded, total)
	if !ok {
		return
	}

	c.mu.Lock()
	if c.state.Status != UploadInProgress || pct <= c.state.ProgressPercent {
		c.mu.Unlock()
		return
	}
	c.state.ProgressPercent = pct
	c.mu.Unlock()

	c.changed()
}

// finish publishes the terminal status, then resets to idle.
func (c *UploadCoordinator) finish(status UploadStatus, name string) {
	c.mu.Lock()
	c.state = UploadState{Status: status, ProgressPercent: c.state.ProgressPercent, FileName: name}
	c.mu.Unlock()
	c.changed()

	c.setState(UploadState{Status: UploadIdle})
}

func (c *UploadCoordinator) setState(s UploadState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.changed()
}

func (c *UploadCoordinator) fail(title string, err error) {
	if c.notifier != nil {
		c.notifier.Push(KindError, title, Describe(err))
	}
}

func (c *UploadCoordinator) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
