package remote

// progress.go tracks how much of a request body the transport has consumed.
//
// The counting reader sits between the multipart body and http.Client so
// upload progress reflects bytes actually handed to the connection, the same
// quantity a browser reports as loaded/total.

import (
	"io"
	"sync/atomic"
)

// ProgressFunc receives the number of body bytes sent so far and the total
// body length. total is -1 when the length is unknown.
type ProgressFunc func(loaded, total int64)

// countingReader wraps an io.Reader to track bytes read.
// The transport may read the body from its own goroutine, so the counter is atomic.
type countingReader struct {
	reader     io.Reader
	total      int64
	bytesRead  atomic.Int64
	onProgress ProgressFunc
}

// newCountingReader creates a counting reader with optional total size.
func newCountingReader(r io.Reader, total int64, fn ProgressFunc) *countingReader {
	return &countingReader{
		reader:     r,
		total:      total,
		onProgress: fn,
	}
}

// Read implements io.Reader.
func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		loaded := r.bytesRead.Add(int64(n))
		if r.onProgress != nil {
			r.onProgress(loaded, r.total)
		}
	}
	return n, err
}

// Percent converts loaded/total into a rounded percentage in [0, 100].
// ok is false when the total is unknown.
func Percent(loaded, total int64) (pct int, ok bool) {
	if total <= 0 {
		return 0, false
	}
	if loaded <= 0 {
		return 0, true
	}
	if loaded >= total {
		return 100, true
	}
	// round half up without floating point
	return int((loaded*200 + total) / (total * 2)), true
}
