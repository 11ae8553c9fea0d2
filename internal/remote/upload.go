package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// UploadField is the multipart form field carrying the dataset.
const UploadField = "file"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload streams f to the service as multipart form data.
//
// The body is assembled as part header + file bytes + closing boundary so it
// is never buffered in full. When f.Size is known the request carries a
// Content-Length and onProgress receives loaded/total byte counts as the
// transport consumes the body; otherwise total is reported as -1.
func (c *Client) Upload(ctx context.Context, f File, onProgress ProgressFunc) (UploadResult, error) {
	const op = "upload"

	if f.Reader == nil {
		return UploadResult{}, fmt.Errorf("%s: file %q has no content", op, f.Name)
	}

	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, UploadField, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentType)
	if _, err := mw.CreatePart(h); err != nil {
		return UploadResult{}, fmt.Errorf("%s: build form: %w", op, err)
	}
	partHead := append([]byte(nil), head.Bytes()...)

	head.Reset()
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("%s: build form: %w", op, err)
	}
	tail := append([]byte(nil), head.Bytes()...)

	total := int64(-1)
	if f.Size > 0 {
		total = int64(len(partHead)) + f.Size + int64(len(tail))
	}

	body := newCountingReader(
		io.MultiReader(bytes.NewReader(partHead), f.Reader, bytes.NewReader(tail)),
		total,
		onProgress,
	)

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	data, err := c.send(req, op)
	if err != nil {
		return UploadResult{}, err
	}

	result, err := decodeUploadResult(data)
	if err != nil {
		return UploadResult{}, &MalformedResponseError{Op: op, Err: err}
	}
	return result, nil
}
