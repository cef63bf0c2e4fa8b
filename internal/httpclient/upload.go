package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"
)

// File is one part of a multipart upload.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Upload posts a multipart form. It runs a single attempt with the longer
// upload timeout since the payload is not replayed.
func (c *Client) Upload(ctx context.Context, endpoint string, fields map[string]string, files ...File) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return c.send(ctx, request{
		method:      http.MethodPost,
		endpoint:    endpoint,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		requireAuth: true,
		timeout:     c.cfg.Timeout * time.Duration(c.cfg.UploadTimeoutFactor),
		attempts:    1,
	})
}
