package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	maxUploadMemory    = 32 << 20
	defaultContentType = "image/jpeg"
	defaultQuality     = "50"
	defaultFormat      = "webp"
)

// uploadRequest is the multipart body of a POST.
type uploadRequest struct {
	Filename    string
	ContentType string
	File        io.Reader
	Size        int64
}

// deleteRequest is the JSON body of a DELETE.
type deleteRequest struct {
	Filename string `json:"filename"`
}

// transformRequest is the query string of GET /transform.
type transformRequest struct {
	Key     string
	Quality string
	Format  string
}

// parseUpload reads the multipart form. A body that is not multipart is an
// unexpected fault; missing fields are reported as a validation error.
func parseUpload(r *http.Request) (*uploadRequest, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	form := r.MultipartForm

	req := &uploadRequest{
		Filename:    formValue(form.Value, "filename"),
		ContentType: formValue(form.Value, "contentType"),
		Size:        -1,
	}
	if req.ContentType == "" {
		req.ContentType = defaultContentType
	}

	if files := form.File["file"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open uploaded file: %w", err)
		}
		req.File = f
		req.Size = files[0].Size
	} else if v := formValue(form.Value, "file"); v != "" {
		req.File = strings.NewReader(v)
		req.Size = int64(len(v))
	}

	var missing []string
	if req.File == nil {
		missing = append(missing, "file")
	}
	if req.Filename == "" {
		missing = append(missing, "filename")
	}
	if len(missing) > 0 {
		req.close()
		return nil, errMissing(missing...)
	}
	return req, nil
}

func (u *uploadRequest) close() {
	if c, ok := u.File.(io.Closer); ok {
		_ = c.Close()
	}
}

func parseDelete(r *http.Request) (*deleteRequest, error) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode delete body: %w", err)
	}
	if req.Filename == "" {
		return nil, errMissing("filename")
	}
	return &req, nil
}

func parseTransform(r *http.Request) (*transformRequest, error) {
	q := r.URL.Query()
	req := &transformRequest{
		Key:     q.Get("key"),
		Quality: q.Get("quality"),
		Format:  q.Get("format"),
	}
	if req.Key == "" {
		return nil, errMissing("key")
	}
	if req.Quality == "" {
		req.Quality = defaultQuality
	}
	if req.Format == "" {
		req.Format = defaultFormat
	}
	return req, nil
}

func formValue(values map[string][]string, name string) string {
	if vs := values[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// imageContentType maps the requested output format to the emitted Content-Type.
func imageContentType(format string) string {
	switch format {
	case "webp":
		return "image/webp"
	case "avif":
		return "image/avif"
	default:
		return "image/jpeg"
	}
}

// basename returns the final path segment of an object key.
func basename(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
