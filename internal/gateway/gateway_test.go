package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gallery-widget/gateway/internal/response"
	"github.com/gallery-widget/gateway/internal/storage"
)

type uploadForm struct {
	file        []byte
	noFile      bool
	filename    string
	contentType string
}

func newUploadRequest(t *testing.T, form uploadForm) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if !form.noFile {
		fw, err := mw.CreateFormFile("file", "blob")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(form.file); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if form.filename != "" {
		_ = mw.WriteField("filename", form.filename)
	}
	if form.contentType != "" {
		_ = mw.WriteField("contentType", form.contentType)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newDeleteRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(g *Gateway, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body
}

func mustUpload(t *testing.T, g *Gateway, filename string, data []byte, contentType string) {
	t.Helper()
	rr := serve(g, newUploadRequest(t, uploadForm{file: data, filename: filename, contentType: contentType}))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload %q: got %d body %s", filename, rr.Code, rr.Body.String())
	}
}

func TestCORSOriginIsEchoedOrFallback(t *testing.T) {
	g := New(storage.NewMemoryStorage())

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "production origin", origin: "https://ebluvu.github.io", want: "https://ebluvu.github.io"},
		{name: "live server", origin: "http://127.0.0.1:5500", want: "http://127.0.0.1:5500"},
		{name: "localhost alt port", origin: "http://localhost:5501", want: "http://localhost:5501"},
		{name: "unknown origin", origin: "https://evil.example", want: fallbackOrigin},
		{name: "no origin", origin: "", want: fallbackOrigin},
		{name: "near miss", origin: "http://localhost:5500/", want: fallbackOrigin},
	}

	methods := []string{http.MethodOptions, http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodPatch}
	for _, tt := range tests {
		for _, method := range methods {
			t.Run(tt.name+"/"+method, func(t *testing.T) {
				req := httptest.NewRequest(method, "/", nil)
				if tt.origin != "" {
					req.Header.Set("Origin", tt.origin)
				}
				rr := serve(g, req)

				if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
					t.Fatalf("allow origin: got %q want %q", got, tt.want)
				}
				if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, DELETE, OPTIONS" {
					t.Fatalf("allow methods: got %q", got)
				}
				if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
					t.Fatalf("allow headers: got %q", got)
				}
			})
		}
	}
}

func TestOptionsShortCircuits(t *testing.T) {
	store := storage.NewMemoryStorage()
	g := New(store)

	req := newUploadRequest(t, uploadForm{file: []byte("x"), filename: "cat.jpg"})
	req.Method = http.MethodOptions
	req.Header.Set("Origin", "http://localhost:5500")
	rr := serve(g, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code: got %d want %d", rr.Code, http.StatusOK)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
	if store.Len() != 0 {
		t.Fatalf("preflight must not write, store has %d objects", store.Len())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5500" {
		t.Fatalf("allow origin: got %q", got)
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name string
		form uploadForm
		want []string
	}{
		{name: "missing file", form: uploadForm{noFile: true, filename: "cat.jpg"}, want: []string{"file"}},
		{name: "missing filename", form: uploadForm{file: []byte("x")}, want: []string{"filename"}},
		{name: "missing both", form: uploadForm{noFile: true}, want: []string{"file", "filename"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			g := New(store)

			rr := serve(g, newUploadRequest(t, tt.form))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status code: got %d want %d", rr.Code, http.StatusBadRequest)
			}
			body := decodeError(t, rr)
			for _, field := range tt.want {
				if !strings.Contains(body.Error, field) {
					t.Fatalf("error %q does not name %q", body.Error, field)
				}
			}
			if store.Len() != 0 {
				t.Fatalf("expected no write, store has %d objects", store.Len())
			}
		})
	}
}

func TestUploadStoresObject(t *testing.T) {
	store := storage.NewMemoryStorage()
	g := New(store)

	rr := serve(g, newUploadRequest(t, uploadForm{file: []byte("pixels"), filename: "albums/cat.jpg"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code: got %d body %s", rr.Code, rr.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Filename != "albums/cat.jpg" || resp.Message == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	obj, err := store.Get(context.Background(), "albums/cat.jpg")
	if err != nil {
		t.Fatalf("get stored object: %v", err)
	}
	defer obj.Body.Close()
	if obj.ContentType != "image/jpeg" {
		t.Fatalf("default content type: got %q want image/jpeg", obj.ContentType)
	}
	data, _ := io.ReadAll(obj.Body)
	if string(data) != "pixels" {
		t.Fatalf("stored bytes: got %q", data)
	}
}

func TestUploadAcceptsTextFileField(t *testing.T) {
	store := storage.NewMemoryStorage()
	g := New(store)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("file", "plain-bytes")
	_ = mw.WriteField("filename", "note.jpg")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := serve(g, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code: got %d body %s", rr.Code, rr.Body.String())
	}
	if store.Len() != 1 {
		t.Fatalf("expected one object, got %d", store.Len())
	}
}

func TestUploadNonMultipartIsFault(t *testing.T) {
	g := New(storage.NewMemoryStorage())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"filename":"cat.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(g, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status code: got %d want %d", rr.Code, http.StatusInternalServerError)
	}
	body := decodeError(t, rr)
	if body.Error == "" || body.Stack == "" || body.Type == "" {
		t.Fatalf("expected message, stack and type, got %+v", body)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("fault response is missing CORS headers")
	}
}

func TestDeleteValidationAndIdempotence(t *testing.T) {
	store := storage.NewMemoryStorage()
	g := New(store)

	rr := serve(g, newDeleteRequest(`{}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing filename: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	if body := decodeError(t, rr); !strings.Contains(body.Error, "filename") {
		t.Fatalf("error %q does not name filename", body.Error)
	}

	rr = serve(g, newDeleteRequest(`{"filename":""}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty filename: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	for i := 0; i < 2; i++ {
		rr = serve(g, newDeleteRequest(`{"filename":"never-uploaded.jpg"}`))
		if rr.Code != http.StatusOK {
			t.Fatalf("delete %d: got %d body %s", i, rr.Code, rr.Body.String())
		}
		var resp DeleteResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Success {
			t.Fatalf("expected success, got %+v", resp)
		}
	}
}

func TestDeleteRemovesObject(t *testing.T) {
	store := storage.NewMemoryStorage()
	g := New(store)
	mustUpload(t, g, "cat.jpg", []byte("B"), "")

	rr := serve(g, newDeleteRequest(`{"filename":"cat.jpg"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: got %d", rr.Code)
	}

	rr = serve(g, httptest.NewRequest(http.MethodGet, "/transform?key=cat.jpg", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("fetch after delete: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteMalformedBodyIsFault(t *testing.T) {
	g := New(storage.NewMemoryStorage())

	rr := serve(g, newDeleteRequest(`not json`))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status code: got %d want %d", rr.Code, http.StatusInternalServerError)
	}
	if body := decodeError(t, rr); body.Stack == "" || body.Type == "" {
		t.Fatalf("expected catch-all shape, got %+v", body)
	}
}

func TestTransformMissingKey(t *testing.T) {
	g := New(storage.NewMemoryStorage())

	rr := serve(g, httptest.NewRequest(http.MethodGet, "/transform", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	if body := decodeError(t, rr); !strings.Contains(body.Error, "key") {
		t.Fatalf("error %q does not name key", body.Error)
	}
}

func TestTransformUnknownKey(t *testing.T) {
	g := New(storage.NewMemoryStorage())

	rr := serve(g, httptest.NewRequest(http.MethodGet, "/transform?key=ghost.jpg", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status code: got %d want %d", rr.Code, http.StatusNotFound)
	}
	if body := decodeError(t, rr); body.Error == "" || body.Stack != "" {
		t.Fatalf("unexpected not-found body: %+v", body)
	}
}

func TestTransformReturnsStoredBytes(t *testing.T) {
	g := New(storage.NewMemoryStorage())
	payload := []byte{0xff, 0xd8, 0xff, 0x00, 0x01}
	mustUpload(t, g, "albums/a.jpg", payload, "image/jpeg")

	rr := serve(g, httptest.NewRequest(http.MethodGet, "/transform?key=albums/a.jpg", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status code: got %d body %s", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(rr.Body.Bytes(), payload) {
		t.Fatalf("body mismatch: got %v want %v", rr.Body.Bytes(), payload)
	}
	if got := rr.Header().Get("Content-Type"); got != "image/webp" {
		t.Fatalf("default format content type: got %q want image/webp", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `inline; filename="a.jpg"` {
		t.Fatalf("content disposition: got %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=31536000" {
		t.Fatalf("cache control: got %q", got)
	}
	if got := rr.Header().Get("Accept-CH"); got == "" {
		t.Fatal("expected Accept-CH header")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != fallbackOrigin {
		t.Fatalf("allow origin: got %q", got)
	}
}

func TestTransformFormatSelectsContentType(t *testing.T) {
	g := New(storage.NewMemoryStorage())
	mustUpload(t, g, "cat.jpg", []byte("B"), "image/png")

	tests := []struct {
		query string
		want  string
	}{
		{query: "", want: "image/webp"},
		{query: "&format=webp", want: "image/webp"},
		{query: "&format=avif", want: "image/avif"},
		{query: "&format=jpeg", want: "image/jpeg"},
		{query: "&format=png", want: "image/jpeg"},
		{query: "&format=avif&quality=10", want: "image/avif"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := serve(g, httptest.NewRequest(http.MethodGet, "/transform?key=cat.jpg"+tt.query, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status code: got %d", rr.Code)
			}
			if got := rr.Header().Get("Content-Type"); got != tt.want {
				t.Fatalf("content type: got %q want %q", got, tt.want)
			}
			if rr.Body.String() != "B" {
				t.Fatalf("body must be untouched, got %q", rr.Body.String())
			}
		})
	}
}

func TestTransformMatchesNestedPath(t *testing.T) {
	g := New(storage.NewMemoryStorage())
	mustUpload(t, g, "cat.jpg", []byte("B"), "")

	rr := serve(g, httptest.NewRequest(http.MethodGet, "/api/v1/transform?key=cat.jpg", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "B" {
		t.Fatalf("nested transform path: got %d %q", rr.Code, rr.Body.String())
	}
}

func TestUploadOverwrites(t *testing.T) {
	g := New(storage.NewMemoryStorage())
	mustUpload(t, g, "cat.jpg", []byte("first"), "")
	mustUpload(t, g, "cat.jpg", []byte("second"), "")

	rr := serve(g, httptest.NewRequest(http.MethodGet, "/transform?key=cat.jpg", nil))
	if rr.Body.String() != "second" {
		t.Fatalf("expected overwrite, got %q", rr.Body.String())
	}
}

func TestUploadThenFetchScenario(t *testing.T) {
	g := New(storage.NewMemoryStorage())
	b := []byte("\x89PNG\r\n\x1a\nbytes")

	rr := serve(g, newUploadRequest(t, uploadForm{file: b, filename: "cat.jpg", contentType: "image/png"}))
	var resp UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !resp.Success || resp.Filename != "cat.jpg" || resp.Message == "" {
		t.Fatalf("unexpected upload response: %+v", resp)
	}

	rr = serve(g, httptest.NewRequest(http.MethodGet, "/transform?key=cat.jpg&format=avif", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("fetch: got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "image/avif" {
		t.Fatalf("content type: got %q want image/avif", got)
	}
	if !bytes.Equal(rr.Body.Bytes(), b) {
		t.Fatalf("body mismatch: got %q", rr.Body.Bytes())
	}
}

func TestStatusEndpoint(t *testing.T) {
	for _, path := range []string{"/", "/health", "/transform/extra"} {
		t.Run(path, func(t *testing.T) {
			rr := serve(New(nil), httptest.NewRequest(http.MethodGet, path, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status code: got %d", rr.Code)
			}
			var resp StatusResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != "ok" || resp.Service != ServiceName {
				t.Fatalf("unexpected status: %+v", resp)
			}
			if strings.Join(resp.Features, ",") != "upload,delete,transform" {
				t.Fatalf("features: got %v", resp.Features)
			}
		})
	}
}

func TestUnknownMethodIsNotAllowed(t *testing.T) {
	g := New(storage.NewMemoryStorage())
	for _, method := range []string{http.MethodPatch, http.MethodPut, http.MethodHead, "PURGE"} {
		for _, path := range []string{"/", "/transform"} {
			t.Run(method+path, func(t *testing.T) {
				rr := serve(g, httptest.NewRequest(method, path, nil))
				if rr.Code != http.StatusMethodNotAllowed {
					t.Fatalf("status code: got %d want %d", rr.Code, http.StatusMethodNotAllowed)
				}
				if rr.Header().Get("Access-Control-Allow-Origin") != fallbackOrigin {
					t.Fatal("405 response is missing CORS headers")
				}
			})
		}
	}
}

func TestMissingStoreBinding(t *testing.T) {
	g := New(nil)

	requests := map[string]*http.Request{
		"upload":    newUploadRequest(t, uploadForm{file: []byte("x"), filename: "cat.jpg"}),
		"delete":    newDeleteRequest(`{"filename":"cat.jpg"}`),
		"transform": httptest.NewRequest(http.MethodGet, "/transform?key=cat.jpg", nil),
	}

	for name, req := range requests {
		t.Run(name, func(t *testing.T) {
			rr := serve(g, req)
			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status code: got %d want %d", rr.Code, http.StatusInternalServerError)
			}
			body := decodeError(t, rr)
			if body.Hint == "" || body.Code != codeStoreUnbound {
				t.Fatalf("expected configuration error shape, got %+v", body)
			}
		})
	}
}

type faultyStore struct {
	putErr error
	getErr error
	body   io.ReadCloser
	panics bool
}

func (f *faultyStore) Put(context.Context, string, io.Reader, int64, string) error {
	if f.panics {
		panic("store exploded")
	}
	return f.putErr
}

func (f *faultyStore) Get(_ context.Context, key string) (*storage.Object, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &storage.Object{Key: key, Body: f.body}, nil
}

func (f *faultyStore) Delete(context.Context, string) error { return nil }

type errReadCloser struct{}

func (errReadCloser) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }
func (errReadCloser) Close() error             { return nil }

func TestTransformSurfacesReadFailures(t *testing.T) {
	tests := []struct {
		name  string
		store *faultyStore
		want  string
	}{
		{name: "get fails", store: &faultyStore{getErr: errors.New("connection reset")}, want: "connection reset"},
		{name: "read fails", store: &faultyStore{body: errReadCloser{}}, want: "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(New(tt.store), httptest.NewRequest(http.MethodGet, "/transform?key=cat.jpg", nil))
			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status code: got %d want %d", rr.Code, http.StatusInternalServerError)
			}
			if body := decodeError(t, rr); !strings.Contains(body.Error, tt.want) {
				t.Fatalf("error %q does not carry %q", body.Error, tt.want)
			}
		})
	}
}

func TestUploadStoreErrorIsFault(t *testing.T) {
	g := New(&faultyStore{putErr: errors.New("bucket quota exceeded")})

	rr := serve(g, newUploadRequest(t, uploadForm{file: []byte("x"), filename: "cat.jpg"}))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status code: got %d want %d", rr.Code, http.StatusInternalServerError)
	}
	body := decodeError(t, rr)
	if body.Error != "bucket quota exceeded" || body.Stack == "" || body.Type == "" {
		t.Fatalf("unexpected fault body: %+v", body)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	g := New(&faultyStore{panics: true})

	req := newUploadRequest(t, uploadForm{file: []byte("x"), filename: "cat.jpg"})
	req.Header.Set("Origin", "http://localhost:5500")
	rr := serve(g, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status code: got %d want %d", rr.Code, http.StatusInternalServerError)
	}
	body := decodeError(t, rr)
	if body.Type != "panic" || body.Error != "store exploded" || body.Stack == "" {
		t.Fatalf("unexpected panic body: %+v", body)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5500" {
		t.Fatalf("allow origin: got %q", got)
	}
}

func TestBasename(t *testing.T) {
	tests := map[string]string{
		"cat.jpg":         "cat.jpg",
		"albums/a.jpg":    "a.jpg",
		"a/b/c/deep.webp": "deep.webp",
		"trailing/":       "",
		"/leading.jpg":    "leading.jpg",
	}
	for key, want := range tests {
		if got := basename(key); got != want {
			t.Fatalf("basename(%q): got %q want %q", key, got, want)
		}
	}
}
