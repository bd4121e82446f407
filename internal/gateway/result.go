package gateway

import (
	"net/http"

	"github.com/gallery-widget/gateway/internal/response"
)

// Result is the uniform outcome of every route. Raw takes precedence over
// Body; when both are nil only the status and headers are written.
type Result struct {
	Status      int
	Body        interface{}
	Raw         []byte
	ContentType string
	Header      http.Header
}

func (res *Result) write(w http.ResponseWriter) {
	for k, vs := range res.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}

	switch {
	case res.Raw != nil:
		response.Bytes(w, status, res.ContentType, res.Raw)
	case res.Body != nil:
		response.JSON(w, status, res.Body)
	default:
		w.WriteHeader(status)
	}
}
