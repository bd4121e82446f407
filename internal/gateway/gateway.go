// Package gateway implements the gallery widget's object gateway: upload,
// delete and fetch of image objects by key, behind an origin allow-list.
package gateway

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gallery-widget/gateway/internal/storage"
)

// ServiceName identifies the gateway in status responses.
const ServiceName = "Gallery Widget Object Gateway"

// Features lists the operations advertised by the status endpoint.
var Features = []string{"upload", "delete", "transform"}

type handlerFunc func(r *http.Request) (*Result, error)

// route maps a method and path predicate to a handler. Routes are tried in order.
type route struct {
	method string
	match  func(path string) bool
	handle handlerFunc
}

// Gateway is an http.Handler serving every method and path. It holds no
// per-request state; store may be nil when no bucket is bound.
type Gateway struct {
	store  storage.Storage
	routes []route
}

// New creates a Gateway backed by store. A nil store is allowed: store
// operations then answer with a configuration error.
func New(store storage.Storage) *Gateway {
	g := &Gateway{store: store}
	g.routes = []route{
		{method: http.MethodOptions, match: anyPath, handle: g.preflight},
		{method: http.MethodPost, match: anyPath, handle: g.upload},
		{method: http.MethodDelete, match: anyPath, handle: g.delete},
		{method: http.MethodGet, match: isTransformPath, handle: g.transform},
		{method: http.MethodGet, match: anyPath, handle: g.status},
	}
	return g
}

// ServeHTTP sets CORS headers, dispatches and writes the single result.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header(), r.Header.Get("Origin"))

	res, err := g.dispatch(r)
	if err != nil {
		res = faultResult(err)
	}
	res.write(w)
}

func (g *Gateway) dispatch(r *http.Request) (res *Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, err = nil, &panicError{value: v, stack: string(debug.Stack())}
		}
	}()

	for _, rt := range g.routes {
		if rt.method == r.Method && rt.match(r.URL.Path) {
			return rt.handle(r)
		}
	}
	return methodNotAllowed(), nil
}

func anyPath(string) bool { return true }

func isTransformPath(path string) bool {
	return strings.HasSuffix(path, "/transform")
}

func methodNotAllowed() *Result {
	return &Result{
		Status:      http.StatusMethodNotAllowed,
		Raw:         []byte("Method not allowed"),
		ContentType: "text/plain; charset=utf-8",
	}
}
