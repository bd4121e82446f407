package gateway

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gallery-widget/gateway/internal/response"
)

// codeStoreUnbound marks the configuration error raised when no object store is bound.
const codeStoreUnbound = "storage_unbound"

// Error is an expected failure with a fixed status. Any other error returned
// by a handler is treated as an unexpected fault.
type Error struct {
	Status  int
	Message string
	Code    string
	Hint    string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) result() *Result {
	return &Result{
		Status: e.Status,
		Body:   response.ErrorBody{Error: e.Message, Code: e.Code, Hint: e.Hint},
	}
}

func errStoreUnbound() *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: "object store is not bound",
		Code:    codeStoreUnbound,
		Hint:    "bind the album bucket: set STORAGE_DRIVER (minio, s3 or memory) and STORAGE_BUCKET",
	}
}

func errMissing(fields ...string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Message: "missing required field(s): " + strings.Join(fields, ", "),
	}
}

func errNotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func errReadFailed(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: "failed to read image: " + err.Error(),
	}
}

// panicError carries a recovered panic and the stack captured at recovery.
type panicError struct {
	value interface{}
	stack string
}

func (p *panicError) Error() string { return fmt.Sprint(p.value) }

// faultResult converts any handler error into a response. Expected errors keep
// their status; everything else becomes a 500 exposing message, stack and kind.
// A recovered panic reports the stack captured at the panic site. Other errors
// carry no stack of their own, so the reported stack is the one at conversion
// and does not point at where the error was created.
func faultResult(err error) *Result {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.result()
	}

	kind := fmt.Sprintf("%T", err)
	stack := ""
	var p *panicError
	if errors.As(err, &p) {
		kind = "panic"
		stack = p.stack
	} else {
		stack = string(debug.Stack())
	}

	log.Printf("gateway error: %s (%s)", err, kind)
	return &Result{
		Status: http.StatusInternalServerError,
		Body:   response.ErrorBody{Error: err.Error(), Stack: stack, Type: kind},
	}
}
