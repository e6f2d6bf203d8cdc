// Package protocol defines the sentinel errors the request handler
// classifies a failed request into before translating it to a wire
// status code. Kept in the teacher's idiom of explicit sentinel errors
// (internal/http10.ErrBadRequest, ErrBadProto in the teacher) rather than
// bare status-code literals passed around ad hoc.
package protocol

import "errors"

var (
	// ErrBadRequest means the request's start-line could not be parsed.
	ErrBadRequest = errors.New("protocol: malformed request")
	// ErrMethodNotAllowed means the request used a method other than GET
	// or HEAD.
	ErrMethodNotAllowed = errors.New("protocol: method not allowed")
	// ErrTraversal means the request path attempted to escape the docroot.
	ErrTraversal = errors.New("protocol: path traversal rejected")
	// ErrNotFound means the resolved path does not exist or is not a
	// regular file.
	ErrNotFound = errors.New("protocol: resource not found")
)

// Status translates a classified error into the HTTP status code the
// handler writes. Any error not one of the four sentinels above (wrapped
// or not) maps to 500, matching the handler's own internal-error branch.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return 400
	case errors.Is(err, ErrMethodNotAllowed):
		return 405
	case errors.Is(err, ErrTraversal):
		return 403
	case errors.Is(err, ErrNotFound):
		return 404
	default:
		return 500
	}
}
