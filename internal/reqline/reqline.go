// Package reqline implements the restricted HTTP/1.x wire format the
// request handler speaks: a bounded-width start-line parser, a
// deliberately header-unaware Connection scan, and the fixed set of
// response writers the handler emits.
package reqline

import (
	"bytes"
	"fmt"
	"io"

	"queuedfs/internal/protocol"
)

// Bounded token widths. A start-line with any token exceeding these is
// rejected rather than parsed with an unbounded scan.
const (
	maxMethod  = 15
	maxPath    = 1023
	maxVersion = 15
)

// ErrBadRequest means the start-line could not be split into at least a
// method and a path. It is protocol.ErrBadRequest itself, not a distinct
// value, so callers can classify a parse failure with protocol.Status
// without an extra wrap/unwrap step.
var ErrBadRequest = protocol.ErrBadRequest

// StartLine is the parsed first line of an HTTP/1.x request.
type StartLine struct {
	Method  string
	Path    string
	Version string // empty when the request omitted it
}

// Parse extracts the start-line from the front of buf. It does not require
// buf to contain the full request — only the first line, terminated by
// '\n' (optionally preceded by '\r'), with whitespace-delimited tokens
// bounded to maxMethod/maxPath/maxVersion. A missing method or path is
// ErrBadRequest; a missing version is not an error — version is returned
// empty.
func Parse(buf []byte) (StartLine, error) {
	line := buf
	if nl := bytes.IndexByte(buf, '\n'); nl >= 0 {
		line = buf[:nl]
	}
	line = bytes.TrimRight(line, "\r")

	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return StartLine{}, ErrBadRequest
	}
	method, path := fields[0], fields[1]
	if len(method) > maxMethod || len(path) > maxPath {
		return StartLine{}, ErrBadRequest
	}

	var version []byte
	if len(fields) >= 3 {
		version = fields[2]
		if len(version) > maxVersion {
			return StartLine{}, ErrBadRequest
		}
	}

	return StartLine{Method: string(method), Path: string(path), Version: string(version)}, nil
}

// KeepAlive applies the negotiated keep-alive decision: HTTP/1.0 defaults
// to close, anything else defaults to keep-alive, and either default is
// overridden by a case-insensitive substring scan of the whole request
// buffer for "Connection: close" or "Connection: keep-alive". This is a
// deliberate simplification — it is not aware of header boundaries and can
// be fooled by a value elsewhere in the buffer that happens to contain
// these strings.
func KeepAlive(version string, buf []byte) bool {
	def := version != "HTTP/1.0"

	lower := bytes.ToLower(buf)
	switch {
	case bytes.Contains(lower, []byte("connection: close")):
		return false
	case bytes.Contains(lower, []byte("connection: keep-alive")):
		return true
	default:
		return def
	}
}

// WriteOK emits the header for a 200 response: size is the Content-Length,
// keepAlive selects the advertised Connection value. The caller writes the
// body (or skips it, for HEAD) separately.
func WriteOK(w io.Writer, size int64, keepAlive bool) error {
	conn := "close"
	if keepAlive {
		conn = "keep-alive"
	}
	_, err := fmt.Fprintf(w, "HTTP/1.1 200 OK\r\nContent-Length: %d\r\nConnection: %s\r\n\r\n", size, conn)
	return err
}

var statusText = map[int]string{
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

// WriteError emits a minimal error response for one of the fixed status
// codes the handler produces. Error responses never advertise a Connection
// header — the caller decides independently whether to keep the
// connection open.
func WriteError(w io.Writer, status int) error {
	text, ok := statusText[status]
	if !ok {
		text = "Internal Server Error"
	}
	body := text + "\n"
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Length: %d\r\n\r\n%s", status, text, len(body), body)
	return err
}
