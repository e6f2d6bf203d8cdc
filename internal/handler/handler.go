// Package handler implements the per-connection request loop: a
// restricted HTTP/1.x server with keep-alive, idle timeout, traversal
// guards, directory-index resolution, and zero-copy file transmission.
package handler

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"queuedfs/internal/fsresolve"
	"queuedfs/internal/protocol"
	"queuedfs/internal/reqline"
	"queuedfs/internal/util"
)

const (
	readBufSize  = 8 * 1024
	maxKeepAlive = 8
	idleTimeout  = 60 * time.Second
)

// Handle serves conn to completion: up to maxKeepAlive requests, each read
// into one readBufSize buffer reused across requests, against files rooted at docroot. It
// returns the bytes of response body written and the HTTP status of the
// last response emitted, for the metrics aggregator. The caller — the
// worker pool — closes conn; Handle must not.
func Handle(conn net.Conn, docroot string, log *zap.Logger) (bytesSent int64, lastStatus int, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	connID := util.NewConnID()
	log.Debug("connection open", zap.String("conn_id", connID))
	defer log.Debug("connection close", zap.String("conn_id", connID))

	buf := make([]byte, readBufSize)

	for request := 0; request < maxKeepAlive; request++ {
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return bytesSent, lastStatus, err
		}

		// Go's runtime poller retries an interrupted read internally — the
		// original's explicit EINTR loop has no surface here.
		n, rerr := conn.Read(buf)
		if n == 0 && rerr == nil {
			return bytesSent, lastStatus, nil // orderly close
		}
		if rerr != nil {
			if isTimeoutOrEOF(rerr) {
				return bytesSent, lastStatus, nil // idle close
			}
			return bytesSent, lastStatus, rerr // terminal
		}

		sl, perr := reqline.Parse(buf[:n])
		if perr != nil {
			// The start-line did not yield bounded method and path tokens,
			// so no keep-alive decision is made for it: hard-terminate,
			// whichever request on the connection this is.
			status := protocol.Status(perr)
			_ = reqline.WriteError(conn, status)
			return bytesSent, status, nil
		}

		keepAlive := reqline.KeepAlive(sl.Version, buf[:n])

		sent, status, werr := serveOne(conn, docroot, sl, keepAlive)
		bytesSent += sent
		lastStatus = status
		if werr != nil {
			return bytesSent, status, werr
		}
		if !keepAlive {
			return bytesSent, status, nil
		}
	}

	return bytesSent, lastStatus, nil // max keep-alive requests reached
}

// serveOne resolves and (for GET) transmits a single request's response.
// It returns (0 on success for a write it couldn't even start) the bytes
// of body written and the status emitted; a non-nil error means the
// connection is no longer usable (header emission failed).
func serveOne(conn net.Conn, docroot string, sl reqline.StartLine, keepAlive bool) (int64, int, error) {
	if sl.Method != "GET" && sl.Method != "HEAD" {
		status, werr := writeClassified(conn, protocol.ErrMethodNotAllowed)
		return 0, status, werr
	}

	if fsresolve.Traversal(sl.Path) {
		status, werr := writeClassified(conn, protocol.ErrTraversal)
		return 0, status, werr
	}

	path := fsresolve.Resolve(docroot, sl.Path)
	info, statErr := os.Stat(path)
	if statErr == nil && info.IsDir() {
		path = filepath.Join(path, fsresolve.IndexFile)
		info, statErr = os.Stat(path)
	}
	if statErr != nil {
		status, werr := writeClassified(conn, protocol.ErrNotFound)
		return 0, status, werr
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		status, werr := writeClassified(conn, openErr) // unclassified -> 500
		return 0, status, werr
	}
	defer f.Close()

	size := info.Size()
	if err := reqline.WriteOK(conn, size, keepAlive); err != nil {
		return 0, 200, err
	}

	// A rewrite intentionally deviates from the original here: HEAD
	// suppresses the body while still advertising the full Content-Length.
	if sl.Method == "HEAD" {
		return 0, 200, nil
	}

	// Headers are already committed at this point: a body transmission
	// failure truncates the response but does not make the connection
	// itself unusable, so it is not propagated as an error.
	sent, _ := transmit(conn, f, size)
	return sent, 200, nil
}

// writeClassified maps a protocol sentinel (or any other error, which
// falls back to 500) to its wire status and writes the error response,
// returning the status that was written and any write failure.
func writeClassified(conn net.Conn, classified error) (int, error) {
	status := protocol.Status(classified)
	if err := reqline.WriteError(conn, status); err != nil {
		return status, err
	}
	return status, nil
}

func isTimeoutOrEOF(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
