// Package fsresolve maps a request path onto a filesystem path beneath a
// document root, the one resolution rule shared by the request handler
// and the acceptor's cost estimator.
package fsresolve

import (
	"path/filepath"
	"strings"
)

// IndexFile is appended when the request path resolves to a directory.
const IndexFile = "index.html"

// Traversal reports whether reqPath contains the substring ".." anywhere
// (not only as a whole path segment, so "/a..b" matches too) and must be
// refused before any filesystem access.
func Traversal(reqPath string) bool {
	return strings.Contains(reqPath, "..")
}

// Resolve maps reqPath onto a filesystem path under docroot. An empty path
// or "/" resolves to docroot/index.html; anything else resolves to
// docroot/<path-minus-leading-slash>. It does not touch the filesystem —
// callers still need to stat the result and, if it names a directory,
// append IndexFile and stat again.
func Resolve(docroot, reqPath string) string {
	if reqPath == "" || reqPath == "/" {
		return filepath.Join(docroot, IndexFile)
	}
	return filepath.Join(docroot, strings.TrimPrefix(reqPath, "/"))
}
