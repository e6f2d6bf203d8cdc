package reqline

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParse_ValidRequestLine(t *testing.T) {
	sl, err := Parse([]byte("GET /small.txt HTTP/1.1\r\nHost: x\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if sl.Method != "GET" || sl.Path != "/small.txt" || sl.Version != "HTTP/1.1" {
		t.Fatalf("parsed = %+v", sl)
	}
}

func TestParse_MissingVersionIsNotAnError(t *testing.T) {
	sl, err := Parse([]byte("GET /x\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if sl.Method != "GET" || sl.Path != "/x" || sl.Version != "" {
		t.Fatalf("parsed = %+v", sl)
	}
}

func TestParse_MissingPathIsBadRequest(t *testing.T) {
	_, err := Parse([]byte("GET\r\n\r\n"))
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("want ErrBadRequest, got %v", err)
	}
}

func TestParse_EmptyBufferIsBadRequest(t *testing.T) {
	_, err := Parse([]byte(""))
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("want ErrBadRequest, got %v", err)
	}
}

func TestParse_OversizeTokensRejected(t *testing.T) {
	longMethod := strings.Repeat("A", maxMethod+1)
	_, err := Parse([]byte(longMethod + " /x HTTP/1.1\r\n\r\n"))
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("want ErrBadRequest for oversize method, got %v", err)
	}

	longPath := "/" + strings.Repeat("a", maxPath)
	_, err = Parse([]byte("GET " + longPath + " HTTP/1.1\r\n\r\n"))
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("want ErrBadRequest for oversize path, got %v", err)
	}
}

func TestParse_BareLFTerminatorAccepted(t *testing.T) {
	sl, err := Parse([]byte("HEAD /x HTTP/1.0\nConnection: close\n\n"))
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if sl.Method != "HEAD" || sl.Version != "HTTP/1.0" {
		t.Fatalf("parsed = %+v", sl)
	}
}

func TestKeepAlive_DefaultsByVersion(t *testing.T) {
	if KeepAlive("HTTP/1.0", []byte("GET / HTTP/1.0\r\n\r\n")) {
		t.Fatal("HTTP/1.0 with no Connection header must default to close")
	}
	if !KeepAlive("HTTP/1.1", []byte("GET / HTTP/1.1\r\n\r\n")) {
		t.Fatal("HTTP/1.1 with no Connection header must default to keep-alive")
	}
}

func TestKeepAlive_ConnectionHeaderOverridesDefault(t *testing.T) {
	if !KeepAlive("HTTP/1.0", []byte("GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n")) {
		t.Fatal("explicit keep-alive must override the HTTP/1.0 default")
	}
	if KeepAlive("HTTP/1.1", []byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")) {
		t.Fatal("explicit close must override the HTTP/1.1 default")
	}
}

func TestKeepAlive_ScanIsCaseInsensitiveSubstring(t *testing.T) {
	if KeepAlive("HTTP/1.1", []byte("GET / HTTP/1.1\r\nCONNECTION: CLOSE\r\n\r\n")) {
		t.Fatal("scan must be case-insensitive")
	}
}

func TestWriteOK_HeaderFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOK(&buf, 5, true); err != nil {
		t.Fatalf("WriteOK err: %v", err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("status line: %q", got)
	}
	if !strings.Contains(got, "Content-Length: 5\r\n") {
		t.Fatalf("missing Content-Length: %q", got)
	}
	if !strings.Contains(got, "Connection: keep-alive\r\n") {
		t.Fatalf("missing Connection: %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Fatalf("header must end with blank line: %q", got)
	}
}

func TestWriteError_NeverAdvertisesConnection(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteError(&buf, 403); err != nil {
		t.Fatalf("WriteError err: %v", err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "HTTP/1.1 403 Forbidden\r\n") {
		t.Fatalf("status line: %q", got)
	}
	if strings.Contains(got, "Connection:") {
		t.Fatalf("error response must not advertise Connection: %q", got)
	}
}
