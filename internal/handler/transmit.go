package handler

import (
	"errors"
	"io"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

const copyBufSize = 8 * 1024

// transmit sends size bytes of f's content to conn. On a *net.TCPConn it
// uses the platform's zero-copy file-to-socket primitive (sendfile);
// anything else falls back to a read-into-buffer-then-write loop.
func transmit(conn net.Conn, f *os.File, size int64) (int64, error) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		sent, err := sendfile(tcp, f, size)
		if err == nil {
			return sent, nil
		}
		// Sendfile can fail partway (e.g. ENOSYS on an unsupported
		// kernel/filesystem pairing); fall back for whatever is left.
		remaining := size - sent
		if remaining <= 0 {
			return sent, err
		}
		// sendfile advances its own offset, not f's: resume the copy at
		// the first byte sendfile did not send.
		if _, serr := f.Seek(sent, io.SeekStart); serr != nil {
			return sent, serr
		}
		more, ferr := copyLoop(conn, f, remaining)
		return sent + more, ferr
	}
	return copyLoop(conn, f, size)
}

// sendfile transmits up to size bytes from f to conn's underlying socket
// via the sendfile(2) syscall, looping until size bytes are sent, EOF, or
// an error. It returns the bytes actually sent even on error.
func sendfile(conn *net.TCPConn, f *os.File, size int64) (int64, error) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	var (
		sent    int64
		off     int64
		sendErr error
	)
	ctrlErr := rawConn.Write(func(dstFD uintptr) bool {
		for sent < size {
			n, err := unix.Sendfile(int(dstFD), int(f.Fd()), &off, int(size-sent))
			if n > 0 {
				sent += int64(n)
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return false // ask the runtime poller to wait for writability
			}
			if err != nil {
				sendErr = err
				return true
			}
			if n == 0 {
				return true // EOF on the source file
			}
		}
		return true
	})
	if ctrlErr != nil {
		return sent, ctrlErr
	}
	return sent, sendErr
}

// copyLoop reads f into a fixed scratch buffer and writes it to conn until
// size bytes are copied or an error occurs. Every write is a complete
// write: partial sends are looped over.
func copyLoop(conn net.Conn, f *os.File, size int64) (int64, error) {
	buf := make([]byte, copyBufSize)
	var sent int64
	for sent < size {
		toRead := int64(len(buf))
		if remaining := size - sent; remaining < toRead {
			toRead = remaining
		}
		n, rerr := f.Read(buf[:toRead])
		if n > 0 {
			if werr := writeAll(conn, buf[:n]); werr != nil {
				return sent, werr
			}
			sent += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return sent, rerr
		}
	}
	return sent, nil
}

// writeAll loops over conn.Write until all of b is sent or an error
// occurs.
func writeAll(conn net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
