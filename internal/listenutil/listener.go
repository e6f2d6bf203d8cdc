// Package listenutil builds the listening socket. It exists because
// net.Listen gives no way to choose the accept backlog, and this server's
// external interface fixes one (128).
package listenutil

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Listen creates, binds, and listens on a TCP/IPv4 socket bound to
// 0.0.0.0:port with the given accept backlog, then wraps it as a
// net.Listener via the os.File/net.FileListener bridge.
func Listen(port, backlog int) (net.Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("listenutil: socket: %w", err)
	}
	// On failure past this point, fd must still be closed — no listener
	// has taken ownership of it yet.
	closeFD := true
	defer func() {
		if closeFD {
			_ = unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, fmt.Errorf("listenutil: setsockopt SO_REUSEADDR: %w", err)
	}

	addr := unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, &addr); err != nil {
		return nil, fmt.Errorf("listenutil: bind :%d: %w", port, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, fmt.Errorf("listenutil: listen backlog=%d: %w", backlog, err)
	}

	file := os.NewFile(uintptr(fd), fmt.Sprintf("listener-:%d", port))
	closeFD = false // file now owns fd
	ln, err := net.FileListener(file)
	// net.FileListener dup()s the fd internally; the original (and the
	// os.File wrapping it) must be closed either way.
	_ = file.Close()
	if err != nil {
		return nil, fmt.Errorf("listenutil: net.FileListener: %w", err)
	}
	return ln, nil
}
