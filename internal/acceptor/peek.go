package acceptor

import (
	"net"

	"golang.org/x/sys/unix"
)

// peek performs a non-consuming read of up to max bytes from conn via
// MSG_PEEK, leaving the data in the socket's receive buffer for the
// worker's own read. It only works on a *net.TCPConn; anything else (and
// any syscall failure) reports ok=false.
func peek(conn net.Conn, max int) ([]byte, bool) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, false
	}
	rawConn, err := tcp.SyscallConn()
	if err != nil {
		return nil, false
	}

	buf := make([]byte, max)
	var n int
	var recvErr error
	ctrlErr := rawConn.Read(func(fd uintptr) bool {
		n, _, recvErr = unix.Recvfrom(int(fd), buf, unix.MSG_PEEK)
		return true // report whatever we got; don't wait for more
	})
	if ctrlErr != nil || recvErr != nil || n <= 0 {
		return nil, false
	}
	return buf[:n], true
}
