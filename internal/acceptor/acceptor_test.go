package acceptor

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"queuedfs/internal/job"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	jobs []job.Job
	err  error
}

func (f *fakeSubmitter) SubmitJob(j job.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, j)
	return nil
}

func (f *fakeSubmitter) snapshot() []job.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]job.Job, len(f.jobs))
	copy(out, f.jobs)
	return out
}

func newTestListener(t *testing.T) *net.TCPListener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln.(*net.TCPListener)
}

func TestAcceptor_EstimatesFromPeekedRequest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "small.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	ln := newTestListener(t)
	defer ln.Close()
	sub := &fakeSubmitter{}
	a := New(ln, dir, sub, nil, nil)

	runDone := make(chan error, 1)
	go func() { runDone <- a.Run() }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("GET /small.txt HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sub.snapshot()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	jobs := sub.snapshot()
	if len(jobs) != 1 {
		t.Fatalf("got %d submitted jobs, want 1", len(jobs))
	}
	if jobs[0].EstCost != 5 {
		t.Fatalf("EstCost = %d, want 5 (size of small.txt)", jobs[0].EstCost)
	}

	a.Stop()
	ln.Close()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop+listener close")
	}
}

func TestAcceptor_ClosesConnectionWhenSubmitFails(t *testing.T) {
	ln := newTestListener(t)
	defer ln.Close()
	sub := &fakeSubmitter{err: errors.New("pool shutting down")}
	a := New(ln, t.TempDir(), sub, nil, nil)

	go func() { _ = a.Run() }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, rerr := conn.Read(buf)
	if rerr == nil {
		t.Fatal("want the connection closed by the acceptor after a failed submit")
	}

	a.Stop()
	ln.Close()
}
