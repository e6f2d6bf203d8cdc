// Package acceptor implements the accept loop: for every inbound
// connection it attempts a non-consuming peek of the request to estimate
// the response cost, then submits a job to the worker pool.
package acceptor

import (
	"errors"
	"net"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"queuedfs/internal/fsresolve"
	"queuedfs/internal/job"
	"queuedfs/internal/metrics"
	"queuedfs/internal/reqline"
)

// peekSize bounds the non-consuming read used to estimate cost.
const peekSize = 4095

// Submitter is the subset of *pool.Pool the acceptor depends on, so tests
// can substitute a fake without constructing a real pool.
type Submitter interface {
	SubmitJob(j job.Job) error
}

// Acceptor owns the listening socket and turns each accepted connection
// into an estimated, submitted job.
type Acceptor struct {
	ln      net.Listener
	docroot string
	pool    Submitter
	metrics *metrics.Metrics
	log     *zap.Logger

	stopping int32
}

// New returns an Acceptor bound to ln, estimating against docroot and
// submitting into pool.
func New(ln net.Listener, docroot string, pool Submitter, m *metrics.Metrics, log *zap.Logger) *Acceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Acceptor{ln: ln, docroot: docroot, pool: pool, metrics: m, log: log}
}

// Stop asks Run to exit its loop after the in-flight Accept call returns.
// Typically paired with closing the listener so that Accept unblocks
// immediately with an error.
func (a *Acceptor) Stop() {
	atomic.StoreInt32(&a.stopping, 1)
}

// Run accepts connections until Stop is called or Accept fails for a
// reason other than a transient interrupt. It returns nil on a clean
// stop (the listener was closed) and the terminal error otherwise.
func (a *Acceptor) Run() error {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if atomic.LoadInt32(&a.stopping) == 1 {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() { //nolint:staticcheck // accept retries transient errors
				continue
			}
			return err
		}
		if atomic.LoadInt32(&a.stopping) == 1 {
			_ = conn.Close()
			return nil
		}

		est := a.estimate(conn)
		j := job.Job{Conn: conn, EstCost: est, ArrivalMS: time.Now().UnixMilli()}

		if a.metrics != nil {
			a.metrics.IncSubmit(est)
		}
		a.log.Debug("submit", zap.Int64("est", est))

		if err := a.pool.SubmitJob(j); err != nil {
			a.log.Warn("submit failed, closing connection", zap.Error(err))
			_ = conn.Close()
		}
	}
}

// estimate attempts a best-effort, non-consuming peek of the inbound
// request to derive a response-size estimate. Any failure along the way —
// the peek, the start-line parse, a traversal path, a missing file — just
// leaves the estimate at 0 ("unknown"), which SJF treats as highest
// priority rather than penalizing a slow or partial sender.
func (a *Acceptor) estimate(conn net.Conn) int64 {
	buf, ok := peek(conn, peekSize)
	if !ok {
		return 0
	}

	sl, err := reqline.Parse(buf)
	if err != nil {
		return 0
	}
	if fsresolve.Traversal(sl.Path) {
		return 0
	}

	path := fsresolve.Resolve(a.docroot, sl.Path)
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if info.IsDir() {
		return 0
	}
	return info.Size()
}
