// Package pool implements the producer/consumer worker pool: N workers
// coordinating around a pluggable sched.Scheduler under a single mutex
// with paired full/empty condition variables, including graceful
// drain-or-exit on shutdown and policy hot-swap on a live pool.
package pool

import (
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"queuedfs/internal/job"
	"queuedfs/internal/metrics"
	"queuedfs/internal/sched"
)

// ErrShutdown is returned by SubmitJob once the pool has begun shutting
// down.
var ErrShutdown = errors.New("pool: shutting down")

const defaultDocroot = "./www"

// HandleFunc serves one accepted connection to completion. It owns conn
// for the call's duration but must not close it — the worker does that on
// every exit path, guaranteeing each socket is closed exactly once. It
// reports the bytes of response body written and the HTTP status of the
// last response emitted, for the metrics aggregator.
type HandleFunc func(conn net.Conn, docroot string) (bytesSent int64, status int, err error)

type runState int32

const (
	running runState = iota
	shuttingDown
)

// Pool owns the active scheduler (by pointer, so the policy can be
// hot-swapped), the worker goroutine set, the document root, and the
// mutex/condvar pair guarding all of it.
type Pool struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	sched   sched.Scheduler
	docroot string
	handle  HandleFunc
	metrics *metrics.Metrics
	log     *zap.Logger

	state runState
	wg    sync.WaitGroup
}

// Config configures a new Pool.
type Config struct {
	Workers  int
	Capacity int
	Docroot  string
	Handle   HandleFunc
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// New starts nworkers goroutines around a FIFO scheduler of the given
// capacity (the pool's default policy; call SetScheduler to switch to
// SJF). Unlike pthread_create, a Go goroutine launch cannot itself fail,
// so the "best-effort, survivors keep running" behavior the C original
// needs collapses to: every requested worker always starts.
func New(cfg Config) *Pool {
	docroot := cfg.Docroot
	if docroot == "" {
		docroot = defaultDocroot
	}
	logger := cfg.Log
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		logger.Warn("nonpositive worker count requested, starting 1", zap.Int("requested", cfg.Workers))
		workers = 1
	}

	p := &Pool{
		sched:   sched.NewFIFO(cfg.Capacity),
		docroot: docroot,
		handle:  cfg.Handle,
		metrics: cfg.Metrics,
		log:     logger,
	}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// SetScheduler hot-swaps the active policy. Queued jobs are drained from
// the old scheduler into the new one under the pool lock before the
// pointer swap, so no already-admitted connection is lost. If the new
// scheduler has less capacity than the jobs in flight, the undrained
// remainder is rejected and their connections closed — callers should
// only grow or hold capacity steady across a swap.
func (p *Pool) SetScheduler(newSched sched.Scheduler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		j, status := p.sched.Pop()
		if status == sched.Empty {
			break
		}
		if newSched.Push(j) == sched.Full {
			p.log.Error("scheduler hot-swap: new scheduler too small to hold drained backlog, dropping connection")
			_ = j.Conn.Close()
		}
	}
	p.sched = newSched
	p.notFull.Broadcast()
}

// Submit wraps conn in a Job with EstCost 0 and submits it — a thin entry
// point for a caller with no estimate to offer. The acceptor does not use
// it; it always calls SubmitJob with its own estimate.
func (p *Pool) Submit(conn net.Conn) error {
	return p.SubmitJob(job.Job{Conn: conn, ArrivalMS: nowMS()})
}

// SubmitJob is the primary entry point. It blocks on not_full while the
// scheduler is at capacity, and returns ErrShutdown once the pool has
// begun shutting down — whether that was already true at entry or was
// observed while waiting.
func (p *Pool) SubmitJob(j job.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.state == shuttingDown {
			return ErrShutdown
		}
		if p.sched.Push(j) == sched.OK {
			p.notEmpty.Signal()
			return nil
		}
		p.notFull.Wait()
	}
}

// Shutdown moves the pool to SHUTTING_DOWN, wakes every blocked worker
// and submitter, and blocks until every worker has drained the queue and
// exited. After Shutdown returns, no worker goroutine is running and
// every job pushed before the call was handed to a worker.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.state = shuttingDown
	p.notEmpty.Broadcast()
	p.notFull.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		j, status := p.sched.Pop()
		for status == sched.Empty && p.state != shuttingDown {
			p.notEmpty.Wait()
			j, status = p.sched.Pop()
		}
		if status == sched.Empty {
			// Shutdown observed with the queue drained: nothing left to do.
			p.mu.Unlock()
			return
		}
		// A slot just freed; wake one blocked submitter before releasing
		// the lock so the wakeup can't be missed.
		p.notFull.Signal()
		if p.metrics != nil {
			p.metrics.IncPop(j.EstCost)
		}
		p.mu.Unlock()

		p.runJob(j)
	}
}

func (p *Pool) runJob(j job.Job) {
	start := time.Now()
	defer func() { _ = j.Conn.Close() }()

	bytesSent, status, err := p.handle(j.Conn, p.docroot)
	latencyMS := time.Since(start).Milliseconds()

	if p.metrics != nil {
		p.metrics.RecordRequest(latencyMS, bytesSent, status)
	}
	if err != nil {
		p.log.Warn("connection handling error", zap.Error(err))
	}
}

func nowMS() int64 { return time.Now().UnixMilli() }
