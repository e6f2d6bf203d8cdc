// Package metrics is the process-wide counter bank: a fixed set of
// monotonically non-decreasing atomics updated lock-free from the acceptor
// and worker goroutines, plus a reporter goroutine that periodically prints
// a derived summary line to the structured log.
package metrics

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Metrics holds the counter bank. The zero value is not usable; construct
// with New.
type Metrics struct {
	submitsTotal  int64
	submitsEst0   int64
	popsTotal     int64
	requestsTotal int64
	bytesTotal    int64
	errorsTotal   int64
	sumLatencyMS  int64

	log  *zap.Logger
	stop chan struct{}
	done chan struct{}
}

// New returns an initialized, empty counter bank. log may be nil, in which
// case a no-op logger is used and the reporter never prints.
func New(log *zap.Logger) *Metrics {
	if log == nil {
		log = zap.NewNop()
	}
	return &Metrics{log: log}
}

// IncSubmit records one job submission attempt; the acceptor calls it
// before SubmitJob, so a submit the pool refuses is counted too. est is the acceptor's
// cost estimate for that job; a zero estimate is tallied separately so the
// reporter can derive the percentage of submits with unknown cost.
func (m *Metrics) IncSubmit(est int64) {
	atomic.AddInt64(&m.submitsTotal, 1)
	if est == 0 {
		atomic.AddInt64(&m.submitsEst0, 1)
	}
}

// IncPop records one job dequeued by a worker.
func (m *Metrics) IncPop(est int64) {
	atomic.AddInt64(&m.popsTotal, 1)
}

// RecordRequest records one completed connection handling pass: its latency
// in milliseconds, the response bytes written, and the HTTP status of the
// last response emitted. A status of 0 or >=400 counts as an error.
func (m *Metrics) RecordRequest(latencyMS, bytesSent int64, status int) {
	atomic.AddInt64(&m.requestsTotal, 1)
	atomic.AddInt64(&m.bytesTotal, bytesSent)
	atomic.AddInt64(&m.sumLatencyMS, latencyMS)
	if status == 0 || status >= 400 {
		atomic.AddInt64(&m.errorsTotal, 1)
	}
}

// snapshot is a point-in-time read of every counter, returned by load for
// interval math in the reporter.
type snapshot struct {
	submitsTotal, submitsEst0, popsTotal                 int64
	requestsTotal, bytesTotal, errorsTotal, sumLatencyMS int64
}

func (m *Metrics) load() snapshot {
	return snapshot{
		submitsTotal:  atomic.LoadInt64(&m.submitsTotal),
		submitsEst0:   atomic.LoadInt64(&m.submitsEst0),
		popsTotal:     atomic.LoadInt64(&m.popsTotal),
		requestsTotal: atomic.LoadInt64(&m.requestsTotal),
		bytesTotal:    atomic.LoadInt64(&m.bytesTotal),
		errorsTotal:   atomic.LoadInt64(&m.errorsTotal),
		sumLatencyMS:  atomic.LoadInt64(&m.sumLatencyMS),
	}
}

// StartReporter launches the reporter goroutine, which sleeps interval
// between prints. Calling StartReporter twice without an intervening
// StopReporter leaks the first goroutine; callers own exactly one of each
// per Metrics.
func (m *Metrics) StartReporter(interval time.Duration) {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := m.load()
		prevAt := time.Now()
		for {
			select {
			case <-m.stop:
				return
			case now := <-ticker.C:
				cur := m.load()
				m.report(cur, prev, now.Sub(prevAt))
				prev = cur
				prevAt = now
			}
		}
	}()
}

// StopReporter signals the reporter to exit and waits for it to do so. It
// is a no-op if StartReporter was never called.
func (m *Metrics) StopReporter() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
}

func (m *Metrics) report(cur, prev snapshot, elapsed time.Duration) {
	secs := elapsed.Seconds()
	if secs <= 0 {
		secs = 1
	}
	reqDelta := cur.requestsTotal - prev.requestsTotal
	byteDelta := cur.bytesTotal - prev.bytesTotal

	var avgLatencyMS float64
	if cur.requestsTotal > 0 {
		avgLatencyMS = float64(cur.sumLatencyMS) / float64(cur.requestsTotal)
	}
	var pctEst0 float64
	if cur.submitsTotal > 0 {
		pctEst0 = 100 * float64(cur.submitsEst0) / float64(cur.submitsTotal)
	}

	m.log.Info("metrics",
		zap.Int64("requests_total", cur.requestsTotal),
		zap.Float64("req_per_sec", float64(reqDelta)/secs),
		zap.Float64("mb_per_sec", float64(byteDelta)/secs/1e6),
		zap.Float64("avg_latency_ms", avgLatencyMS),
		zap.Int64("errors_total", cur.errorsTotal),
		zap.Int64("submits_total", cur.submitsTotal),
		zap.Float64("submits_est0_pct", pctEst0),
		zap.Int64("pops_total", cur.popsTotal),
	)
}
