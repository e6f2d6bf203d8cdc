// Package job defines the unit of work that flows from the acceptor,
// through a scheduler, to a worker.
package job

import "net"

// Job couples an accepted connection with the scheduling metadata the
// acceptor derived for it. Exactly one worker consumes a Job and is
// responsible for closing Conn on every exit path; schedulers that carry
// a Job in their internal storage do not own Conn.
type Job struct {
	Conn net.Conn

	// EstCost is the acceptor's best-effort estimate of the response body
	// size in bytes, or 0 when the estimate is unknown (peek failed, the
	// path doesn't resolve, etc). Immutable after submission.
	EstCost int64

	// Priority is a reserved tie-break. Neither FIFO nor SJF consults it
	// today; it exists so a future policy can without changing the Job
	// schema.
	Priority int64

	// ArrivalMS is the submission time in Unix milliseconds, read from the
	// wall clock (time.Now), used by SJF as the tie-break among equal-cost
	// jobs. It is not monotonic: a system clock adjustment can step it.
	ArrivalMS int64
}
