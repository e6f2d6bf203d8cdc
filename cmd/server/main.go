package main

import (
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"queuedfs/internal/acceptor"
	"queuedfs/internal/handler"
	"queuedfs/internal/listenutil"
	"queuedfs/internal/log"
	"queuedfs/internal/metrics"
	"queuedfs/internal/pool"
	"queuedfs/internal/sched"
)

const (
	defaultPort    = 8080
	defaultWorkers = 4
	defaultDocroot = "./www"

	queueCapacity  = 1024
	listenBacklog  = 128
	reportInterval = 5 * time.Second

	defaultScheduler = "sjf"
)

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	os.Exit(run())
}

func run() int {
	debug := pflag.Bool("debug", false, "verbose development logging")
	schedFlag := pflag.String("scheduler", "", "scheduling policy: fifo or sjf (default sjf; CLI overrides SCHEDULER env)")
	portFlag := pflag.Int("port", 0, "listen port (overrides the positional port argument)")
	workersFlag := pflag.Int("workers", 0, "worker count (overrides the positional workers argument and WORKERS env)")
	docrootFlag := pflag.String("docroot", "", "document root (overrides the positional docroot argument)")
	pflag.Parse()

	lg := log.New(*debug)
	defer func() { _ = lg.Sync() }()

	args := pflag.Args()
	port := intArg(args, 0, defaultPort)
	if *portFlag > 0 {
		port = *portFlag
	}
	workers := intArg(args, 1, getenvInt("WORKERS", defaultWorkers))
	if *workersFlag > 0 {
		workers = *workersFlag
	}
	docroot := strArg(args, 2, defaultDocroot)
	if *docrootFlag != "" {
		docroot = *docrootFlag
	}

	ln, err := listenutil.Listen(port, listenBacklog)
	if err != nil {
		lg.Error("listen failed", zap.Int("port", port), zap.Error(err))
		return 1
	}

	m := metrics.New(lg)
	m.StartReporter(reportInterval)

	p := pool.New(pool.Config{
		Workers:  workers,
		Capacity: queueCapacity,
		Docroot:  docroot,
		Metrics:  m,
		Log:      lg,
		Handle: func(conn net.Conn, root string) (int64, int, error) {
			return handler.Handle(conn, root, lg)
		},
	})

	applyScheduler(p, lg, *schedFlag)

	lg.Info("server starting",
		zap.Int("port", port),
		zap.Int("workers", workers),
		zap.String("docroot", docroot),
	)

	a := acceptor.New(ln, docroot, p, m, lg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		a.Stop()
		_ = ln.Close()
	}()

	runErr := a.Run()

	// Shutdown order: pool.destroy (drains queued connections), then the
	// listener is already closed above, then metrics shutdown.
	p.Shutdown()
	m.StopReporter()

	if runErr != nil {
		lg.Error("accept loop terminated", zap.Error(runErr))
		return 1
	}
	return 0
}

func intArg(args []string, i, def int) int {
	if i >= len(args) {
		return def
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func strArg(args []string, i int, def string) string {
	if i >= len(args) || args[i] == "" {
		return def
	}
	return args[i]
}

// applyScheduler resolves the scheduling policy (CLI overrides the
// SCHEDULER env var; default sjf; an unknown value warns and falls back to
// sjf) and swaps it onto the pool if it isn't the FIFO default it was
// constructed with.
func applyScheduler(p *pool.Pool, lg *zap.Logger, cliFlag string) {
	choice := os.Getenv("SCHEDULER")
	if cliFlag != "" {
		choice = cliFlag
	}
	choice = strings.ToLower(strings.TrimSpace(choice))
	if choice == "" {
		choice = defaultScheduler
	}

	switch choice {
	case "fifo":
		// The pool already installs FIFO by default; nothing to swap.
		return
	case "sjf":
		s := trySJF(queueCapacity)
		if s == nil {
			lg.Warn("SJF scheduler failed to construct, retaining FIFO")
			return
		}
		p.SetScheduler(s)
	default:
		lg.Warn("unknown scheduler, falling back to sjf", zap.String("requested", choice))
		if s := trySJF(queueCapacity); s != nil {
			p.SetScheduler(s)
		}
	}
}

// trySJF constructs an SJF scheduler, returning nil on the one condition
// sched.NewSJF itself can't fail on: a non-positive capacity. A Go
// construction of SJF has no other failure mode, unlike the pthread/heap
// allocation the original guards against, but the fallback path is kept so
// the shape of "construction can fail, retain FIFO" survives even though
// it is unreachable with the fixed queueCapacity this binary uses.
func trySJF(capacity int) sched.Scheduler {
	if capacity <= 0 {
		return nil
	}
	return sched.NewSJF(capacity)
}
