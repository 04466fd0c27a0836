// Package worker runs fire-and-forget persistence jobs off the request path.
package worker

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of background work.
type Job = func(ctx context.Context) error

type namedJob struct {
	name string
	fn   Job
}

// Pool runs jobs on a fixed number of goroutines. Jobs sharing a key always
// land on the same goroutine, so they run in dispatch order. Failures are
// logged and dropped; nothing is retried.
type Pool struct {
	queues  []chan namedJob
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool(workerCount, bufferSize int, timeout time.Duration, logger *slog.Logger) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		queues:  make([]chan namedJob, workerCount),
		timeout: timeout,
		logger:  logger,
	}
	for i := range p.queues {
		p.queues[i] = make(chan namedJob, bufferSize)
		p.wg.Add(1)
		go p.worker(p.queues[i])
	}
	return p
}

func (p *Pool) worker(jobs <-chan namedJob) {
	defer p.wg.Done()
	for job := range jobs {
		run(job, p.timeout, p.logger)
	}
}

// Dispatch queues a job on the worker owning key, blocking while its buffer
// is full. After Close the job runs on the caller's goroutine.
func (p *Pool) Dispatch(key, name string, fn Job) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		run(namedJob{name: name, fn: fn}, p.timeout, p.logger)
		return
	}
	p.queues[p.slot(key)] <- namedJob{name: name, fn: fn}
}

func (p *Pool) slot(key string) int {
	if len(p.queues) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Inline runs every job synchronously on the caller's goroutine.
type Inline struct {
	Logger *slog.Logger
}

func (i Inline) Dispatch(_, name string, fn Job) {
	logger := i.Logger
	if logger == nil {
		logger = slog.Default()
	}
	run(namedJob{name: name, fn: fn}, 0, logger)
}

func run(job namedJob, timeout time.Duration, logger *slog.Logger) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := job.fn(ctx); err != nil {
		logger.Warn("background job failed", "job", job.name, "error", err)
	}
}
