// Package worker executes queued run requests. Each worker runs one
// simulation at a time; runs share nothing, so the pool scales with cores.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/pkg/logger"
	"github.com/okian/dengue/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Runner simulates one request.
type Runner interface {
	Simulate(ctx context.Context, req model.RunRequest) (model.RunResult, error)
}

// Recorder persists a finished run.
type Recorder interface {
	SaveRun(ctx context.Context, res model.RunResult) error
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.RunRequest
}

// CompletionFunc observes every processed request; err is nil on success.
type CompletionFunc func(req model.RunRequest, res model.RunResult, err error)

// Worker runs requests from a queue until it is closed or stopped.
type Worker struct {
	queue    Queue
	runner   Runner
	recorder Recorder
	name     string
	onDone   CompletionFunc
	busy     *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(queue Queue, runner Runner, recorder Recorder, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		runner:   runner,
		recorder: recorder,
		name:     "worker",
		busy:     new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes requests until ctx is done, Shutdown is called or the queue
// is drained and closed.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, req); err != nil {
				w.logger.Error(ctx, "run failed", logger.String("run_id", req.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current run.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, req model.RunRequest) (err error) {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.busy.Add(1)))
	metrics.RecordRunStarted()
	var res model.RunResult
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.busy.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordRunFailed()
			metrics.RecordWorkerError()
		} else {
			metrics.RecordRunCompleted(time.Since(start))
		}
		if w.onDone != nil {
			w.onDone(req, res, err)
		}
	}()

	res, err = w.runner.Simulate(ctx, req)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "simulation")
		return fmt.Errorf("simulate %s: %w", req.ID, err)
	}
	if w.recorder != nil {
		if err = w.recorder.SaveRun(ctx, res); err != nil {
			metrics.RecordErrorByComponent("worker", "persist")
			return fmt.Errorf("persist %s: %w", req.ID, err)
		}
	}
	w.logger.Debug(ctx, "run finished",
		logger.String("run_id", req.ID),
		logger.Int("days", res.Days),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	busy    atomic.Int64
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers; a count below 1 uses one
// worker per CPU.
func NewPool(workerCount int, queue Queue, runner Runner, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   queue,
		logger:  logger.Nop(),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		wopts = append(wopts, withBusyCounter(&p.busy))
		p.workers[i] = NewWorker(queue, runner, recorder, wopts...)
	}
	probe := &Worker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(probe)
	}
	p.logger = probe.logger.Named("worker-pool")
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Busy returns the number of workers currently running a simulation.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, typically after the queue
// was closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return fmt.Errorf("wait for workers: %w", ctx.Err())
		}
	}
	return nil
}

// Shutdown closes the queue if it can be closed, stops the workers and waits
// for in-flight runs up to a timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		w.once.Do(func() { close(w.shutdown) })
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
