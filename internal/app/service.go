package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/dengue/internal/adapters/mq/queue"
	"github.com/okian/dengue/internal/adapters/mq/worker"
	"github.com/okian/dengue/internal/adapters/repository"
	"github.com/okian/dengue/internal/domain/dedupe"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/pkg/logger"
	"github.com/okian/dengue/pkg/metrics"
)

// retryInterval paces re-submission while the queue is full.
const retryInterval = 10 * time.Millisecond

// Stats is a point-in-time view of the service.
type Stats struct {
	Started     bool `json:"started"`
	Workers     int  `json:"workers"`
	Busy        int  `json:"busy"`
	QueueLength int  `json:"queue_length"`
	Submitted   int  `json:"submitted"`
	Duplicates  int  `json:"duplicates"`
	Completed   int  `json:"completed"`
	Failed      int  `json:"failed"`
	Stored      int  `json:"stored"`
}

// Service runs batches of independent simulations. Each request is
// fingerprinted so an identical parameter bundle is simulated once.
type Service struct {
	mu sync.RWMutex

	// Core components
	runner  worker.Runner
	store   repository.Store
	deduper dedupe.Deduper
	queue   queue.Queue
	pool    *worker.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	onDone      worker.CompletionFunc

	// State
	started    bool
	submitted  atomic.Int64
	duplicates atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrent runs.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending run requests.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many fingerprints are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStore persists every finished run. The caller keeps ownership and
// closes the store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithCompletion registers a callback invoked after every run.
func WithCompletion(fn worker.CompletionFunc) Option {
	return func(s *Service) {
		s.onDone = fn
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service executing runs with runner.
func New(runner worker.Runner, opts ...Option) *Service {
	s := &Service{
		runner:      runner,
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  50_000,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the queue, the deduper and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting batch service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	// A nil *SQLiteStore must not reach the pool as a non-nil interface.
	var recorder worker.Recorder
	if s.store != nil {
		recorder = s.store
	}
	s.pool = worker.NewPool(s.workerCount, s.queue, s.runner, recorder,
		worker.WithLogger(s.logger),
		worker.WithCompletion(s.complete),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "batch service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

func (s *Service) complete(req model.RunRequest, res model.RunResult, err error) {
	if err != nil {
		s.failed.Add(1)
		// A failed fingerprint may be submitted again.
		s.deduper.Unrecord(context.Background(), req.Fingerprint)
		s.logger.Error(context.Background(), "run failed", logger.String("run_id", req.ID), logger.Error(err))
	} else {
		s.completed.Add(1)
	}
	if s.onDone != nil {
		s.onDone(req, res, err)
	}
}

// Submit fingerprints par and queues one run of it, returning the run id. A
// bundle seen before, in memory or in the store, returns ErrDuplicate.
func (s *Service) Submit(ctx context.Context, par params.Parameters) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	fp, err := dedupe.Fingerprint(par)
	if err != nil {
		return "", err
	}
	if s.deduper.SeenAndRecord(ctx, fp) {
		return "", s.duplicate(ctx, fp, "")
	}
	if s.store != nil {
		existing, err := s.store.FindByFingerprint(ctx, fp)
		switch {
		case err == nil:
			return "", s.duplicate(ctx, fp, existing)
		case !errors.Is(err, repository.ErrNotFound):
			s.deduper.Unrecord(ctx, fp)
			return "", err
		}
	}

	req := model.RunRequest{
		ID:          uuid.NewString(),
		Fingerprint: fp,
		Params:      par.Clone(),
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.deduper.Unrecord(ctx, fp)
		return "", err
	}
	s.submitted.Add(1)
	s.logger.Debug(ctx, "run queued",
		logger.String("run_id", req.ID),
		logger.String("fingerprint", fp),
		logger.Uint64("seed", par.RandomSeed),
	)
	return req.ID, nil
}

func (s *Service) duplicate(ctx context.Context, fp, existing string) error {
	s.duplicates.Add(1)
	metrics.RecordRunDuplicate()
	s.logger.Debug(ctx, "duplicate run skipped", logger.String("fingerprint", fp), logger.String("existing", existing))
	if existing != "" {
		return fmt.Errorf("%w: fingerprint %s stored as %s", ErrDuplicate, fp, existing)
	}
	return fmt.Errorf("%w: fingerprint %s", ErrDuplicate, fp)
}

// SeedBundles returns runs copies of base with seeds baseSeed, baseSeed+1, ...
func SeedBundles(base params.Parameters, runs int, baseSeed uint64) []params.Parameters {
	bundles := make([]params.Parameters, runs)
	for i := range bundles {
		bundles[i] = base.Clone()
		bundles[i].RandomSeed = baseSeed + uint64(i)
	}
	return bundles
}

// SubmitBatch queues SeedBundles(base, runs, baseSeed). Duplicates are
// skipped. A full queue is retried until ctx ends.
func (s *Service) SubmitBatch(ctx context.Context, base params.Parameters, runs int, baseSeed uint64) ([]string, error) {
	return s.SubmitAll(ctx, SeedBundles(base, runs, baseSeed))
}

// SubmitAll queues one run per bundle in order, skipping duplicates and
// retrying while the queue is full. It returns the ids of queued runs.
func (s *Service) SubmitAll(ctx context.Context, bundles []params.Parameters) ([]string, error) {
	ids := make([]string, 0, len(bundles))
	for _, par := range bundles {
		for {
			id, err := s.Submit(ctx, par)
			if err == nil {
				ids = append(ids, id)
				break
			}
			if errors.Is(err, ErrDuplicate) {
				break
			}
			if !errors.Is(err, queue.ErrFull) {
				return ids, err
			}
			select {
			case <-ctx.Done():
				return ids, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}
	return ids, nil
}

// Drain stops intake and waits until every queued run has finished.
func (s *Service) Drain(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if err := s.queue.Close(); err != nil {
		return err
	}
	return s.pool.Wait(ctx)
}

// Stop shuts the pool down, abandoning queued runs.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping batch service...")
	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "batch service stopped", logger.Int("completed", int(s.completed.Load())))
	return err
}

// Stats returns service statistics for monitoring. Gauges are kept by the
// queue and the store themselves. A failing store count leaves Stored at 0.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:    s.started,
		Workers:    s.workerCount,
		Submitted:  int(s.submitted.Load()),
		Duplicates: int(s.duplicates.Load()),
		Completed:  int(s.completed.Load()),
		Failed:     int(s.failed.Load()),
	}
	if s.pool != nil {
		st.Busy = s.pool.Busy()
	}
	if s.queue != nil {
		st.QueueLength = s.queue.Len()
	}
	if s.store != nil {
		if n, err := s.store.Count(ctx); err != nil {
			s.logger.Debug(ctx, "count stored runs failed", logger.Error(err))
		} else {
			st.Stored = n
		}
	}
	return st
}
