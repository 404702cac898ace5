package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/dengue/internal/adapters/mq/queue"
	"github.com/okian/dengue/internal/adapters/mq/worker"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockRunner struct {
	mu     sync.Mutex
	errors map[string]error
	ran    []string
}

func newMockRunner() *mockRunner {
	return &mockRunner{errors: make(map[string]error)}
}

func (r *mockRunner) Simulate(_ context.Context, req model.RunRequest) (model.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, req.ID)
	if err, ok := r.errors[req.ID]; ok {
		return model.RunResult{}, err
	}
	return model.RunResult{RunID: req.ID, Fingerprint: req.Fingerprint, Days: 10}, nil
}

func (r *mockRunner) setError(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[id] = err
}

type mockRecorder struct {
	mu    sync.Mutex
	saved map[string]model.RunResult
	err   error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{saved: make(map[string]model.RunResult)}
}

func (r *mockRecorder) SaveRun(_ context.Context, res model.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved[res.RunID] = res
	return nil
}

func (r *mockRecorder) get(id string) (model.RunResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.saved[id]
	return res, ok
}

type outcome struct {
	id  string
	err error
}

func collector() (worker.CompletionFunc, <-chan outcome) {
	ch := make(chan outcome, 64)
	return func(req model.RunRequest, _ model.RunResult, err error) {
		ch <- outcome{id: req.ID, err: err}
	}, ch
}

func await(ch <-chan outcome) outcome {
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		return outcome{id: "timeout", err: errors.New("no completion")}
	}
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		requests := make(chan model.RunRequest, 4)
		q := chanQueue(requests)
		runner := newMockRunner()
		recorder := newMockRecorder()
		onDone, done := collector()

		w := worker.NewWorker(q, runner, recorder, worker.WithName("test-worker"), worker.WithCompletion(onDone))
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		defer func() {
			cancel()
			<-w.Done()
		}()

		convey.Convey("When a request succeeds", func() {
			requests <- model.RunRequest{ID: "run-1", Fingerprint: "fp"}
			o := await(done)

			convey.Convey("Then the result should be persisted", func() {
				convey.So(o, convey.ShouldResemble, outcome{id: "run-1"})
				res, ok := recorder.get("run-1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(res.Fingerprint, convey.ShouldEqual, "fp")
			})
		})

		convey.Convey("When the simulation fails", func() {
			boom := errors.New("boom")
			runner.setError("run-2", boom)
			requests <- model.RunRequest{ID: "run-2"}
			o := await(done)

			convey.Convey("Then nothing should be persisted and the error reported", func() {
				convey.So(errors.Is(o.err, boom), convey.ShouldBeTrue)
				_, ok := recorder.get("run-2")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When persisting fails", func() {
			recorder.err = errors.New("disk full")
			requests <- model.RunRequest{ID: "run-3"}
			o := await(done)
			convey.So(o.err, convey.ShouldNotBeNil)
			convey.So(o.err.Error(), convey.ShouldContainSubstring, "persist run-3")
		})
	})

	convey.Convey("Given a worker that is shut down", t, func() {
		w := worker.NewWorker(chanQueue(make(chan model.RunRequest)), newMockRunner(), nil)
		go w.Run(context.Background())

		convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool draining a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		runner := newMockRunner()
		recorder := newMockRecorder()
		onDone, done := collector()
		pool := worker.NewPool(4, q, runner, recorder, worker.WithCompletion(onDone))
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
			convey.So(q.Enqueue(ctx, model.RunRequest{ID: id}), convey.ShouldBeNil)
		}
		pool.Start(ctx)
		convey.So(q.Close(), convey.ShouldBeNil)
		convey.So(pool.Wait(ctx), convey.ShouldBeNil)

		convey.Convey("Then every request should run exactly once", func() {
			ids := map[string]bool{}
			for i := 0; i < 6; i++ {
				o := await(done)
				convey.So(o.err, convey.ShouldBeNil)
				ids[o.id] = true
			}
			convey.So(ids, convey.ShouldHaveLength, 6)
			convey.So(runner.ran, convey.ShouldHaveLength, 6)
			convey.So(pool.Busy(), convey.ShouldEqual, 0)
		})

		convey.Convey("Then shutting down afterwards should be clean", func() {
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}

type chanQueue chan model.RunRequest

func (c chanQueue) Dequeue(context.Context) <-chan model.RunRequest { return c }
