package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/dengue/internal/adapters/repository"
	service "github.com/okian/dengue/internal/app"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// flakyRunner fails every run whose seed is in fail.
type flakyRunner struct {
	mu   sync.Mutex
	fail map[uint64]bool
	seen []uint64
}

func (r *flakyRunner) Simulate(_ context.Context, req model.RunRequest) (model.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, req.Params.RandomSeed)
	if r.fail[req.Params.RandomSeed] {
		return model.RunResult{}, errors.New("diverged")
	}
	return model.RunResult{RunID: req.ID, Fingerprint: req.Fingerprint, Seed: req.Params.RandomSeed}, nil
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(&flakyRunner{}, service.WithWorkerCount(2), service.WithQueueSize(4))

		Convey("When submitting before start", func() {
			_, err := svc.Submit(ctx, testParams())

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(svc.Drain(ctx), service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting and stopping", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stats(ctx).Started, ShouldBeTrue)
			So(svc.Stats(ctx).Workers, ShouldEqual, 2)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should be marked as stopped", func() {
				So(svc.Stats(ctx).Started, ShouldBeFalse)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestServiceBatch(t *testing.T) {
	Convey("Given a started service with a results store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		store, err := repository.OpenSQLite(repository.MemoryPath)
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		var mu sync.Mutex
		var finished []model.RunResult
		sim := service.NewSimulator(town(5), service.WithCommunityMetrics(false))
		svc := service.New(sim,
			service.WithWorkerCount(3),
			service.WithQueueSize(2),
			service.WithStore(store),
			service.WithCompletion(func(_ model.RunRequest, res model.RunResult, err error) {
				if err == nil {
					mu.Lock()
					finished = append(finished, res)
					mu.Unlock()
				}
			}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a batch larger than the queue is submitted", func() {
			par := testParams()
			par.DailyExposed = []float64{1, 1, 1, 1}
			ids, err := svc.SubmitBatch(ctx, par, 5, 100)
			So(err, ShouldBeNil)
			So(svc.Drain(ctx), ShouldBeNil)

			Convey("Then every seed should run once and be stored", func() {
				So(ids, ShouldHaveLength, 5)
				stats := svc.Stats(ctx)
				So(stats.Submitted, ShouldEqual, 5)
				So(stats.Completed, ShouldEqual, 5)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Stored, ShouldEqual, 5)

				seeds := map[uint64]bool{}
				for _, res := range finished {
					seeds[res.Seed] = true
				}
				So(seeds, ShouldResemble, map[uint64]bool{100: true, 101: true, 102: true, 103: true, 104: true})

				got, err := store.Run(ctx, ids[0])
				So(err, ShouldBeNil)
				So(got.Days, ShouldEqual, 30)
			})

			Convey("Then a store-backed service should refuse the same bundles", func() {
				again := service.New(sim, service.WithWorkerCount(1), service.WithStore(store))
				So(again.Start(ctx), ShouldBeNil)
				defer func() { _ = again.Stop(ctx) }()

				p := par.Clone()
				p.RandomSeed = 102
				_, err := again.Submit(ctx, p)
				So(errors.Is(err, service.ErrDuplicate), ShouldBeTrue)
				So(again.Stats(ctx).Duplicates, ShouldEqual, 1)
			})
		})

		Convey("When the same bundle is submitted twice", func() {
			_, err1 := svc.Submit(ctx, testParams())
			_, err2 := svc.Submit(ctx, testParams())

			Convey("Then the second should be a duplicate", func() {
				So(err1, ShouldBeNil)
				So(errors.Is(err2, service.ErrDuplicate), ShouldBeTrue)
				So(svc.Drain(ctx), ShouldBeNil)
				So(svc.Stats(ctx).Completed, ShouldEqual, 1)
			})
		})
	})
}

func TestServiceFailures(t *testing.T) {
	Convey("Given a service whose runner fails one seed", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		runner := &flakyRunner{fail: map[uint64]bool{7: true}}
		done := make(chan error, 8)
		svc := service.New(runner,
			service.WithWorkerCount(1),
			service.WithCompletion(func(_ model.RunRequest, _ model.RunResult, err error) { done <- err }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		par := testParams()
		par.RandomSeed = 7

		Convey("When the failing bundle is submitted", func() {
			_, err := svc.Submit(ctx, par)
			So(err, ShouldBeNil)
			So(<-done, ShouldNotBeNil)

			Convey("Then it should be counted and may be submitted again", func() {
				So(svc.Stats(ctx).Failed, ShouldEqual, 1)
				_, err := svc.Submit(ctx, par)
				So(err, ShouldBeNil)
				So(<-done, ShouldNotBeNil)
				So(svc.Stats(ctx).Failed, ShouldEqual, 2)
			})
		})
	})
}

// brokenStore fails every count; other methods are never reached.
type brokenStore struct {
	repository.Store
}

func (brokenStore) Count(context.Context) (int, error) {
	return 0, errors.New("database is locked")
}

func TestStatsStoreFailure(t *testing.T) {
	Convey("Given a service whose store cannot count", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithWriter(&buf), logger.WithLevel("debug")), ShouldBeNil)
		defer func() { _ = logger.Init() }()

		svc := service.New(&flakyRunner{},
			service.WithStore(brokenStore{}),
			service.WithLogger(logger.Get()),
		)

		Convey("When stats are read", func() {
			st := svc.Stats(context.Background())

			Convey("Then the failure should be logged and Stored left at zero", func() {
				So(st.Stored, ShouldEqual, 0)
				So(buf.String(), ShouldContainSubstring, "count stored runs failed")
				So(buf.String(), ShouldContainSubstring, "database is locked")
			})
		})
	})
}

func TestSeedBundles(t *testing.T) {
	Convey("Given a base bundle", t, func() {
		base := params.Default()

		Convey("When expanding it over consecutive seeds", func() {
			bundles := service.SeedBundles(base, 3, 40)

			Convey("Then each copy should differ only by seed", func() {
				So(bundles, ShouldHaveLength, 3)
				for i, b := range bundles {
					So(b.RandomSeed, ShouldEqual, uint64(40+i))
					So(b.BetaMP, ShouldEqual, base.BetaMP)
				}
			})

			Convey("Then the copies should not share tables", func() {
				bundles[0].DailyExposed[0] = 99
				So(bundles[1].DailyExposed[0], ShouldEqual, base.DailyExposed[0])
				So(base.DailyExposed[0], ShouldNotEqual, 99)
			})
		})
	})
}
