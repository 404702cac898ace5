package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/dengue/internal/adapters/repository"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/summary"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleRun(id, fingerprint string) model.RunResult {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return model.RunResult{
		RunID:       id,
		Fingerprint: fingerprint,
		Seed:        1<<63 + 5,
		Days:        2,
		Population:  1000,
		StartedAt:   started,
		FinishedAt:  started.Add(1500 * time.Millisecond),
		Series: model.DailySeries{
			NewlyInfected:    [][]int{{0, 0}, {3, 1}, {5, 0}},
			NewlySymptomatic: [][]int{{0, 0}, {1, 0}, {2, 1}},
			SevereCases:      [][]int{{0, 0}, {0, 0}, {1, 0}},
			VaccinatedCases:  [][]int{{0, 0}, {0, 0}, {0, 1}},
			Introductions:    [][]int{{1, 0}, {0, 0}, {0, 2}},
		},
		AnnualCases: []int{4},
		Metrics:     summary.Metrics{Mean: 400, Median: 400, Max: 400, Seroprevalence: 0.01},
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh store on disk", t, func() {
		path := filepath.Join(t.TempDir(), "nested", "runs.db")
		store, err := repository.OpenSQLite(path)
		So(err, ShouldBeNil)
		defer store.Close()

		n, err := store.Count(ctx)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)

		Convey("When a run is saved", func() {
			run := sampleRun("run-1", "fp-a")
			So(store.SaveRun(ctx, run), ShouldBeNil)

			Convey("Then it should load back unchanged", func() {
				got, err := store.Run(ctx, "run-1")
				So(err, ShouldBeNil)
				So(cmp.Diff(run, got), ShouldBeEmpty)
				So(got.Duration(), ShouldEqual, 1500*time.Millisecond)
			})

			Convey("Then its metrics should be readable alone", func() {
				m, err := store.Metrics(ctx, "run-1")
				So(err, ShouldBeNil)
				So(m, ShouldResemble, run.Metrics)
			})

			Convey("Then it should be found by fingerprint", func() {
				id, err := store.FindByFingerprint(ctx, "fp-a")
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "run-1")
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then saving it again should be rejected atomically", func() {
				err := store.SaveRun(ctx, run)
				So(errors.Is(err, repository.ErrDuplicate), ShouldBeTrue)
				n, _ := store.Count(ctx)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When looking up unknown runs", func() {
			_, err := store.Run(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = store.Metrics(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = store.FindByFingerprint(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given an in-memory store", t, func() {
		store, err := repository.OpenSQLite(repository.MemoryPath)
		So(err, ShouldBeNil)
		defer store.Close()

		for _, id := range []string{"a", "b", "c"} {
			So(store.SaveRun(ctx, sampleRun(id, "fp")), ShouldBeNil)
		}
		n, err := store.Count(ctx)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 3)
	})

	Convey("Given an empty path", t, func() {
		_, err := repository.OpenSQLite("")
		So(errors.Is(err, repository.ErrEmptyPath), ShouldBeTrue)
	})
}
