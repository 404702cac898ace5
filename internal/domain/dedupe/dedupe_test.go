package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/dengue/internal/domain/dedupe"
	"github.com/okian/dengue/internal/domain/params"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a fingerprint is new", func() {
			seen := d.SeenAndRecord(ctx, "run-1")

			Convey("Then it should be recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then a repeat should be reported as seen", func() {
				So(d.SeenAndRecord(ctx, "run-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a fingerprint is unrecorded", func() {
			d.SeenAndRecord(ctx, "run-1")
			d.Unrecord(ctx, "run-1")
			d.Unrecord(ctx, "missing")

			Convey("Then it can be submitted again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "run-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a bounded deduper at capacity", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"a", "b", "c"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When another fingerprint arrives", func() {
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)

			Convey("Then the oldest should be forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When a middle entry is unrecorded first", func() {
			d.Unrecord(ctx, "b")
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)

			Convey("Then nothing should be evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("run-%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
		So(d.SeenAndRecord(ctx, "run-0"), ShouldBeTrue)
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given goroutines racing on overlapping fingerprints", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("run-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each fingerprint should be new exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given two equal parameter bundles", t, func() {
		a, b := params.Default(), params.Default().Clone()
		fa, err := dedupe.Fingerprint(a)
		So(err, ShouldBeNil)
		fb, err := dedupe.Fingerprint(b)
		So(err, ShouldBeNil)

		Convey("Then their fingerprints should match", func() {
			So(fa, ShouldEqual, fb)
			So(fa, ShouldNotBeEmpty)
		})

		Convey("Then changing the seed should change the fingerprint", func() {
			b.RandomSeed++
			fc, err := dedupe.Fingerprint(b)
			So(err, ShouldBeNil)
			So(fc, ShouldNotEqual, fa)
		})

		Convey("Then changing a table entry should change the fingerprint", func() {
			b.IncubationCDF[3] = 0.04
			fc, err := dedupe.Fingerprint(b)
			So(err, ShouldBeNil)
			So(fc, ShouldNotEqual, fa)
		})
	})
}
