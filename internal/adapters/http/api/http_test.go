package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/dengue/internal/adapters/http/api"
	"github.com/okian/dengue/internal/adapters/repository"
	"github.com/okian/dengue/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockRuns struct {
	runs map[string]model.RunResult
	err  error
}

func (m *mockRuns) Run(_ context.Context, id string) (model.RunResult, error) {
	if m.err != nil {
		return model.RunResult{}, m.err
	}
	res, ok := m.runs[id]
	if !ok {
		return model.RunResult{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return res, nil
}

func serve(srv *api.Server, method, path string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	srv.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStatusServer(t *testing.T) {
	Convey("Given a status server over a run store", t, func() {
		runs := &mockRuns{runs: map[string]model.RunResult{
			"r1": {RunID: "r1", Seed: 9, Days: 365, AnnualCases: []int{12}},
		}}
		stats := func(context.Context) any { return map[string]int{"completed": 3} }
		srv := api.NewServer(stats, runs)

		Convey("When probing health", func() {
			rec := serve(srv, http.MethodGet, "/healthz")

			Convey("Then it should answer ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"ok"`)
			})
		})

		Convey("When scraping metrics", func() {
			rec := serve(srv, http.MethodGet, "/metrics")

			Convey("Then the simulator registry should be exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "dengue_sim_")
			})
		})

		Convey("When reading stats", func() {
			rec := serve(srv, http.MethodGet, "/stats")

			Convey("Then the provider snapshot should be encoded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body map[string]int
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["completed"], ShouldEqual, 3)
			})
		})

		Convey("When reading a stored run", func() {
			rec := serve(srv, http.MethodGet, "/runs/r1")

			Convey("Then the result should be returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var res model.RunResult
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.Seed, ShouldEqual, uint64(9))
				So(res.AnnualCases, ShouldResemble, []int{12})
			})
		})

		Convey("When reading an unknown run", func() {
			rec := serve(srv, http.MethodGet, "/runs/nope")

			Convey("Then it should be not found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(rec.Body.String(), ShouldContainSubstring, "not_found")
			})
		})

		Convey("When the store fails", func() {
			runs.err = errors.New("disk I/O error")
			rec := serve(srv, http.MethodGet, "/runs/r1")

			Convey("Then it should be an internal error", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldContainSubstring, "disk I/O error")
			})
		})

		Convey("When posting to a read-only route", func() {
			rec := serve(srv, http.MethodPost, "/stats")

			Convey("Then the method should be refused", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})

	Convey("Given a status server without a store", t, func() {
		srv := api.NewServer(nil, nil)

		Convey("Then runs should be not found and stats empty", func() {
			So(serve(srv, http.MethodGet, "/runs/r1").Code, ShouldEqual, http.StatusNotFound)
			rec := serve(srv, http.MethodGet, "/stats")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "{}")
		})
	})
}
