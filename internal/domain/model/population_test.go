package model_test

import (
	"testing"

	model "github.com/okian/dengue/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPopulation(t *testing.T) {
	convey.Convey("Given a Population literal", t, func() {
		pop := model.Population{
			People: []model.PersonRecord{
				{ID: 0, HomeID: 0, Age: 30, DayLocationID: 1},
				{ID: 1, HomeID: 0, Age: 4, DayLocationID: model.NoLocation},
			},
			Locations: []model.LocationRecord{{ID: 0, Type: "home"}, {ID: 1, Type: "work"}},
			Edges:     []model.Edge{{From: 0, To: 1}},
		}

		convey.Convey("Then ids should match positions", func() {
			for i, p := range pop.People {
				convey.So(p.ID, convey.ShouldEqual, i)
			}
			convey.So(pop.People[1].DayLocationID, convey.ShouldEqual, -1)
		})

		convey.Convey("Then optional tables may be empty", func() {
			convey.So(pop.Immunity, convey.ShouldBeNil)
			convey.So(pop.SwapProbabilities, convey.ShouldBeNil)
		})
	})
}
