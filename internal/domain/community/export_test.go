package community

import (
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/params"
)

// FixtureParams returns a small, fast, strongly transmitting parameter set.
func FixtureParams() params.Parameters {
	p := params.Default()
	p.RunLength = 30
	p.RandomSeed = 1234
	p.BetaMP = 1
	p.BetaPM = 1
	p.BitingRate = 50
	p.IncubationCDF = []float64{0, 1}
	p.SimpleEIP = true
	p.ExpectedEIP = 2
	p.MosquitoLifespan = 30
	p.MosquitoDailySurvival = 1
	p.DefaultMosquitoCapacity = 50
	p.MosquitoDistribution = params.DistributionConstant
	p.MosquitoMove = 0
	p.MaxQueueHorizon = 5000
	return p
}

// FixtureSingleLocation puts n people of the given age in one home.
func FixtureSingleLocation(n, age int) model.Population {
	pop := model.Population{
		Locations: []model.LocationRecord{{ID: 0, Type: "home"}},
	}
	for i := 0; i < n; i++ {
		pop.People = append(pop.People, model.PersonRecord{
			ID: i, HomeID: 0, Age: age, DayLocationID: model.NoLocation,
		})
	}
	return pop
}

// FixtureTown builds homes of four people each, plus one workplace and one
// school in a ring network.
func FixtureTown(homes int) model.Population {
	pop := model.Population{}
	for h := 0; h < homes; h++ {
		pop.Locations = append(pop.Locations, model.LocationRecord{ID: h, Type: "home"})
	}
	work, school := homes, homes+1
	pop.Locations = append(pop.Locations,
		model.LocationRecord{ID: work, Type: "work"},
		model.LocationRecord{ID: school, Type: "school"},
	)
	for i := 0; i < len(pop.Locations); i++ {
		pop.Edges = append(pop.Edges, model.Edge{From: i, To: (i + 1) % len(pop.Locations)})
	}
	id := 0
	for h := 0; h < homes; h++ {
		for k := 0; k < 4; k++ {
			rec := model.PersonRecord{ID: id, HomeID: h, Age: 5 + (id*7)%60, DayLocationID: model.NoLocation}
			switch {
			case rec.Age < 18:
				rec.DayLocationID = school
			case k%2 == 0:
				rec.DayLocationID = work
			}
			pop.People = append(pop.People, rec)
			id++
		}
	}
	return pop
}
