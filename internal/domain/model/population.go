// Package model contains plain records passed between loaders, the simulation
// core and writers.
package model

// NoLocation marks a person without a daytime location; they stay home.
const NoLocation = -1

// PersonRecord is one row of the population file.
type PersonRecord struct {
	ID            int // equals the storage index once loaded
	HomeID        int
	Sex           int
	Age           int
	DayLocationID int // NoLocation if the person stays home
}

// LocationRecord is one row of the locations file.
type LocationRecord struct {
	ID   int
	Type string // home, work, school, other
}

// Edge connects two locations for mosquito dispersal.
type Edge struct {
	From int
	To   int
}

// ImmunityRecord holds years since the last infection per serotype, 0 meaning never.
type ImmunityRecord struct {
	ID             int
	YearsSinceLast []int
}

// Population bundles every pre-loaded record a run is built from.
type Population struct {
	People    []PersonRecord
	Locations []LocationRecord
	Edges     []Edge
	Immunity  []ImmunityRecord
	// SwapProbabilities[age] is the chance that a birthday at that age triggers
	// an immunity exchange. Empty means always.
	SwapProbabilities []float64
	// Mosquitoes are infected vectors carried over from an earlier snapshot.
	Mosquitoes []MosquitoRecord
}
