// Package location implements sites where people are bitten and mosquitoes live.
package location

import (
	"fmt"
	"math"

	"github.com/okian/dengue/internal/domain/rng"
)

// Type is the kind of site.
type Type string

const (
	Home   Type = "home"
	Work   Type = "work"
	School Type = "school"
	Other  Type = "other"
)

// ParseType maps a loader string onto a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Home, Work, School, Other:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Location is a discrete site. Susceptible mosquitoes are a count; infected
// mosquitoes are agents owned by the community and only counted here.
type Location struct {
	ID               int
	Type             Type
	BaseCapacity     int
	BitingMultiplier float64
	Neighbours       []int

	Susceptible int
	Infected    int

	visitors   []int
	weights    []float64
	cumulative []float64

	vcStart int
	vcEnd   int
}

// New creates a location with no visitors and no mosquitoes.
func New(id int, typ Type, capacity int) *Location {
	return &Location{ID: id, Type: typ, BaseCapacity: capacity, BitingMultiplier: 1}
}

// AddVisitor registers a person spending weight of their bites here.
func (l *Location) AddVisitor(personID int, weight float64) {
	total := weight
	if n := len(l.cumulative); n > 0 {
		total += l.cumulative[n-1]
	}
	l.visitors = append(l.visitors, personID)
	l.weights = append(l.weights, weight)
	l.cumulative = append(l.cumulative, total)
}

// Visitors returns visiting person ids in registration order.
func (l *Location) Visitors() []int { return l.visitors }

// VisitWeight returns the bite weight of the i-th visitor.
func (l *Location) VisitWeight(i int) float64 { return l.weights[i] }

// TotalWeight returns the summed visitor weight.
func (l *Location) TotalWeight() float64 {
	if len(l.cumulative) == 0 {
		return 0
	}
	return l.cumulative[len(l.cumulative)-1]
}

// PickVisitor draws a visitor proportionally to weight, -1 if nobody visits.
func (l *Location) PickVisitor(r *rng.Stream) int {
	i := r.Weighted(l.cumulative)
	if i < 0 {
		return -1
	}
	return l.visitors[i]
}

// Total returns all mosquitoes present.
func (l *Location) Total() int { return l.Susceptible + l.Infected }

// SetVectorControl suppresses the location from start for duration days.
func (l *Location) SetVectorControl(start, duration int) {
	l.vcStart, l.vcEnd = start, start+duration
}

// ClearVectorControl lifts any suppression.
func (l *Location) ClearVectorControl() { l.vcStart, l.vcEnd = 0, 0 }

// VectorControlled reports suppression on day.
func (l *Location) VectorControlled(day int) bool {
	return l.vcStart <= day && day < l.vcEnd
}

// VectorControlStart returns the first suppressed day and whether one is set.
func (l *Location) VectorControlStart() (int, bool) {
	return l.vcStart, l.vcEnd > l.vcStart
}

// Target returns the mosquito count the location is topped up to on day.
func (l *Location) Target(multiplier float64, day int, efficacy float64) int {
	t := float64(l.BaseCapacity) * multiplier
	if l.VectorControlled(day) {
		t *= 1 - efficacy
	}
	if t <= 0 {
		return 0
	}
	return int(math.Round(t))
}
