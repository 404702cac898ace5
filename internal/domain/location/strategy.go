package location

import (
	"fmt"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/rng"
)

// CapacityDistribution draws the base mosquito capacity of a location.
type CapacityDistribution interface {
	Capacity(r *rng.Stream, mean int) int
}

// MoveModel chooses where a moving mosquito goes. Returning from.ID means it stays.
type MoveModel interface {
	Destination(r *rng.Stream, from *Location, all []*Location) int
}

// NewCapacityDistribution returns the named distribution.
func NewCapacityDistribution(name string) (CapacityDistribution, error) {
	switch name {
	case params.DistributionConstant:
		return constantCapacity{}, nil
	case params.DistributionExponential:
		return exponentialCapacity{}, nil
	}
	return nil, fmt.Errorf("%w: capacity distribution %q", ErrUnknownStrategy, name)
}

// NewMoveModel returns the named movement model.
func NewMoveModel(name string) (MoveModel, error) {
	switch name {
	case params.MoveWeighted:
		return weightedMove{}, nil
	case params.MoveUniform:
		return uniformMove{}, nil
	case params.MoveTeleport:
		return teleportMove{}, nil
	}
	return nil, fmt.Errorf("%w: move model %q", ErrUnknownStrategy, name)
}

type constantCapacity struct{}

func (constantCapacity) Capacity(_ *rng.Stream, mean int) int { return mean }

type exponentialCapacity struct{}

func (exponentialCapacity) Capacity(r *rng.Stream, mean int) int {
	return int(r.Exponential(float64(mean)) + 0.5)
}

// weightedMove picks a neighbour proportionally to its base capacity.
type weightedMove struct{}

func (weightedMove) Destination(r *rng.Stream, from *Location, all []*Location) int {
	if len(from.Neighbours) == 0 {
		return from.ID
	}
	cum := make([]float64, len(from.Neighbours))
	total := 0.0
	for i, id := range from.Neighbours {
		total += float64(all[id].BaseCapacity)
		cum[i] = total
	}
	if total <= 0 {
		return from.Neighbours[r.IntN(len(from.Neighbours))]
	}
	return from.Neighbours[r.Weighted(cum)]
}

type uniformMove struct{}

func (uniformMove) Destination(r *rng.Stream, from *Location, _ []*Location) int {
	if len(from.Neighbours) == 0 {
		return from.ID
	}
	return from.Neighbours[r.IntN(len(from.Neighbours))]
}

// teleportMove ignores the network.
type teleportMove struct{}

func (teleportMove) Destination(r *rng.Stream, from *Location, all []*Location) int {
	if len(all) == 0 {
		return from.ID
	}
	return all[r.IntN(len(all))].ID
}

// Teleport returns the shared network-free model used for long-range jumps.
func Teleport() MoveModel { return teleportMove{} }
