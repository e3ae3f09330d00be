package cost

import (
	"math"

	"github.com/thep200/github-frontier/internal/model"
)

// Shape is what the estimator knows about the queries it prices.
type Shape struct {
	NeighborSets   int
	UsersPerPage   int
	ReposPerUser   int
	LanguagesFirst int
}

// Estimator guesses the cost of an operation in request units, the provider
// charges one point per Scale units. Guesses only size batches.
type Estimator struct {
	shape      Shape
	multiplier float64
}

func NewEstimator(shape Shape) *Estimator {
	if shape.NeighborSets < 1 {
		shape.NeighborSets = 1
	}
	return &Estimator{shape: shape, multiplier: 1}
}

// WithMultiplier applies an offline calibration result.
func (e *Estimator) WithMultiplier(m float64) *Estimator {
	if m > 0 {
		e.multiplier = m
	}
	return e
}

// PerItem is the guess for one target of the given kind.
func (e *Estimator) PerItem(kind model.OpKind) int {
	var units int
	switch kind {
	case model.OpExpand:
		// mỗi tập neighbor: 1 connection + 1 connection con cho mỗi user
		units = e.shape.NeighborSets * (1 + e.shape.UsersPerPage)
	case model.OpFetch:
		// repository node + languages connection
		units = 2
	default:
		units = 1
	}
	return int(math.Ceil(float64(units) * e.multiplier))
}

func (e *Estimator) Estimate(kind model.OpKind, n int) int {
	if n <= 0 {
		return 0
	}
	return n * e.PerItem(kind)
}

// BatchSize = clamp(0, maxBatch, floor(spendable*scale/perItem) - 1). The -1
// leaves room for an underestimate.
func BatchSize(spendable, scale, perItem, maxBatch int) int {
	if spendable <= 0 || scale <= 0 || perItem <= 0 || maxBatch <= 0 {
		return 0
	}
	n := spendable*scale/perItem - 1
	if n < 0 {
		return 0
	}
	if n > maxBatch {
		return maxBatch
	}
	return n
}
