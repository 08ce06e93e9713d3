// Package cost implements the balancer's cost functions: each reduces a
// ClusterModel to a scalar in [0, 1], and the SearchDriver combines them
// as a multiplier-weighted sum with early-out short-circuiting.
package cost

import (
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

// Function is the capability set every cost function implements. There
// is no shared base-class state beyond the CostFromArray helper below;
// any incremental bookkeeping a function needs it keeps to itself.
type Function interface {
	// Name identifies the function for observability reporting.
	Name() string
	// Init is called once per balance invocation, before any Action is
	// applied, with the freshly built model.
	Init(m *model.ClusterModel)
	// PostAction is called after every applied action and every undone
	// (inverse) action, so incremental state can track the model.
	PostAction(a model.Action)
	// Cost returns the current cost in [0, 1]; the one exception is
	// MoveCost, which returns the fixed penalty 1e6 once over its move cap.
	Cost() float64
	// IsNeeded allows a function to disable itself, e.g. replica-aware
	// functions when the cluster has no replicated tables.
	IsNeeded() bool
	// Multiplier is this function's weight in the aggregate sum. A
	// multiplier <= 0 means the function is skipped entirely.
	Multiplier() float64
}

// Contribution records one function's share of an aggregate cost
// computation, for the observability surface in spec.md §6.
type Contribution struct {
	Name       string
	Multiplier float64
	Raw        float64
	Weighted   float64
}

// Set is an ordered collection of cost functions evaluated together.
type Set struct {
	functions []Function
}

// NewSet returns a Set wrapping the given functions in the given order.
func NewSet(functions ...Function) *Set {
	return &Set{functions: functions}
}

// Init calls Init on every wrapped function.
func (s *Set) Init(m *model.ClusterModel) {
	for _, f := range s.functions {
		f.Init(m)
	}
}

// PostAction calls PostAction on every wrapped function.
func (s *Set) PostAction(a model.Action) {
	for _, f := range s.functions {
		f.PostAction(a)
	}
}

// Functions returns the wrapped functions in evaluation order.
func (s *Set) Functions() []Function {
	return s.functions
}

// SumOfWeights returns the sum of multipliers of functions that are both
// enabled (multiplier > 0) and needed.
func (s *Set) SumOfWeights() float64 {
	var total float64
	for _, f := range s.functions {
		if f.Multiplier() > 0 && f.IsNeeded() {
			total += f.Multiplier()
		}
	}
	return total
}

// Aggregate computes the weighted sum of every enabled, needed function,
// early-out short-circuiting as soon as the running total exceeds
// bestSoFar (pass +Inf to disable early-out). It also returns each
// function's contribution for observability; contributions past the
// early-out point are omitted.
func (s *Set) Aggregate(bestSoFar float64) (total float64, contributions []Contribution) {
	contributions = make([]Contribution, 0, len(s.functions))
	for _, f := range s.functions {
		if f.Multiplier() <= 0 || !f.IsNeeded() {
			continue
		}
		raw := f.Cost()
		weighted := f.Multiplier() * raw
		total += weighted
		contributions = append(contributions, Contribution{
			Name: f.Name(), Multiplier: f.Multiplier(), Raw: raw, Weighted: weighted,
		})
		if total > bestSoFar {
			return total, contributions
		}
	}
	return total, contributions
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
