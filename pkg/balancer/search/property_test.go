package search

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/balancerconfig"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/cost"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/plan"
)

func buildCostSet(cfg balancerconfig.Config, m *model.ClusterModel) *cost.Set {
	return cost.BuildDefaultSet(cfg.CostWeights, cfg.MaxMoves(m.NumRegions()), cfg.MaxTableSkewWeight)
}

func skewedAssignment(numServers, numRegionsOnFirst int) map[model.ServerName][]model.RegionDescriptor {
	assignment := make(map[model.ServerName][]model.RegionDescriptor, numServers)
	for s := 0; s < numServers; s++ {
		sn := model.ServerName{Host: fmt.Sprintf("h%d", s), Port: 1, StartCode: 1}
		assignment[sn] = nil
	}
	first := model.ServerName{Host: "h0", Port: 1, StartCode: 1}
	for r := 0; r < numRegionsOnFirst; r++ {
		assignment[first] = append(assignment[first], model.RegionDescriptor{
			Name:      model.RegionName(fmt.Sprintf("r%d", r)),
			Table:     "t1",
			IsPrimary: true,
		})
	}
	return assignment
}

// TestProperty_MonotoneAcceptanceAndMoveCap is spec.md §8 invariants 4
// and 6: a completed run never leaves the cluster in a worse aggregate
// state than it started, and the extracted plan never exceeds the
// configured move cap.
func TestProperty_MonotoneAcceptanceAndMoveCap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("a completed run's final cost never exceeds its initial cost, and the plan respects the move cap", prop.ForAll(
		func(numServers, skewCount int, seed int64) bool {
			if numServers < 2 {
				numServers = 2
			}
			m, err := model.NewClusterModel(skewedAssignment(numServers, skewCount), nil, nil, nil, 15)
			if err != nil {
				t.Fatalf("building model: %v", err)
			}

			cfg := balancerconfig.DefaultConfig()
			cfg.MinServerBalance = 2
			costs := buildCostSet(cfg, m)
			driver := NewDriver(m, costs, DefaultGenerators(), rand.New(rand.NewSource(seed)), cfg)

			result := driver.Run(context.Background())
			if !result.Ran {
				return true
			}
			if result.FinalCost > result.InitialCost+1e-9 {
				return false
			}

			moves := plan.Extract(m)
			return len(moves) <= cfg.MaxMoves(m.NumRegions())
		},
		gen.IntRange(2, 6),
		gen.IntRange(0, 30),
		gen.Int64Range(1, 1<<30),
	))

	properties.TestingRun(t)
}

// TestProperty_PlanFaithfulness is spec.md §8 invariant 5: replaying the
// extracted plan's moves against the model's initial assignment
// reproduces the final assignment exactly, for any run outcome
// (completed, deadline-truncated, or skipped).
func TestProperty_PlanFaithfulness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("the extracted plan reproduces the final assignment when replayed from the initial one", prop.ForAll(
		func(numServers, skewCount int, seed int64) bool {
			if numServers < 2 {
				numServers = 2
			}
			m, err := model.NewClusterModel(skewedAssignment(numServers, skewCount), nil, nil, nil, 15)
			if err != nil {
				t.Fatalf("building model: %v", err)
			}

			cfg := balancerconfig.DefaultConfig()
			cfg.MinServerBalance = 2
			costs := buildCostSet(cfg, m)
			driver := NewDriver(m, costs, DefaultGenerators(), rand.New(rand.NewSource(seed)), cfg)
			driver.Run(context.Background())

			final := make(map[model.RegionName]model.ServerName)
			replayed := make(map[model.RegionName]model.ServerName)
			for r := 0; r < m.NumRegions(); r++ {
				ri := model.RegionIndex(r)
				final[m.RegionName(ri)] = m.ServerName(m.ServerOfRegion(ri))
				replayed[m.RegionName(ri)] = m.ServerName(m.InitialServerOfRegion(ri))
			}
			for _, mv := range plan.Extract(m) {
				replayed[mv.Region] = mv.To
			}

			if len(final) != len(replayed) {
				return false
			}
			for region, server := range final {
				if replayed[region] != server {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 6),
		gen.IntRange(0, 30),
		gen.Int64Range(1, 1<<30),
	))

	properties.TestingRun(t)
}
