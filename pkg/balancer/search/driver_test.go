package search

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/balancerconfig"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/candidate"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/cost"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/plan"
)

func buildDriver(t *testing.T, m *model.ClusterModel, cfg balancerconfig.Config, seed int64) *Driver {
	t.Helper()
	costs := cost.BuildDefaultSet(cfg.CostWeights, cfg.MaxMoves(m.NumRegions()), cfg.MaxTableSkewWeight)
	return NewDriver(m, costs, DefaultGenerators(), rand.New(rand.NewSource(seed)), cfg)
}

// staleMoveGenerator always proposes moving region 0 from a server it no
// longer sits on, forcing ClusterModel.Apply to report a precondition
// violation on the very first step.
type staleMoveGenerator struct{ staleFrom model.ServerIndex }

func (g staleMoveGenerator) Name() string { return "staleMove" }

func (g staleMoveGenerator) Generate(m *model.ClusterModel, rnd *rand.Rand) model.Action {
	var to model.ServerIndex
	for s := 0; s < m.NumServers(); s++ {
		if model.ServerIndex(s) != g.staleFrom {
			to = model.ServerIndex(s)
		}
	}
	return model.Move(model.RegionIndex(0), g.staleFrom, to)
}

// Scenario 1: two servers, 10 regions on A, 0 on B, one table, no
// replicas. Expected: plan moves exactly 5 regions; final
// RegionCountSkew cost is 0.
func TestDriver_Scenario1_TenAndZeroConverges(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	b := model.ServerName{Host: "b", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{a: {}, b: {}}
	for i := 0; i < 10; i++ {
		assignment[a] = append(assignment[a], model.RegionDescriptor{
			Name: model.RegionName(fmt.Sprintf("r%d", i)), Table: "t1", IsPrimary: true,
		})
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	cfg := balancerconfig.DefaultConfig()
	cfg.MinServerBalance = 2
	driver := buildDriver(t, m, cfg, 42)

	result := driver.Run(context.Background())
	require.True(t, result.Ran)
	require.True(t, result.Improved)

	moves := plan.Extract(m)
	require.Len(t, moves, 5)

	skew := cost.NewRegionCountSkew(500)
	skew.Init(m)
	require.InDelta(t, 0, skew.Cost(), 1e-9)
}

// Scenario 4: a single server holding 100 regions, no other servers.
// needsBalance must return false and the loop must not run.
func TestDriver_Scenario4_SingleServerSkipsLoop(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{a: {}}
	for i := 0; i < 100; i++ {
		assignment[a] = append(assignment[a], model.RegionDescriptor{
			Name: model.RegionName(fmt.Sprintf("r%d", i)), Table: "t1", IsPrimary: true,
		})
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	cfg := balancerconfig.DefaultConfig()
	driver := buildDriver(t, m, cfg, 1)

	result := driver.Run(context.Background())
	require.False(t, result.Ran)
	require.Empty(t, plan.Extract(m))
}

// Scenario 5: two servers, 100 regions each, identical load profiles.
// needsBalance returns false because the aggregate cost ratio is below
// minCostNeedBalance.
func TestDriver_Scenario5_IdenticalLoadSkipsLoop(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	b := model.ServerName{Host: "b", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{a: {}, b: {}}
	for i := 0; i < 100; i++ {
		assignment[a] = append(assignment[a], model.RegionDescriptor{
			Name: model.RegionName(fmt.Sprintf("a%d", i)), Table: "t1", IsPrimary: true,
		})
		assignment[b] = append(assignment[b], model.RegionDescriptor{
			Name: model.RegionName(fmt.Sprintf("b%d", i)), Table: "t1", IsPrimary: true,
		})
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	cfg := balancerconfig.DefaultConfig()
	cfg.MinServerBalance = 2
	driver := buildDriver(t, m, cfg, 1)

	result := driver.Run(context.Background())
	require.False(t, result.Ran)
}

// Scenario 6: a 1ms deadline on a 1000-region cluster. The loop must
// exit early and leave the model's invariants intact.
func TestDriver_Scenario6_DeadlineExitsEarlyAndStaysConsistent(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	b := model.ServerName{Host: "b", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{a: {}, b: {}}
	for i := 0; i < 1000; i++ {
		assignment[a] = append(assignment[a], model.RegionDescriptor{
			Name: model.RegionName(fmt.Sprintf("r%d", i)), Table: "t1", IsPrimary: true,
		})
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	cfg := balancerconfig.DefaultConfig()
	cfg.MinServerBalance = 2
	cfg.MaxRunningTime = time.Millisecond
	driver := buildDriver(t, m, cfg, 1)

	result := driver.Run(context.Background())
	require.True(t, result.Ran)
	require.NoError(t, m.CheckInvariants())

	moves := plan.Extract(m)
	require.LessOrEqual(t, len(moves), cfg.MaxMoves(m.NumRegions()))

	// Plan faithfulness: replaying the moves against the original
	// assignment reproduces the final model's assignment exactly.
	final := make(map[model.RegionName]model.ServerName)
	for r := 0; r < m.NumRegions(); r++ {
		ri := model.RegionIndex(r)
		final[m.RegionName(ri)] = m.ServerName(m.ServerOfRegion(ri))
	}
	replayed := make(map[model.RegionName]model.ServerName)
	for r := 0; r < m.NumRegions(); r++ {
		ri := model.RegionIndex(r)
		replayed[m.RegionName(ri)] = m.ServerName(m.InitialServerOfRegion(ri))
	}
	for _, mv := range moves {
		replayed[mv.Region] = mv.To
	}
	require.Equal(t, final, replayed)
}

// A two-server cluster is below the default minServerBalance of 3, but
// both of a region's replicas sit on the same host. Colocation must
// override the small-cluster bail-out: needsBalance has to return true
// unconditionally whenever replica-colocation cost is nonzero, checked
// before, not after, the server-count floor (spec.md §4.4).
func TestDriver_SmallClusterWithColocatedReplicasStillBalances(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	b := model.ServerName{Host: "b", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{
		a: {
			{Name: "region-primary", Table: "t1", IsPrimary: true},
			{Name: "region-secondary", Table: "t1", IsPrimary: false, PrimaryOf: "region-primary"},
		},
		b: {},
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	cfg := balancerconfig.DefaultConfig()
	require.Less(t, m.NumServers(), cfg.MinServerBalance)
	driver := buildDriver(t, m, cfg, 1)

	result := driver.Run(context.Background())
	require.True(t, result.Ran)
}

// If a generator ever proposes an action ClusterModel.Apply rejects as a
// precondition violation — which should never happen given the loop only
// generates actions from the model's own current state, but is checked
// rather than assumed — Run must abort with Result.Aborted/Result.Err
// set, not terminate the process.
func TestDriver_PreconditionViolationAbortsWithoutExiting(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	b := model.ServerName{Host: "b", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{a: {}, b: {}}
	for i := 0; i < 10; i++ {
		assignment[a] = append(assignment[a], model.RegionDescriptor{
			Name: model.RegionName(fmt.Sprintf("r%d", i)), Table: "t1", IsPrimary: true,
		})
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	cfg := balancerconfig.DefaultConfig()
	cfg.MinServerBalance = 2
	costs := cost.BuildDefaultSet(cfg.CostWeights, cfg.MaxMoves(m.NumRegions()), cfg.MaxTableSkewWeight)
	realFrom := m.ServerOfRegion(model.RegionIndex(0))
	var staleFrom model.ServerIndex
	for s := 0; s < m.NumServers(); s++ {
		if model.ServerIndex(s) != realFrom {
			staleFrom = model.ServerIndex(s)
		}
	}
	gen := staleMoveGenerator{staleFrom: staleFrom}
	driver := NewDriver(m, costs, []candidate.Generator{gen}, rand.New(rand.NewSource(1)), cfg)

	result := driver.Run(context.Background())
	require.True(t, result.Ran)
	require.True(t, result.Aborted)
	require.Error(t, result.Err)
}
