// Package balancer wires the cluster model, cost functions, candidate
// generators, search driver, and plan extractor into the two entry
// points external callers use: Balance and RefreshClusterStatus.
package balancer

import (
	"context"
	"math/rand"

	"github.com/cockroachdb/logtags"
	"github.com/google/uuid"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/balancerconfig"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/cost"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/metrics"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/plan"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/search"
	"github.com/lifeqiuzhi520/rebalance/pkg/util/log"
)

// Balancer is a long-lived instance across many balance invocations. It
// owns the one cross-invocation piece of state, the rolling per-region
// load history, and the metrics registered against it. Callers are
// responsible for serializing calls to Balance and RefreshClusterStatus
// against each other (spec.md §5); Balancer itself does no locking.
type Balancer struct {
	cfg          balancerconfig.Config
	loadHistory  map[model.RegionName][]model.LoadSample
	oracle       model.LocalityOracle
	rackResolver model.RackResolver
	metrics      *metrics.Metrics
}

// New constructs a Balancer with the given configuration and external
// collaborators. oracle may be nil (spec.md §7's "missing optional
// input" downgrade path); rackResolver must not be nil.
func New(cfg balancerconfig.Config, oracle model.LocalityOracle, rackResolver model.RackResolver) *Balancer {
	return &Balancer{
		cfg:          cfg,
		loadHistory:  make(map[model.RegionName][]model.LoadSample),
		oracle:       oracle,
		rackResolver: rackResolver,
		metrics:      metrics.New(),
	}
}

// Metrics returns the Balancer's Prometheus collector set, for
// registration against an external registry.
func (b *Balancer) Metrics() *metrics.Metrics { return b.metrics }

// RefreshClusterStatus replaces the tracked load history wholesale,
// carrying forward nothing from the caller beyond what it supplies —
// mirroring the original StochasticLoadBalancer's updateRegionLoad,
// which is invoked independently of any balance computation (spec.md
// §5).
func (b *Balancer) RefreshClusterStatus(loads map[model.RegionName][]model.LoadSample) {
	b.loadHistory = loads
}

// Report is the observability surface of one Balance call (spec.md §6),
// extended per SPEC_FULL.md with a per-function fractional breakdown.
type Report struct {
	RunID string
	search.Result
	Moves     []plan.Move
	Fractions map[string]float64
}

// Balance runs one balance invocation over the given assignment and
// returns the resulting Report. rnd must be supplied by the caller for
// determinism; production callers should seed it from a real entropy
// source, tests from a fixed seed.
func (b *Balancer) Balance(
	ctx context.Context, assignment map[model.ServerName][]model.RegionDescriptor, rnd *rand.Rand, trace bool,
) (Report, error) {
	runID := uuid.New().String()
	ctx = logtags.AddTag(ctx, "balancer-run", runID)

	loadHistory := make(map[model.RegionName][]model.LoadSample, len(b.loadHistory))
	for r, samples := range b.loadHistory {
		loadHistory[r] = samples
	}

	m, err := model.NewClusterModel(assignment, loadHistory, b.oracle, b.rackResolver, b.cfg.NumRegionLoadsToRemember)
	if err != nil {
		return Report{}, err
	}

	costs := cost.BuildDefaultSet(b.cfg.CostWeights, b.cfg.MaxMoves(m.NumRegions()), b.cfg.MaxTableSkewWeight)
	driver := search.NewDriver(m, costs, search.DefaultGenerators(), rnd, b.cfg)
	if trace {
		driver = driver.WithTrace()
	}

	result := driver.Run(ctx)
	b.metrics.LastCost.Set(result.FinalCost)
	b.metrics.StepsRun.Observe(float64(result.Steps))
	b.metrics.StepDuration.Observe(result.Elapsed.Seconds())

	if result.Aborted {
		log.Errorf(ctx, "balance run %s: aborted, no plan: %v", log.Safe(runID), result.Err)
		return Report{}, result.Err
	}

	report := Report{RunID: runID, Result: result, Fractions: fractionsOf(result.FinalBreakdown)}
	if !result.Ran || !result.Improved {
		log.VEventf(ctx, 1, "balance run %s: no plan emitted", log.Safe(runID))
		return report, nil
	}

	report.Moves = plan.Extract(m)
	b.metrics.MovesEmitted.Add(float64(len(report.Moves)))
	log.Infof(ctx, "balance run %s: emitted %d moves, cost %.4f -> %.4f in %d steps",
		log.Safe(runID), log.Safe(len(report.Moves)), log.Safe(result.InitialCost),
		log.Safe(result.FinalCost), log.Safe(result.Steps))
	return report, nil
}

func fractionsOf(contributions []cost.Contribution) map[string]float64 {
	var total float64
	for _, c := range contributions {
		total += c.Weighted
	}
	fractions := make(map[string]float64, len(contributions))
	for _, c := range contributions {
		if total > 0 {
			fractions[c.Name] = c.Weighted / total
		} else {
			fractions[c.Name] = 0
		}
	}
	return fractions
}
