// Package search implements the hill-climbing loop that ties the cluster
// model, cost functions, and candidate generators together and produces
// a movement plan.
package search

import (
	"context"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/balancerconfig"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/candidate"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/cost"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
	"github.com/lifeqiuzhi520/rebalance/pkg/util/log"
)

// replicaCostNames identifies the two cost functions whose sum decides
// whether needsBalance short-circuits straight to the loop, bypassing the
// minCostNeedBalance ratio check (spec.md §4.4).
var replicaCostNames = map[string]bool{"RegionReplicaHost": true, "RegionReplicaRack": true}

// Result is the observability surface of one balance invocation
// (spec.md §6): cost before/after, per-function contribution, step
// count, and wall-clock elapsed.
type Result struct {
	Ran              bool
	Improved         bool
	InitialCost      float64
	FinalCost        float64
	Steps            int
	Elapsed          time.Duration
	InitialBreakdown []cost.Contribution
	FinalBreakdown   []cost.Contribution
	// CostTrace records the best-so-far cost every time it improves, when
	// the Driver was built with WithTrace. Empty otherwise.
	CostTrace []float64
	// Aborted is true when the loop stopped because ClusterModel.Apply
	// reported a precondition violation on an action the loop itself
	// generated. Err carries the underlying error in that case. Callers
	// must treat an aborted Result as carrying no usable plan, distinct
	// from an ordinary converged-but-unimproved run.
	Aborted bool
	Err     error
}

// Driver runs the stochastic hill-climbing loop over one ClusterModel.
type Driver struct {
	model      *model.ClusterModel
	costs      *cost.Set
	generators []candidate.Generator
	weights    []float64 // cumulative selection weights, parallel to generators
	rnd        *rand.Rand
	cfg        balancerconfig.Config
	trace      bool
}

// WithTrace enables recording of the best-cost trace in the returned
// Result, for callers that want to render a convergence plot.
func (d *Driver) WithTrace() *Driver {
	d.trace = true
	return d
}

// NewDriver builds a Driver that picks among generators uniformly. rnd
// must be supplied by the caller so that runs are reproducible under a
// fixed seed (spec.md §4.4 Determinism).
func NewDriver(
	m *model.ClusterModel,
	costs *cost.Set,
	generators []candidate.Generator,
	rnd *rand.Rand,
	cfg balancerconfig.Config,
) *Driver {
	return &Driver{model: m, costs: costs, generators: generators, rnd: rnd, cfg: cfg}
}

// WithGeneratorWeights overrides uniform generator selection with the
// given weights, one per generator in the same order. Left as an
// injectable override rather than a contract, per spec.md §9's note that
// weighting by observed acceptance rate is a plausible future
// refinement, not a requirement.
func (d *Driver) WithGeneratorWeights(weights []float64) *Driver {
	if len(weights) != len(d.generators) {
		return d
	}
	cumulative := make([]float64, len(weights))
	var running float64
	for i, w := range weights {
		running += w
		cumulative[i] = running
	}
	d.weights = cumulative
	return d
}

func (d *Driver) pickGenerator() candidate.Generator {
	if d.weights == nil {
		return d.generators[d.rnd.Intn(len(d.generators))]
	}
	total := d.weights[len(d.weights)-1]
	r := d.rnd.Float64() * total
	for i, cum := range d.weights {
		if r < cum {
			return d.generators[i]
		}
	}
	return d.generators[len(d.generators)-1]
}

// DefaultGenerators returns the four stock candidate generators in the
// order spec.md §4.3 lists them.
func DefaultGenerators() []candidate.Generator {
	return []candidate.Generator{
		candidate.NewRandom(),
		candidate.NewLoadSkew(),
		candidate.NewLocality(),
		candidate.NewReplicaRack(),
	}
}

func replicaColocationCost(contributions []cost.Contribution) float64 {
	var total float64
	for _, c := range contributions {
		if replicaCostNames[c.Name] {
			total += c.Weighted
		}
	}
	return total
}

// needsBalance implements spec.md §4.4's pre-check: a nonzero
// replica-colocation cost proceeds unconditionally, even on a cluster
// smaller than minServerBalance — colocated replicas are urgent enough
// to override the small-cluster bail-out. Only once colocation is clear
// do we bail out on a too-small cluster, then fall back to the aggregate
// cost ratio against minCostNeedBalance.
func (d *Driver) needsBalance(total float64, contributions []cost.Contribution) bool {
	if replicaColocationCost(contributions) > 0 {
		return true
	}
	if d.model.NumServers() < d.cfg.MinServerBalance {
		return false
	}
	sumOfWeights := d.costs.SumOfWeights()
	if sumOfWeights <= 0 {
		return false
	}
	return total/sumOfWeights >= d.cfg.MinCostNeedBalance
}

// Run executes the pre-check and, if warranted, the hill-climbing loop.
// It returns a Result describing what happened whether or not a plan was
// produced; the caller extracts the actual move list via the plan
// package by diffing the ClusterModel this Driver was built with. If
// ClusterModel.Apply ever reports a precondition violation on an action
// the loop itself generated, Run stops and returns Result.Aborted with
// Result.Err set, rather than panicking or terminating the process — the
// caller is expected to turn that into a "no plan" outcome.
func (d *Driver) Run(ctx context.Context) Result {
	start := time.Now()
	d.costs.Init(d.model)

	initialTotal, initialContrib := d.costs.Aggregate(posInf)
	if !d.needsBalance(initialTotal, initialContrib) {
		log.VEventf(ctx, 1, "balance skipped: cluster does not need balancing (cost=%.4f)", log.Safe(initialTotal))
		return Result{Ran: false, InitialCost: initialTotal, InitialBreakdown: initialContrib, Elapsed: time.Since(start)}
	}

	steps := d.cfg.MaxSteps
	if bySize := d.model.NumRegions() * d.cfg.StepsPerRegion * d.model.NumServers(); bySize < steps {
		steps = bySize
	}

	deadline := time.Now().Add(d.cfg.MaxRunningTime)
	best := initialTotal
	bestContrib := initialContrib
	stepsRun := 0
	var trace []float64
	if d.trace {
		trace = append(trace, best)
	}

	for step := 0; step < steps; step++ {
		stepsRun = step + 1
		if time.Now().After(deadline) {
			stepsRun = step
			log.VEventf(ctx, 1, "balance deadline exceeded after %d steps", log.Safe(stepsRun))
			break
		}

		gen := d.pickGenerator()
		action := gen.Generate(d.model, d.rnd)
		if action.IsNull() {
			continue
		}

		if err := d.model.Apply(action); err != nil {
			abortErr := errors.Wrapf(err, "precondition violated applying action %v", action)
			log.Errorf(ctx, "balance run aborted: %v", abortErr)
			return Result{
				Ran: true, Aborted: true, Err: abortErr,
				InitialCost: initialTotal, FinalCost: best, Steps: stepsRun, Elapsed: time.Since(start),
			}
		}
		d.costs.PostAction(action)

		newTotal, newContrib := d.costs.Aggregate(best)
		if newTotal < best {
			best = newTotal
			bestContrib = newContrib
			if d.trace {
				trace = append(trace, best)
			}
			continue
		}

		if err := d.model.Apply(action.Inverse()); err != nil {
			abortErr := errors.Wrapf(err, "precondition violated undoing action %v", action)
			log.Errorf(ctx, "balance run aborted: %v", abortErr)
			return Result{
				Ran: true, Aborted: true, Err: abortErr,
				InitialCost: initialTotal, FinalCost: best, Steps: stepsRun, Elapsed: time.Since(start),
			}
		}
		d.costs.PostAction(action.Inverse())
	}

	return Result{
		Ran:              true,
		Improved:         best < initialTotal,
		InitialCost:      initialTotal,
		FinalCost:        best,
		Steps:            stepsRun,
		Elapsed:          time.Since(start),
		InitialBreakdown: initialContrib,
		FinalBreakdown:   bestContrib,
		CostTrace:        trace,
	}
}

const posInf = 1e300
