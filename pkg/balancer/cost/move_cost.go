package cost

import "github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"

// MoveCost penalizes moving regions away from their initial server. It
// maintains an incremental set of displaced regions, updated in
// PostAction, rather than rescanning every region on every call.
type MoveCost struct {
	multiplier   float64
	maxMoves     int
	model        *model.ClusterModel
	displacedSet map[model.RegionIndex]bool
}

// NewMoveCost returns a MoveCost with the given weight. maxMoves is the
// move-count ceiling above which Cost returns the fixed penalty 1e6
// (spec.md §4.2); Balancer.Balance computes it with
// balancerconfig.Config.MaxMoves as max(numRegions*maxMovePercent, 600).
func NewMoveCost(multiplier float64, maxMoves int) *MoveCost {
	return &MoveCost{multiplier: multiplier, maxMoves: maxMoves}
}

// Name implements Function.
func (f *MoveCost) Name() string { return "MoveCost" }

// Init implements Function.
func (f *MoveCost) Init(m *model.ClusterModel) {
	f.model = m
	f.displacedSet = make(map[model.RegionIndex]bool)
	for r := 0; r < m.NumRegions(); r++ {
		ri := model.RegionIndex(r)
		if m.ServerOfRegion(ri) != m.InitialServerOfRegion(ri) {
			f.displacedSet[ri] = true
		}
	}
}

// PostAction implements Function.
func (f *MoveCost) PostAction(a model.Action) {
	switch a.Kind {
	case model.ActionMove:
		f.trackRegion(a.Region)
	case model.ActionSwap:
		f.trackRegion(a.Region)
		f.trackRegion(a.Region2)
	}
}

func (f *MoveCost) trackRegion(r model.RegionIndex) {
	displaced := f.model.ServerOfRegion(r) != f.model.InitialServerOfRegion(r)
	if displaced {
		f.displacedSet[r] = true
	} else {
		delete(f.displacedSet, r)
	}
}

// IsNeeded implements Function; always relevant.
func (f *MoveCost) IsNeeded() bool { return true }

// Multiplier implements Function.
func (f *MoveCost) Multiplier() float64 { return f.multiplier }

// Cost implements Function. Returns the fixed penalty 1e6 once the
// displaced-region count exceeds maxMoves, so the search loop refuses to
// keep churning the cluster past the move budget; otherwise the count is
// divided by min(numRegions, maxMoves) and clamped to [0, 1].
func (f *MoveCost) Cost() float64 {
	moved := len(f.displacedSet)
	if moved > f.maxMoves {
		return 1e6
	}
	ceiling := f.maxMoves
	if n := f.model.NumRegions(); n < ceiling {
		ceiling = n
	}
	if ceiling <= 0 {
		return 0
	}
	return clamp(float64(moved)/float64(ceiling), 0, 1)
}
