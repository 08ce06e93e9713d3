package cost

import (
	"math"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
	"golang.org/x/exp/slices"
)

func sortRegionIndices(arr []model.RegionIndex) {
	slices.Sort(arr)
}

// runCost sums (k-1)^2 over every run of k consecutive equal values in a
// sorted array of primary-region indices. Because
// primariesOfRegionsPer{Server,Host,Rack} is kept sorted, a run of equal
// values reveals co-located replicas without any hashing (spec.md §4.1).
func runCost(sortedPrimaries []model.RegionIndex) float64 {
	var cost float64
	n := len(sortedPrimaries)
	i := 0
	for i < n {
		j := i + 1
		for j < n && sortedPrimaries[j] == sortedPrimaries[i] {
			j++
		}
		runLen := j - i
		if runLen > 1 {
			d := float64(runLen - 1)
			cost += d * d
		}
		i = j
	}
	return cost
}

// replicaColocation is the shared implementation behind RegionReplicaHost
// and RegionReplicaRack: both measure the same (k-1)^2 colocation cost,
// just grouped by a different topology level.
type replicaColocation struct {
	multiplier    float64
	model         *model.ClusterModel
	numGroups     func() int
	groupOf       func(model.ServerIndex) int
	primariesOf   func(group int) []model.RegionIndex
	maxCost       float64
	costsPerGroup []float64
	hasReplicas   bool
}

func (f *replicaColocation) init(m *model.ClusterModel) {
	f.model = m
	f.hasReplicas = false
	for r := 0; r < m.NumRegions(); r++ {
		if !m.IsPrimary(model.RegionIndex(r)) {
			f.hasReplicas = true
			break
		}
	}
	if !f.hasReplicas || f.numGroups() <= 1 {
		f.maxCost = 0
		return
	}
	allPrimaries := make([]model.RegionIndex, m.NumRegions())
	for r := 0; r < m.NumRegions(); r++ {
		allPrimaries[r] = m.PrimaryOfRegion(model.RegionIndex(r))
	}
	sortRegionIndices(allPrimaries)
	f.maxCost = runCost(allPrimaries)

	f.costsPerGroup = make([]float64, f.numGroups())
	for g := 0; g < f.numGroups(); g++ {
		f.costsPerGroup[g] = runCost(f.primariesOf(g))
	}
}

func (f *replicaColocation) postAction(a model.Action) {
	if f.maxCost <= 0 {
		return
	}
	switch a.Kind {
	case model.ActionMove:
		f.recomputeIfCrossed(a.From, a.To)
	case model.ActionSwap:
		f.recomputeIfCrossed(a.From, a.To)
		f.recomputeIfCrossed(a.From2, a.To2)
	}
}

func (f *replicaColocation) recomputeIfCrossed(from, to model.ServerIndex) {
	oldGroup := f.groupOf(from)
	newGroup := f.groupOf(to)
	if oldGroup == newGroup {
		return
	}
	f.costsPerGroup[oldGroup] = runCost(f.primariesOf(oldGroup))
	f.costsPerGroup[newGroup] = runCost(f.primariesOf(newGroup))
}

func (f *replicaColocation) isNeeded() bool { return f.hasReplicas }

func (f *replicaColocation) cost() float64 {
	if f.maxCost <= 0 {
		return 0
	}
	var total float64
	for _, c := range f.costsPerGroup {
		total += c
	}
	return math.Sqrt(clamp(total/f.maxCost, 0, 1))
}

// RegionReplicaHost costs colocation of replicas from the same group on
// the same host.
type RegionReplicaHost struct {
	replicaColocation
}

// NewRegionReplicaHost returns a RegionReplicaHost with the given weight.
func NewRegionReplicaHost(multiplier float64) *RegionReplicaHost {
	f := &RegionReplicaHost{}
	f.multiplier = multiplier
	return f
}

// Name implements Function.
func (f *RegionReplicaHost) Name() string { return "RegionReplicaHost" }

// Init implements Function.
func (f *RegionReplicaHost) Init(m *model.ClusterModel) {
	f.numGroups = m.NumHosts
	f.groupOf = func(s model.ServerIndex) int { return int(m.HostOfServer(s)) }
	f.primariesOf = func(g int) []model.RegionIndex { return m.PrimariesOnHost(model.HostIndex(g)) }
	f.init(m)
}

// PostAction implements Function.
func (f *RegionReplicaHost) PostAction(a model.Action) { f.postAction(a) }

// IsNeeded implements Function.
func (f *RegionReplicaHost) IsNeeded() bool { return f.isNeeded() }

// Multiplier implements Function.
func (f *RegionReplicaHost) Multiplier() float64 { return f.multiplier }

// Cost implements Function.
func (f *RegionReplicaHost) Cost() float64 { return f.cost() }

// RegionReplicaRack is the rack-level analogue of RegionReplicaHost.
type RegionReplicaRack struct {
	replicaColocation
}

// NewRegionReplicaRack returns a RegionReplicaRack with the given weight.
func NewRegionReplicaRack(multiplier float64) *RegionReplicaRack {
	f := &RegionReplicaRack{}
	f.multiplier = multiplier
	return f
}

// Name implements Function.
func (f *RegionReplicaRack) Name() string { return "RegionReplicaRack" }

// Init implements Function.
func (f *RegionReplicaRack) Init(m *model.ClusterModel) {
	f.numGroups = m.NumRacks
	f.groupOf = func(s model.ServerIndex) int { return int(m.RackOfServer(s)) }
	f.primariesOf = func(g int) []model.RegionIndex { return m.PrimariesOnRack(model.RackIndex(g)) }
	f.init(m)
}

// PostAction implements Function.
func (f *RegionReplicaRack) PostAction(a model.Action) { f.postAction(a) }

// IsNeeded implements Function.
func (f *RegionReplicaRack) IsNeeded() bool { return f.isNeeded() }

// Multiplier implements Function.
func (f *RegionReplicaRack) Multiplier() float64 { return f.multiplier }

// Cost implements Function.
func (f *RegionReplicaRack) Cost() float64 { return f.cost() }
