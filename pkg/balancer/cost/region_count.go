package cost

import "github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"

// RegionCountSkew is the dispersion of NumRegionsOnServer across all
// servers, scaled through CostFromArray. It needs no incremental state:
// NumRegionsOnServer is already O(1), so recomputing the array each call
// is as cheap as maintaining a shadow copy would be.
type RegionCountSkew struct {
	multiplier float64
	model      *model.ClusterModel
}

// NewRegionCountSkew returns a RegionCountSkew with the given weight.
func NewRegionCountSkew(multiplier float64) *RegionCountSkew {
	return &RegionCountSkew{multiplier: multiplier}
}

// Name implements Function.
func (f *RegionCountSkew) Name() string { return "RegionCountSkew" }

// Init implements Function.
func (f *RegionCountSkew) Init(m *model.ClusterModel) { f.model = m }

// PostAction implements Function; no incremental state to track.
func (f *RegionCountSkew) PostAction(model.Action) {}

// IsNeeded implements Function; always relevant.
func (f *RegionCountSkew) IsNeeded() bool { return true }

// Multiplier implements Function.
func (f *RegionCountSkew) Multiplier() float64 { return f.multiplier }

// Cost implements Function.
func (f *RegionCountSkew) Cost() float64 {
	n := f.model.NumServers()
	values := make([]float64, n)
	for s := 0; s < n; s++ {
		values[s] = float64(f.model.NumRegionsOnServer(model.ServerIndex(s)))
	}
	return CostFromArray(values)
}

// PrimaryRegionCountSkew is the dispersion of primary-region counts
// across servers. It disables itself (IsNeeded returns false) when no
// region in the cluster has a secondary replica, since in that case
// every region is its own primary and this duplicates RegionCountSkew.
type PrimaryRegionCountSkew struct {
	multiplier  float64
	model       *model.ClusterModel
	hasReplicas bool
}

// NewPrimaryRegionCountSkew returns a PrimaryRegionCountSkew with the
// given weight.
func NewPrimaryRegionCountSkew(multiplier float64) *PrimaryRegionCountSkew {
	return &PrimaryRegionCountSkew{multiplier: multiplier}
}

// Name implements Function.
func (f *PrimaryRegionCountSkew) Name() string { return "PrimaryRegionCountSkew" }

// Init implements Function.
func (f *PrimaryRegionCountSkew) Init(m *model.ClusterModel) {
	f.model = m
	f.hasReplicas = false
	for r := 0; r < m.NumRegions(); r++ {
		if !m.IsPrimary(model.RegionIndex(r)) {
			f.hasReplicas = true
			break
		}
	}
}

// PostAction implements Function; no incremental state to track.
func (f *PrimaryRegionCountSkew) PostAction(model.Action) {}

// IsNeeded implements Function.
func (f *PrimaryRegionCountSkew) IsNeeded() bool { return f.hasReplicas }

// Multiplier implements Function.
func (f *PrimaryRegionCountSkew) Multiplier() float64 { return f.multiplier }

// Cost implements Function.
func (f *PrimaryRegionCountSkew) Cost() float64 {
	n := f.model.NumServers()
	values := make([]float64, n)
	for s := 0; s < n; s++ {
		count := 0
		for _, r := range f.model.RegionsOnServer(model.ServerIndex(s)) {
			if f.model.IsPrimary(r) {
				count++
			}
		}
		values[s] = float64(count)
	}
	return CostFromArray(values)
}
