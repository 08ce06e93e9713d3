package cost

import "github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"

// Locality costs a cluster by how far each region's current server is
// from being where its data already lives. A region with no locality
// data at all — no oracle configured, or the oracle reports nothing for
// that region — contributes 0 (the best possible score, since there is
// nothing to be non-local with respect to). A region for which the
// oracle reports data, but not for the server the region currently sits
// on, contributes 1.
type Locality struct {
	multiplier float64
	model      *model.ClusterModel
	sum        float64
	terms      map[model.RegionIndex]float64
}

// NewLocality returns a Locality cost function with the given weight.
func NewLocality(multiplier float64) *Locality {
	return &Locality{multiplier: multiplier}
}

// Name implements Function.
func (f *Locality) Name() string { return "Locality" }

// Init implements Function.
func (f *Locality) Init(m *model.ClusterModel) {
	f.model = m
	f.sum = 0
	f.terms = make(map[model.RegionIndex]float64, m.NumRegions())
	for r := 0; r < m.NumRegions(); r++ {
		ri := model.RegionIndex(r)
		term := localityTerm(m, ri)
		f.terms[ri] = term
		f.sum += term
	}
}

// PostAction implements Function.
func (f *Locality) PostAction(a model.Action) {
	switch a.Kind {
	case model.ActionMove:
		f.retrack(a.Region)
	case model.ActionSwap:
		f.retrack(a.Region)
		f.retrack(a.Region2)
	}
}

// retrack recomputes the (1 - locality) term for region r against its
// current server. It is called immediately after the model applies the
// move, so "current" already reflects the new placement; we keep only
// the delta against the term we most recently contributed for r via a
// per-region cache to avoid an O(numRegions) rescan.
func (f *Locality) retrack(r model.RegionIndex) {
	old := f.terms[r]
	next := localityTerm(f.model, r)
	f.sum += next - old
	f.terms[r] = next
}

// localityTerm is 0 when region r has no locality data at all (nothing to
// be non-local with respect to), else 1 minus the locality fraction of
// r's current server, which is 0 when the current server holds no known
// share of r's data.
func localityTerm(m *model.ClusterModel, r model.RegionIndex) float64 {
	if len(m.RegionLocations(r)) == 0 {
		return 0
	}
	return 1 - m.LocalityOfRegion(r, m.ServerOfRegion(r))
}

// IsNeeded implements Function; always relevant.
func (f *Locality) IsNeeded() bool { return true }

// Multiplier implements Function.
func (f *Locality) Multiplier() float64 { return f.multiplier }

// Cost implements Function.
func (f *Locality) Cost() float64 {
	n := f.model.NumRegions()
	if n == 0 {
		return 0
	}
	return clamp(f.sum/float64(n), 0, 1)
}
