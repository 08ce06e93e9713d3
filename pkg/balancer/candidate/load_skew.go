package candidate

import (
	"math/rand"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

// LoadSkew targets the heaviest and lightest servers directly, rather
// than picking at random, so the search loop converges on region-count
// balance faster than Random alone would.
type LoadSkew struct{}

// NewLoadSkew returns the LoadSkew generator.
func NewLoadSkew() *LoadSkew { return &LoadSkew{} }

// Name implements Generator.
func (LoadSkew) Name() string { return "LoadSkew" }

// Generate implements Generator.
func (LoadSkew) Generate(m *model.ClusterModel, rnd *rand.Rand) model.Action {
	sorted := m.SortedServersByRegionCount()
	if len(sorted) < 2 {
		return model.NullAction
	}
	lightest := sorted[0]
	heaviest := sorted[len(sorted)-1]
	if m.NumRegionsOnServer(lightest) == m.NumRegionsOnServer(heaviest) {
		return model.NullAction
	}
	return pickRandomRegions(m, rnd, heaviest, lightest)
}
