package candidate

import (
	"math/rand"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

// Locality targets a random server's least-local region and proposes
// moving it to the highest-ranked server known to hold local data for it
// whose region count is below the cluster mean.
type Locality struct{}

// NewLocality returns the Locality generator.
func NewLocality() *Locality { return &Locality{} }

// Name implements Generator.
func (Locality) Name() string { return "Locality" }

// Generate implements Generator.
func (Locality) Generate(m *model.ClusterModel, rnd *rand.Rand) model.Action {
	server := pickRandomServer(m, rnd)
	if server == model.InvalidIndex {
		return model.NullAction
	}
	region := m.LowestLocalityRegionOn(server)
	if region == model.InvalidIndex {
		return model.NullAction
	}
	target := m.LeastLoadedServerWithLocalityFor(region, server)
	if target == model.InvalidIndex {
		return model.NullAction
	}
	return model.Move(region, server, target)
}
