package candidate

import (
	"math/rand"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

// Random picks two distinct servers uniformly at random and proposes a
// move or swap between them, biased toward moving a region into the
// less-loaded of the two.
type Random struct{}

// NewRandom returns the Random generator.
func NewRandom() *Random { return &Random{} }

// Name implements Generator.
func (Random) Name() string { return "Random" }

// Generate implements Generator.
func (Random) Generate(m *model.ClusterModel, rnd *rand.Rand) model.Action {
	thisServer := pickRandomServer(m, rnd)
	if thisServer == model.InvalidIndex {
		return model.NullAction
	}
	otherServer := pickOtherRandomServer(m, rnd, thisServer)
	return pickRandomRegions(m, rnd, thisServer, otherServer)
}
