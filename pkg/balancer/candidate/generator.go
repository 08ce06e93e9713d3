// Package candidate implements the four stateless candidate generators
// that propose Actions for the search loop to try: random, load-skew
// driven, locality driven, and replica-colocation driven.
package candidate

import (
	"math/rand"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

// Generator proposes one Action per call, reading the model but never
// mutating it. It is stateless: all randomness comes from the rnd
// parameter, so the same (model, rnd-state) pair always proposes the
// same Action, which is what lets the SearchDriver be seeded and
// reproducible in tests.
type Generator interface {
	Name() string
	Generate(m *model.ClusterModel, rnd *rand.Rand) model.Action
}

func pickRandomServer(m *model.ClusterModel, rnd *rand.Rand) model.ServerIndex {
	if m.NumServers() < 1 {
		return model.InvalidIndex
	}
	return model.ServerIndex(rnd.Intn(m.NumServers()))
}

func pickOtherRandomServer(m *model.ClusterModel, rnd *rand.Rand, exclude model.ServerIndex) model.ServerIndex {
	if m.NumServers() < 2 {
		return model.InvalidIndex
	}
	for {
		s := pickRandomServer(m, rnd)
		if s != exclude {
			return s
		}
	}
}

func pickRandomRack(m *model.ClusterModel, rnd *rand.Rand) model.RackIndex {
	if m.NumRacks() < 1 {
		return model.InvalidIndex
	}
	return model.RackIndex(rnd.Intn(m.NumRacks()))
}

func pickOtherRandomRack(m *model.ClusterModel, rnd *rand.Rand, exclude model.RackIndex) model.RackIndex {
	if m.NumRacks() < 2 {
		return model.InvalidIndex
	}
	for {
		k := pickRandomRack(m, rnd)
		if k != exclude {
			return k
		}
	}
}

// pickRandomRegion picks a random region on server, or InvalidIndex
// ("just a move") with probability chanceOfNoSwap, or always when the
// server holds no regions.
func pickRandomRegion(m *model.ClusterModel, rnd *rand.Rand, server model.ServerIndex, chanceOfNoSwap float64) model.RegionIndex {
	regions := m.RegionsOnServer(server)
	if len(regions) == 0 || rnd.Float64() < chanceOfNoSwap {
		return model.InvalidIndex
	}
	return regions[rnd.Intn(len(regions))]
}

// pickRandomRegions implements the shared "random region dance": whichever
// server has fewer regions gets a 50% chance of contributing no region to
// the action (biasing towards moving into it rather than out of it), and
// the two independent picks are combined via getAction.
func pickRandomRegions(m *model.ClusterModel, rnd *rand.Rand, thisServer, otherServer model.ServerIndex) model.Action {
	if thisServer == model.InvalidIndex || otherServer == model.InvalidIndex {
		return model.NullAction
	}
	thisCount := m.NumRegionsOnServer(thisServer)
	otherCount := m.NumRegionsOnServer(otherServer)

	var thisChance, otherChance float64
	if thisCount > otherCount {
		thisChance, otherChance = 0, 0.5
	} else if thisCount < otherCount {
		thisChance, otherChance = 0.5, 0
	} else {
		thisChance, otherChance = 0.5, 0
	}

	thisRegion := pickRandomRegion(m, rnd, thisServer, thisChance)
	otherRegion := pickRandomRegion(m, rnd, otherServer, otherChance)
	return getAction(thisServer, thisRegion, otherServer, otherRegion)
}

// getAction combines two independently-picked (server, region) sides
// into a MOVE, SWAP, or NULL action.
func getAction(fromServer model.ServerIndex, fromRegion model.RegionIndex, toServer model.ServerIndex, toRegion model.RegionIndex) model.Action {
	if fromServer == model.InvalidIndex || toServer == model.InvalidIndex {
		return model.NullAction
	}
	switch {
	case fromRegion != model.InvalidIndex && toRegion != model.InvalidIndex:
		return model.Swap(fromRegion, fromServer, toRegion, toServer)
	case fromRegion != model.InvalidIndex:
		return model.Move(fromRegion, fromServer, toServer)
	case toRegion != model.InvalidIndex:
		return model.Move(toRegion, toServer, fromServer)
	default:
		return model.NullAction
	}
}

// selectCoHostedRegionPerGroup walks a sorted primaries-of-region array
// (per server, host, or rack) and, via reservoir sampling over runs of
// equal primary values, selects one co-located replica group uniformly
// at random, then returns a secondary (never the primary itself) region
// of that group within regions. Returns InvalidIndex if no group in this
// array has more than one replica.
func selectCoHostedRegionPerGroup(m *model.ClusterModel, rnd *rand.Rand, primaries, regions []model.RegionIndex) model.RegionIndex {
	currentPrimary := model.RegionIndex(model.InvalidIndex)
	currentPrimaryIndex := model.InvalidIndex
	selectedPrimary := model.RegionIndex(model.InvalidIndex)
	currentLargestRandom := -1.0

	for j := 0; j <= len(primaries); j++ {
		primary := model.RegionIndex(model.InvalidIndex)
		if j < len(primaries) {
			primary = primaries[j]
		}
		if primary != currentPrimary {
			numReplicas := j - currentPrimaryIndex
			if numReplicas > 1 {
				r := rnd.Float64()
				if r > currentLargestRandom {
					selectedPrimary = currentPrimary
					currentLargestRandom = r
				}
			}
			currentPrimary = primary
			currentPrimaryIndex = j
		}
	}

	if selectedPrimary == model.RegionIndex(model.InvalidIndex) {
		return model.InvalidIndex
	}
	for _, r := range regions {
		if m.PrimaryOfRegion(r) == selectedPrimary && r != selectedPrimary {
			return r
		}
	}
	return model.InvalidIndex
}
