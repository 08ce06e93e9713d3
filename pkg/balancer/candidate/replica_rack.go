package candidate

import (
	"math/rand"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

// ReplicaRack targets co-located replicas of the same primary group and
// proposes spreading them out: first across racks, falling back to
// across hosts within a rack, and finally to Random if no colocation is
// found at either level.
type ReplicaRack struct {
	random *Random
}

// NewReplicaRack returns the ReplicaRack generator.
func NewReplicaRack() *ReplicaRack {
	return &ReplicaRack{random: NewRandom()}
}

// Name implements Generator.
func (ReplicaRack) Name() string { return "ReplicaRack" }

// Generate implements Generator.
func (g *ReplicaRack) Generate(m *model.ClusterModel, rnd *rand.Rand) model.Action {
	if a, ok := g.fromRack(m, rnd); ok {
		return a
	}
	if a, ok := g.fromHost(m, rnd); ok {
		return a
	}
	return g.random.Generate(m, rnd)
}

func (g *ReplicaRack) fromRack(m *model.ClusterModel, rnd *rand.Rand) (model.Action, bool) {
	if m.NumRacks() < 2 {
		return model.NullAction, false
	}
	rack := pickRandomRack(m, rnd)
	if rack == model.InvalidIndex {
		return model.NullAction, false
	}
	region := selectCoHostedRegionPerGroup(m, rnd, m.PrimariesOnRack(rack), m.RegionsOnRack(rack))
	if region == model.InvalidIndex {
		return model.NullAction, false
	}
	fromServer := m.ServerOfRegion(region)
	toRack := pickOtherRandomRack(m, rnd, rack)
	if toRack == model.InvalidIndex {
		return model.NullAction, false
	}
	toServer := pickRandomServerOnRack(m, rnd, toRack)
	if toServer == model.InvalidIndex {
		return model.NullAction, false
	}
	toRegion := pickRandomRegion(m, rnd, toServer, 0.9)
	return getAction(fromServer, region, toServer, toRegion), true
}

func (g *ReplicaRack) fromHost(m *model.ClusterModel, rnd *rand.Rand) (model.Action, bool) {
	if m.NumHosts() < 2 {
		return model.NullAction, false
	}
	server := pickRandomServer(m, rnd)
	if server == model.InvalidIndex {
		return model.NullAction, false
	}
	host := m.HostOfServer(server)
	region := selectCoHostedRegionPerGroup(m, rnd, m.PrimariesOnHost(host), m.RegionsOnHost(host))
	if region == model.InvalidIndex {
		return model.NullAction, false
	}
	fromServer := m.ServerOfRegion(region)
	toServer := pickOtherRandomServer(m, rnd, fromServer)
	if toServer == model.InvalidIndex {
		return model.NullAction, false
	}
	toRegion := pickRandomRegion(m, rnd, toServer, 0.9)
	return getAction(fromServer, region, toServer, toRegion), true
}

func pickRandomServerOnRack(m *model.ClusterModel, rnd *rand.Rand, rack model.RackIndex) model.ServerIndex {
	var candidates []model.ServerIndex
	for s := 0; s < m.NumServers(); s++ {
		si := model.ServerIndex(s)
		if m.RackOfServer(si) == rack {
			candidates = append(candidates, si)
		}
	}
	if len(candidates) == 0 {
		return model.InvalidIndex
	}
	return candidates[rnd.Intn(len(candidates))]
}
