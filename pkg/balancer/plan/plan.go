// Package plan extracts the final movement list from a balanced
// ClusterModel by diffing its initial and current assignment.
package plan

import "github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"

// Move is one region relocation: from its server at model construction
// time to its server at extraction time.
type Move struct {
	Region model.RegionName
	From   model.ServerName
	To     model.ServerName
}

// Extract walks every region in m and emits a Move for each whose
// current server differs from its initial one. Order is unspecified;
// receivers must treat the result as a set (spec.md §4.5).
func Extract(m *model.ClusterModel) []Move {
	var moves []Move
	for r := 0; r < m.NumRegions(); r++ {
		region := model.RegionIndex(r)
		from := m.InitialServerOfRegion(region)
		to := m.ServerOfRegion(region)
		if from == to {
			continue
		}
		moves = append(moves, Move{
			Region: m.RegionName(region),
			From:   m.ServerName(from),
			To:     m.ServerName(to),
		})
	}
	return moves
}

// Cap returns the largest legal plan size for a cluster with numRegions
// regions under maxMovePercent (spec.md §8 invariant 6): the same
// max(numRegions*percent, 600) formula as balancerconfig.Config.MaxMoves,
// whose result is the move ceiling passed to the MoveCost function.
func Cap(numRegions int, maxMovePercent float64) int {
	byPercent := int(float64(numRegions) * maxMovePercent)
	if byPercent < 600 {
		return 600
	}
	return byPercent
}
