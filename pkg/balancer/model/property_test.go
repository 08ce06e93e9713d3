package model

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func propertyTestAssignment(numServers, numRegionsPerServer int) map[ServerName][]RegionDescriptor {
	assignment := make(map[ServerName][]RegionDescriptor, numServers)
	for s := 0; s < numServers; s++ {
		sn := ServerName{Host: fmt.Sprintf("h%d", s), Port: 1, StartCode: 1}
		var regions []RegionDescriptor
		for r := 0; r < numRegionsPerServer; r++ {
			regions = append(regions, RegionDescriptor{
				Name:      RegionName(fmt.Sprintf("s%d-r%d", s, r)),
				Table:     "t1",
				IsPrimary: true,
			})
		}
		assignment[sn] = regions
	}
	return assignment
}

// applyRandomMoves turns a slice of raw ints into a sequence of MOVE
// actions and applies them to m, each choosing region and destination
// server by modulo-reducing the raw ints into range.
func applyRandomMoves(m *ClusterModel, raw []int) error {
	for i := 0; i+1 < len(raw); i += 2 {
		if m.NumRegions() == 0 || m.NumServers() < 2 {
			return nil
		}
		region := RegionIndex(((raw[i] % m.NumRegions()) + m.NumRegions()) % m.NumRegions())
		from := m.ServerOfRegion(region)
		to := ServerIndex(((raw[i+1] % m.NumServers()) + m.NumServers()) % m.NumServers())
		if to == from {
			continue
		}
		if err := m.Apply(Move(region, from, to)); err != nil {
			return err
		}
	}
	return nil
}

// TestProperty_IndexCoherenceAfterRandomMoves is spec.md §8 invariant 1:
// after any sequence of applied Actions, every region appears in exactly
// one regionsPerServer list, and that list matches regionToServer.
func TestProperty_IndexCoherenceAfterRandomMoves(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("index coherence holds after any sequence of moves", prop.ForAll(
		func(raw []int) bool {
			m, err := NewClusterModel(propertyTestAssignment(4, 5), nil, nil, nil, 15)
			if err != nil {
				t.Fatalf("building model: %v", err)
			}
			if err := applyRandomMoves(m, raw); err != nil {
				t.Fatalf("applying moves: %v", err)
			}
			return m.CheckInvariants() == nil
		},
		gen.SliceOfN(40, gen.IntRange(0, 1<<20)),
	))

	properties.TestingRun(t)
}

// TestProperty_UndoSymmetry is spec.md §8 invariant 2, restricted to
// ClusterModel index state (cost-function incremental state is covered
// separately only for Locality, whose test compares incremental vs
// from-scratch recomputation, and MoveCost, whose test checks a move and
// its undo).
func TestProperty_UndoSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("apply then apply-inverse restores every index", prop.ForAll(
		func(regionRaw, toRaw int) bool {
			m, err := NewClusterModel(propertyTestAssignment(4, 5), nil, nil, nil, 15)
			if err != nil {
				t.Fatalf("building model: %v", err)
			}
			before := snapshotAssignment(m)

			region := RegionIndex(((regionRaw % m.NumRegions()) + m.NumRegions()) % m.NumRegions())
			from := m.ServerOfRegion(region)
			to := ServerIndex(((toRaw % m.NumServers()) + m.NumServers()) % m.NumServers())
			if to == from {
				return true
			}
			move := Move(region, from, to)
			if err := m.Apply(move); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if err := m.Apply(move.Inverse()); err != nil {
				t.Fatalf("apply inverse: %v", err)
			}

			after := snapshotAssignment(m)
			if len(before) != len(after) {
				return false
			}
			for r, s := range before {
				if after[r] != s {
					return false
				}
			}
			return m.CheckInvariants() == nil
		},
		gen.IntRange(0, 1<<20),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}

func snapshotAssignment(m *ClusterModel) map[RegionIndex]ServerIndex {
	snap := make(map[RegionIndex]ServerIndex, m.NumRegions())
	for r := 0; r < m.NumRegions(); r++ {
		snap[RegionIndex(r)] = m.ServerOfRegion(RegionIndex(r))
	}
	return snap
}
