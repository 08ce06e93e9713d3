package cost

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

func TestRegionCountSkew_TenAndZeroThenBalanced(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	b := model.ServerName{Host: "b", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{a: {}, b: {}}
	for i := 0; i < 10; i++ {
		assignment[a] = append(assignment[a], model.RegionDescriptor{
			Name: model.RegionName(fmt.Sprintf("r%d", i)), Table: "t1", IsPrimary: true,
		})
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	f := NewRegionCountSkew(500)
	f.Init(m)
	require.Greater(t, f.Cost(), 0.0)

	// Move 5 regions to server b so both hold 5.
	for i := 0; i < 5; i++ {
		region := model.RegionIndex(i)
		from := m.ServerOfRegion(region)
		var to model.ServerIndex
		for s := 0; s < m.NumServers(); s++ {
			if model.ServerIndex(s) != from {
				to = model.ServerIndex(s)
			}
		}
		require.NoError(t, m.Apply(model.Move(region, from, to)))
	}
	require.InDelta(t, 0, f.Cost(), 1e-9)
}

func TestPrimaryRegionCountSkew_DisabledWithoutReplicas(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{
		a: {{Name: "r0", Table: "t1", IsPrimary: true}},
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	f := NewPrimaryRegionCountSkew(500)
	f.Init(m)
	require.False(t, f.IsNeeded())
}

func TestPrimaryRegionCountSkew_CountsOnlyPrimaries(t *testing.T) {
	a := model.ServerName{Host: "a", Port: 1, StartCode: 1}
	b := model.ServerName{Host: "b", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{
		a: {
			{Name: "primary", Table: "t1", IsPrimary: true},
			{Name: "secondary", Table: "t1", IsPrimary: false, PrimaryOf: "primary"},
		},
		b: {},
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	f := NewPrimaryRegionCountSkew(500)
	f.Init(m)
	require.True(t, f.IsNeeded())
	// Server a holds 1 primary (not 2), server b holds 0. With a single
	// primary in the cluster a 1-vs-0 split is the even baseline, so the
	// cost is 0; counting both regions (2-vs-0) would give cost 1.
	require.InDelta(t, 0, f.Cost(), 1e-9)
}
