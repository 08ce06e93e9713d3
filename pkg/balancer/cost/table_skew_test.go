package cost

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

func threeByThreeAssignment() map[model.ServerName][]model.RegionDescriptor {
	s1 := model.ServerName{Host: "s1", Port: 1, StartCode: 1}
	s2 := model.ServerName{Host: "s2", Port: 1, StartCode: 1}
	s3 := model.ServerName{Host: "s3", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{s1: {}, s2: {}, s3: {}}
	for _, table := range []string{"t1", "t2", "t3"} {
		for i := 0; i < 3; i++ {
			name := model.RegionName(fmt.Sprintf("%s-r%d", table, i))
			assignment[s1] = append(assignment[s1], model.RegionDescriptor{Name: name, Table: table, IsPrimary: true})
		}
	}
	// Redistribute t2 and t3 evenly; leave t1 concentrated on s1.
	s1Regions := assignment[s1]
	assignment[s2] = append(assignment[s2], popMatching(&s1Regions, "t2-r0"))
	assignment[s2] = append(assignment[s2], popMatching(&s1Regions, "t3-r0"))
	assignment[s3] = append(assignment[s3], popMatching(&s1Regions, "t2-r1"))
	assignment[s3] = append(assignment[s3], popMatching(&s1Regions, "t3-r1"))
	assignment[s1] = s1Regions
	return assignment
}

func popMatching(from *[]model.RegionDescriptor, name model.RegionName) model.RegionDescriptor {
	for i, rd := range *from {
		if rd.Name == name {
			*from = append((*from)[:i], (*from)[i+1:]...)
			return rd
		}
	}
	panic("not found: " + name)
}

func TestTableSkew_ConcentratedTableHasNonZeroCost(t *testing.T) {
	m, err := model.NewClusterModel(threeByThreeAssignment(), nil, nil, nil, 15)
	require.NoError(t, err)

	f := NewTableSkew(35, 0)
	f.Init(m)

	t1 := findTable(m, "t1")
	require.Equal(t, float64(2), f.numMoves(t1))
	require.Greater(t, f.Cost(), 0.0)
}

func TestTableSkew_EvenlyDistributedIsZero(t *testing.T) {
	s1 := model.ServerName{Host: "s1", Port: 1, StartCode: 1}
	s2 := model.ServerName{Host: "s2", Port: 1, StartCode: 1}
	s3 := model.ServerName{Host: "s3", Port: 1, StartCode: 1}
	assignment := map[model.ServerName][]model.RegionDescriptor{
		s1: {{Name: "r0", Table: "t1", IsPrimary: true}},
		s2: {{Name: "r1", Table: "t1", IsPrimary: true}},
		s3: {{Name: "r2", Table: "t1", IsPrimary: true}},
	}
	m, err := model.NewClusterModel(assignment, nil, nil, nil, 15)
	require.NoError(t, err)

	f := NewTableSkew(35, 0)
	f.Init(m)
	require.InDelta(t, 0, f.Cost(), 1e-9)
}

func findTable(m *model.ClusterModel, name string) model.TableIndex {
	for t := 0; t < m.NumTables(); t++ {
		// TableOfRegion gives indices, not names, so recover the name via a
		// region we know belongs to it.
		for r := 0; r < m.NumRegions(); r++ {
			if m.TableOfRegion(model.RegionIndex(r)) == model.TableIndex(t) {
				if regionTableName(m, model.RegionIndex(r)) == name {
					return model.TableIndex(t)
				}
				break
			}
		}
	}
	panic("table not found: " + name)
}

func regionTableName(m *model.ClusterModel, r model.RegionIndex) string {
	name, _, _ := strings.Cut(string(m.RegionName(r)), "-")
	return name
}
