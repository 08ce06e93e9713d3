package cost

import (
	"math"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
)

// TableSkew is the "definitive version" of spec.md §4.2.1: for each
// table it measures how many regions would need to move to reach the
// ideal even split across servers, normalizes per table, then combines
// the per-table skews with a max/average blend. Only this version is
// implemented; the Java original's deprecated second TableSkew function
// (with its monotonic-decay numMaxRegionsPerTable side channel) is not
// carried over, per spec.md §9.
type TableSkew struct {
	multiplier      float64
	maxSkewWeight   float64
	model           *model.ClusterModel
	numMovesByTable []float64
}

// NewTableSkew returns a TableSkew with the given weight and max-skew
// blend factor (maxTableSkewWeight in configuration, default 0).
func NewTableSkew(multiplier, maxSkewWeight float64) *TableSkew {
	return &TableSkew{multiplier: multiplier, maxSkewWeight: maxSkewWeight}
}

// Name implements Function.
func (f *TableSkew) Name() string { return "TableSkew" }

// Init implements Function.
func (f *TableSkew) Init(m *model.ClusterModel) {
	f.model = m
	f.numMovesByTable = make([]float64, m.NumTables())
	for t := 0; t < m.NumTables(); t++ {
		f.numMovesByTable[t] = f.numMoves(model.TableIndex(t))
	}
}

// PostAction implements Function. A move recomputes numMoves for the
// affected table only; a same-table swap changes no server's per-table
// count and is a no-op, matching spec.md §4.2.1's incremental rule.
func (f *TableSkew) PostAction(a model.Action) {
	switch a.Kind {
	case model.ActionMove:
		t := f.model.TableOfRegion(a.Region)
		f.numMovesByTable[t] = f.numMoves(t)
	case model.ActionSwap:
		t1 := f.model.TableOfRegion(a.Region)
		t2 := f.model.TableOfRegion(a.Region2)
		if t2 != t1 {
			f.numMovesByTable[t1] = f.numMoves(t1)
			f.numMovesByTable[t2] = f.numMoves(t2)
		}
	}
}

// numMoves computes numMoves(t) from scratch by walking every server's
// count for table t against the ideal min/max/numMax split.
func (f *TableSkew) numMoves(t model.TableIndex) float64 {
	min := f.model.MinRegionsIfEvenlyDistributed(t)
	max := f.model.MaxRegionsIfEvenlyDistributed(t)
	numMaxRemaining := f.model.NumServersWithMaxRegionsIfEvenlyDistributed(t)

	var moves int
	for s := 0; s < f.model.NumServers(); s++ {
		n := f.model.NumRegionsOnServerOfTable(model.ServerIndex(s), t)
		if n >= max && numMaxRemaining > 0 {
			moves += n - max
			numMaxRemaining--
		} else if n > min {
			moves += n - min
		}
	}
	return float64(moves)
}

// skewOf returns numMoves(t) / (R - max), or 0 when R == max (a single
// server, or a table that already fits entirely within max on one
// server).
func (f *TableSkew) skewOf(t model.TableIndex) float64 {
	r := f.model.NumRegionsOfTable(t)
	max := f.model.MaxRegionsIfEvenlyDistributed(t)
	if r == max {
		return 0
	}
	return clamp(f.numMovesByTable[t]/float64(r-max), 0, 1)
}

// IsNeeded implements Function; always relevant.
func (f *TableSkew) IsNeeded() bool { return true }

// Multiplier implements Function.
func (f *TableSkew) Multiplier() float64 { return f.multiplier }

// Cost implements Function.
func (f *TableSkew) Cost() float64 {
	numTables := f.model.NumTables()
	if numTables == 0 {
		return 0
	}
	var maxSkew, sumSkew float64
	for t := 0; t < numTables; t++ {
		s := f.skewOf(model.TableIndex(t))
		if s > maxSkew {
			maxSkew = s
		}
		sumSkew += s
	}
	avgSkew := sumSkew / float64(numTables)
	wMax := f.maxSkewWeight
	wAvg := 1 - wMax
	v := wMax*maxSkew + wAvg*avgSkew
	if v < 0 {
		v = 0
	}
	return clamp(math.Sqrt(v), 0, 1)
}
