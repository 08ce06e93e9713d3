package cost

import "github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"

// regionLoadStat extracts the per-region cost term this function sums
// per server: for the rate-based functions, max(0, mean of first
// differences) over the sample window; for the size-based function, the
// latest absolute sample.
type regionLoadStat struct {
	name       string
	multiplier float64
	model      *model.ClusterModel
	extract    func(*model.LoadHistory) float64
}

// Name implements Function.
func (f *regionLoadStat) Name() string { return f.name }

// Init implements Function.
func (f *regionLoadStat) Init(m *model.ClusterModel) { f.model = m }

// PostAction implements Function; each Cost() call recomputes the
// per-server sums fresh, since the samples themselves never change
// mid-balance (only region placement does, which Cost() reads live from
// the model).
func (f *regionLoadStat) PostAction(model.Action) {}

// IsNeeded implements Function; always relevant.
func (f *regionLoadStat) IsNeeded() bool { return true }

// Multiplier implements Function.
func (f *regionLoadStat) Multiplier() float64 { return f.multiplier }

// Cost implements Function.
func (f *regionLoadStat) Cost() float64 {
	n := f.model.NumServers()
	values := make([]float64, n)
	for s := 0; s < n; s++ {
		var sum float64
		for _, r := range f.model.RegionsOnServer(model.ServerIndex(s)) {
			v := f.extract(f.model.LoadHistoryOf(r))
			if v < 0 {
				v = 0
			}
			sum += v
		}
		values[s] = sum
	}
	return CostFromArray(values)
}

// NewReadRequest returns the ReadRequest rate cost function.
func NewReadRequest(multiplier float64) Function {
	return &regionLoadStat{
		name: "ReadRequest", multiplier: multiplier,
		extract: (*model.LoadHistory).ReadReqDiffMean,
	}
}

// NewWriteRequest returns the WriteRequest rate cost function.
func NewWriteRequest(multiplier float64) Function {
	return &regionLoadStat{
		name: "WriteRequest", multiplier: multiplier,
		extract: (*model.LoadHistory).WriteReqDiffMean,
	}
}

// NewMemstoreSize returns the MemstoreSize rate cost function.
func NewMemstoreSize(multiplier float64) Function {
	return &regionLoadStat{
		name: "MemstoreSize", multiplier: multiplier,
		extract: (*model.LoadHistory).MemStoreDiffMean,
	}
}

// NewStoreFileSize returns the StoreFileSize absolute-size cost
// function. Unlike the other three, this is not a rate: it sums the
// latest StorefileSizeMB sample per server rather than a diff mean.
func NewStoreFileSize(multiplier float64) Function {
	return &regionLoadStat{
		name: "StoreFileSize", multiplier: multiplier,
		extract: (*model.LoadHistory).LatestStorefileSizeMB,
	}
}
