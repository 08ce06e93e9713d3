package cost

// Weights holds the per-function multiplier for every cost function in
// the default set (spec.md §4.2 / §6). A multiplier <= 0 disables that
// function entirely.
type Weights struct {
	RegionCountSkew        float64
	PrimaryRegionCountSkew float64
	MoveCost               float64
	Locality               float64
	TableSkew              float64
	RegionReplicaHost      float64
	RegionReplicaRack      float64
	ReadRequest            float64
	WriteRequest           float64
	MemstoreSize           float64
	StoreFileSize          float64
}

// DefaultWeights returns the default multiplier for each cost function.
func DefaultWeights() Weights {
	return Weights{
		RegionCountSkew:        500,
		PrimaryRegionCountSkew: 500,
		MoveCost:               7,
		Locality:               25,
		TableSkew:              35,
		RegionReplicaHost:      100000,
		RegionReplicaRack:      10000,
		ReadRequest:            5,
		WriteRequest:           5,
		MemstoreSize:           5,
		StoreFileSize:          5,
	}
}

// BuildDefaultSet wires up the eleven cost functions from spec.md §4.2
// into one evaluation Set, with the given weights, move cap, and
// table-skew max/average blend factor.
func BuildDefaultSet(w Weights, maxMoves int, maxTableSkewWeight float64) *Set {
	return NewSet(
		NewRegionCountSkew(w.RegionCountSkew),
		NewPrimaryRegionCountSkew(w.PrimaryRegionCountSkew),
		NewMoveCost(w.MoveCost, maxMoves),
		NewLocality(w.Locality),
		NewTableSkew(w.TableSkew, maxTableSkewWeight),
		NewRegionReplicaHost(w.RegionReplicaHost),
		NewRegionReplicaRack(w.RegionReplicaRack),
		NewReadRequest(w.ReadRequest),
		NewWriteRequest(w.WriteRequest),
		NewMemstoreSize(w.MemstoreSize),
		NewStoreFileSize(w.StoreFileSize),
	)
}
