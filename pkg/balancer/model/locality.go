package model

// LocalityOracle answers, for a region, the list of servers holding a
// local copy of some fraction of its data blocks, ranked by descending
// locality fraction. It is the external block-locality discovery service
// referenced in spec.md §6; the balancer core never calls out to HDFS or
// any other storage layer directly. A nil oracle is valid: every region
// is then treated as having no known locality data.
type LocalityOracle interface {
	// LocalityFor returns, for the region with the given name, the
	// servers holding local blocks and their locality fraction in
	// [0, 1], ordered by descending fraction. An empty result means no
	// locality data is available for this region.
	LocalityFor(region RegionName) []ServerLocality
}

// ServerLocality pairs a server name with the fraction of a region's
// blocks that server holds locally.
type ServerLocality struct {
	Server   ServerName
	Fraction float64
}

// LocalityOracleFunc adapts a function to a LocalityOracle.
type LocalityOracleFunc func(region RegionName) []ServerLocality

// LocalityFor implements LocalityOracle.
func (f LocalityOracleFunc) LocalityFor(region RegionName) []ServerLocality {
	return f(region)
}

// RackResolver maps a server to the identity of the rack it lives in.
type RackResolver interface {
	RackOf(server ServerName) string
}

// RackResolverFunc adapts a function to a RackResolver.
type RackResolverFunc func(server ServerName) string

// RackOf implements RackResolver.
func (f RackResolverFunc) RackOf(server ServerName) string { return f(server) }
