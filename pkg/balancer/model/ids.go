// Package model implements the in-memory cluster assignment snapshot that
// the balancer's search loop mutates: which region is on which server, and
// every derived index (per-server/host/rack counts, replica colocation,
// data locality) needed to evaluate cost functions in O(1).
package model

import "fmt"

// RegionIndex is the dense, zero-based index of a region within one
// ClusterModel instance. Indices are stable for the lifetime of the model
// and are never reused after construction — no regions are added or
// removed mid-balance, only reassigned.
type RegionIndex int

// ServerIndex is the dense, zero-based index of a server.
type ServerIndex int

// HostIndex is the dense, zero-based index of a host.
type HostIndex int

// RackIndex is the dense, zero-based index of a rack.
type RackIndex int

// TableIndex is the dense, zero-based index of a table.
type TableIndex int

// InvalidIndex is returned by lookups that find nothing, e.g.
// LeastLoadedServerWithLocalityFor or LowestLocalityRegionOn on an empty
// server.
const InvalidIndex = -1

// RegionName is the stable, opaque identity of a region.
type RegionName string

// ServerName is a server's identity: host, RPC port, and process start
// time, matching the region server naming convention that disambiguates
// server restarts on the same host:port from one another.
type ServerName struct {
	Host      string
	Port      int
	StartCode int64
}

// String renders the server name as "host:port:startcode".
func (s ServerName) String() string {
	return fmt.Sprintf("%s:%d:%d", s.Host, s.Port, s.StartCode)
}
