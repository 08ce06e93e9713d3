package model

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// RegionDescriptor is the caller-supplied metadata for one region: its
// stable name, the table it belongs to, and its replica role within that
// table's replica group. A region with no secondaries is its own
// primary (IsPrimary true, PrimaryOf equal to Name).
type RegionDescriptor struct {
	Name      RegionName
	Table     string
	IsPrimary bool
	PrimaryOf RegionName
}

type regionRecord struct {
	name       RegionName
	table      TableIndex
	primaryIdx RegionIndex
	isPrimary  bool
}

type serverRecord struct {
	name ServerName
	host HostIndex
	rack RackIndex
}

type regionServerKey struct {
	region RegionIndex
	server ServerIndex
}

// ClusterModel is the mutable assignment snapshot mutated by the
// balancer's search loop. It is constructed once per balance invocation
// from a caller-supplied assignment and discarded at the end; it is
// never shared across invocations (spec.md §3, invariant 5).
type ClusterModel struct {
	regions []regionRecord
	servers []serverRecord
	hosts   []string
	racks   []string
	tables  []string

	regionIndexByName map[RegionName]RegionIndex
	serverIndexByName map[ServerName]ServerIndex
	hostIndexByName   map[string]HostIndex
	rackIndexByName   map[string]RackIndex
	tableIndexByName  map[string]TableIndex

	regionToServer        []ServerIndex
	initialRegionToServer []ServerIndex

	regionsPerServer []([]RegionIndex)
	regionsPerHost   []([]RegionIndex)
	regionsPerRack   []([]RegionIndex)

	primariesPerServer []([]RegionIndex)
	primariesPerHost   []([]RegionIndex)
	primariesPerRack   []([]RegionIndex)

	regionCountPerServerPerTable [][]int
	regionCountPerTable          []int

	regionLocations []([]ServerIndex)
	localityCache   map[regionServerKey]float64

	regionLoadHistory []*LoadHistory

	sortedServers      []ServerIndex
	sortedServersDirty bool
}

// NewClusterModel builds a ClusterModel from an assignment snapshot. The
// assignment must cover every region exactly once; regions not present
// in loadHistory or oracle results simply have empty history/locality
// data, which cost functions treat as a documented fallback rather than
// an error (spec.md §7).
func NewClusterModel(
	assignment map[ServerName][]RegionDescriptor,
	loadHistory map[RegionName][]LoadSample,
	oracle LocalityOracle,
	rackResolver RackResolver,
	historyCapacity int,
) (*ClusterModel, error) {
	m := &ClusterModel{
		regionIndexByName: make(map[RegionName]RegionIndex),
		serverIndexByName: make(map[ServerName]ServerIndex),
		hostIndexByName:   make(map[string]HostIndex),
		rackIndexByName:   make(map[string]RackIndex),
		tableIndexByName:  make(map[string]TableIndex),
		localityCache:     make(map[regionServerKey]float64),
	}

	serverNames := make([]ServerName, 0, len(assignment))
	for s := range assignment {
		serverNames = append(serverNames, s)
	}
	sort.Slice(serverNames, func(i, j int) bool { return serverNames[i].String() < serverNames[j].String() })

	for _, sn := range serverNames {
		host := sn.Host
		hi, ok := m.hostIndexByName[host]
		if !ok {
			hi = HostIndex(len(m.hosts))
			m.hosts = append(m.hosts, host)
			m.hostIndexByName[host] = hi
		}
		rack := ""
		if rackResolver != nil {
			rack = rackResolver.RackOf(sn)
		}
		ri, ok := m.rackIndexByName[rack]
		if !ok {
			ri = RackIndex(len(m.racks))
			m.racks = append(m.racks, rack)
			m.rackIndexByName[rack] = ri
		}
		si := ServerIndex(len(m.servers))
		m.servers = append(m.servers, serverRecord{name: sn, host: hi, rack: ri})
		m.serverIndexByName[sn] = si
	}

	type placedRegion struct {
		desc   RegionDescriptor
		server ServerIndex
	}
	var placed []placedRegion
	for _, sn := range serverNames {
		si := m.serverIndexByName[sn]
		for _, rd := range assignment[sn] {
			placed = append(placed, placedRegion{desc: rd, server: si})
			if _, ok := m.tableIndexByName[rd.Table]; !ok {
				m.tableIndexByName[rd.Table] = TableIndex(len(m.tables))
				m.tables = append(m.tables, rd.Table)
			}
		}
	}
	sort.Slice(placed, func(i, j int) bool { return placed[i].desc.Name < placed[j].desc.Name })

	for _, p := range placed {
		if _, dup := m.regionIndexByName[p.desc.Name]; dup {
			return nil, errors.Newf("region %q assigned to more than one server", p.desc.Name)
		}
		m.regionIndexByName[p.desc.Name] = RegionIndex(len(m.regions))
		m.regions = append(m.regions, regionRecord{
			table:     m.tableIndexByName[p.desc.Table],
			isPrimary: p.desc.IsPrimary || p.desc.PrimaryOf == "" || p.desc.PrimaryOf == p.desc.Name,
		})
	}

	numRegions := len(m.regions)
	numServers := len(m.servers)
	numTables := len(m.tables)

	m.regionToServer = make([]ServerIndex, numRegions)
	for i, p := range placed {
		m.regionToServer[i] = p.server
		m.regions[i].name = p.desc.Name
		if !m.regions[i].isPrimary {
			pIdx, ok := m.regionIndexByName[p.desc.PrimaryOf]
			if !ok {
				// Referenced primary is not part of this snapshot; treat
				// this region as its own primary rather than failing the
				// whole invocation (a missing optional cross-reference is
				// a downgrade, not a fatal error, per spec.md §7).
				m.regions[i].isPrimary = true
				pIdx = RegionIndex(i)
			}
			m.regions[i].primaryIdx = pIdx
		} else {
			m.regions[i].primaryIdx = RegionIndex(i)
		}
	}
	m.initialRegionToServer = append([]ServerIndex(nil), m.regionToServer...)

	m.regionsPerServer = make([][]RegionIndex, numServers)
	m.regionsPerHost = make([][]RegionIndex, len(m.hosts))
	m.regionsPerRack = make([][]RegionIndex, len(m.racks))
	m.primariesPerServer = make([][]RegionIndex, numServers)
	m.primariesPerHost = make([][]RegionIndex, len(m.hosts))
	m.primariesPerRack = make([][]RegionIndex, len(m.racks))
	m.regionCountPerServerPerTable = make([][]int, numServers)
	for s := range m.regionCountPerServerPerTable {
		m.regionCountPerServerPerTable[s] = make([]int, numTables)
	}
	m.regionCountPerTable = make([]int, numTables)

	for r := 0; r < numRegions; r++ {
		s := m.regionToServer[r]
		rec := m.regions[r]
		host := m.servers[s].host
		rack := m.servers[s].rack
		m.regionsPerServer[s] = insertSortedUnique(m.regionsPerServer[s], RegionIndex(r))
		m.regionsPerHost[host] = insertSortedUnique(m.regionsPerHost[host], RegionIndex(r))
		m.regionsPerRack[rack] = insertSortedUnique(m.regionsPerRack[rack], RegionIndex(r))
		m.primariesPerServer[s] = insertSortedDup(m.primariesPerServer[s], rec.primaryIdx)
		m.primariesPerHost[host] = insertSortedDup(m.primariesPerHost[host], rec.primaryIdx)
		m.primariesPerRack[rack] = insertSortedDup(m.primariesPerRack[rack], rec.primaryIdx)
		m.regionCountPerServerPerTable[s][rec.table]++
		m.regionCountPerTable[rec.table]++
	}

	m.regionLocations = make([][]ServerIndex, numRegions)
	if oracle != nil {
		for r := 0; r < numRegions; r++ {
			locs := oracle.LocalityFor(m.regions[r].name)
			sort.Slice(locs, func(i, j int) bool { return locs[i].Fraction > locs[j].Fraction })
			ranked := make([]ServerIndex, 0, len(locs))
			for _, l := range locs {
				si, ok := m.serverIndexByName[l.Server]
				if !ok {
					continue
				}
				ranked = append(ranked, si)
				m.localityCache[regionServerKey{RegionIndex(r), si}] = l.Fraction
			}
			m.regionLocations[r] = ranked
		}
	}

	m.regionLoadHistory = make([]*LoadHistory, numRegions)
	for r := 0; r < numRegions; r++ {
		h := NewLoadHistory(historyCapacity)
		for _, s := range loadHistory[m.regions[r].name] {
			h.Add(s)
		}
		m.regionLoadHistory[r] = h
	}

	m.sortedServersDirty = true
	return m, nil
}

// NumRegions returns the total number of regions in the model.
func (m *ClusterModel) NumRegions() int { return len(m.regions) }

// NumServers returns the total number of servers in the model.
func (m *ClusterModel) NumServers() int { return len(m.servers) }

// NumTables returns the total number of distinct tables in the model.
func (m *ClusterModel) NumTables() int { return len(m.tables) }

// NumHosts returns the total number of distinct hosts in the model.
func (m *ClusterModel) NumHosts() int { return len(m.hosts) }

// NumRacks returns the total number of distinct racks in the model.
func (m *ClusterModel) NumRacks() int { return len(m.racks) }

// RegionName returns the stable name of region r.
func (m *ClusterModel) RegionName(r RegionIndex) RegionName { return m.regions[r].name }

// ServerName returns the identity of server s.
func (m *ClusterModel) ServerName(s ServerIndex) ServerName { return m.servers[s].name }

// TableOfRegion returns the table region r belongs to.
func (m *ClusterModel) TableOfRegion(r RegionIndex) TableIndex { return m.regions[r].table }

// IsPrimary reports whether region r is the primary of its replica group.
func (m *ClusterModel) IsPrimary(r RegionIndex) bool { return m.regions[r].isPrimary }

// PrimaryOfRegion returns the RegionIndex of region r's replica group
// primary (itself, if r is the primary).
func (m *ClusterModel) PrimaryOfRegion(r RegionIndex) RegionIndex { return m.regions[r].primaryIdx }

// HostOfServer returns the host server s belongs to.
func (m *ClusterModel) HostOfServer(s ServerIndex) HostIndex { return m.servers[s].host }

// RackOfServer returns the rack server s belongs to.
func (m *ClusterModel) RackOfServer(s ServerIndex) RackIndex { return m.servers[s].rack }

// ServerOfRegion returns the server currently holding region r.
func (m *ClusterModel) ServerOfRegion(r RegionIndex) ServerIndex { return m.regionToServer[r] }

// InitialServerOfRegion returns the server that held region r when the
// model was constructed. Never mutated after construction.
func (m *ClusterModel) InitialServerOfRegion(r RegionIndex) ServerIndex {
	return m.initialRegionToServer[r]
}

// RegionsOnServer returns the sorted RegionIndex list currently assigned
// to server s. The caller must not mutate the returned slice.
func (m *ClusterModel) RegionsOnServer(s ServerIndex) []RegionIndex { return m.regionsPerServer[s] }

// RegionsOnHost returns the sorted RegionIndex list currently assigned to
// any server on host h.
func (m *ClusterModel) RegionsOnHost(h HostIndex) []RegionIndex { return m.regionsPerHost[h] }

// RegionsOnRack returns the sorted RegionIndex list currently assigned to
// any server on rack k.
func (m *ClusterModel) RegionsOnRack(k RackIndex) []RegionIndex { return m.regionsPerRack[k] }

// PrimariesOnServer returns the sorted array of replica-group-primary
// indices for the regions on server s; a run of equal values reveals
// co-located replicas.
func (m *ClusterModel) PrimariesOnServer(s ServerIndex) []RegionIndex { return m.primariesPerServer[s] }

// PrimariesOnHost is the host-level analogue of PrimariesOnServer.
func (m *ClusterModel) PrimariesOnHost(h HostIndex) []RegionIndex { return m.primariesPerHost[h] }

// PrimariesOnRack is the rack-level analogue of PrimariesOnServer.
func (m *ClusterModel) PrimariesOnRack(k RackIndex) []RegionIndex { return m.primariesPerRack[k] }

// NumRegionsOnServer returns |regionsPerServer[s]| in O(1).
func (m *ClusterModel) NumRegionsOnServer(s ServerIndex) int { return len(m.regionsPerServer[s]) }

// NumRegionsOnServerOfTable returns the count of regions of table t on
// server s in O(1).
func (m *ClusterModel) NumRegionsOnServerOfTable(s ServerIndex, t TableIndex) int {
	return m.regionCountPerServerPerTable[s][t]
}

// NumRegionsOfTable returns the total number of regions belonging to
// table t.
func (m *ClusterModel) NumRegionsOfTable(t TableIndex) int { return m.regionCountPerTable[t] }

// LocalityOfRegion returns the cached fraction of region r's data blocks
// local to server s, or 0 if unknown.
func (m *ClusterModel) LocalityOfRegion(r RegionIndex, s ServerIndex) float64 {
	return m.localityCache[regionServerKey{r, s}]
}

// RegionLocations returns the servers holding local data for region r,
// ranked by descending locality fraction. May be empty.
func (m *ClusterModel) RegionLocations(r RegionIndex) []ServerIndex { return m.regionLocations[r] }

// LoadHistoryOf returns the bounded load sample history for region r.
func (m *ClusterModel) LoadHistoryOf(r RegionIndex) *LoadHistory { return m.regionLoadHistory[r] }

// LeastLoadedServerWithLocalityFor scans regionLocations[r] in rank order
// and returns the first server (other than excluding) whose region count
// is below the cluster mean, or InvalidIndex if none qualifies.
func (m *ClusterModel) LeastLoadedServerWithLocalityFor(r RegionIndex, excluding ServerIndex) ServerIndex {
	if m.NumServers() == 0 {
		return InvalidIndex
	}
	mean := float64(m.NumRegions()) / float64(m.NumServers())
	for _, s := range m.regionLocations[r] {
		if s == excluding {
			continue
		}
		if float64(m.NumRegionsOnServer(s)) < mean {
			return s
		}
	}
	return InvalidIndex
}

// LowestLocalityRegionOn returns the region on server s with the lowest
// LocalityOfRegion, or InvalidIndex if s holds no regions.
func (m *ClusterModel) LowestLocalityRegionOn(s ServerIndex) RegionIndex {
	regions := m.regionsPerServer[s]
	if len(regions) == 0 {
		return InvalidIndex
	}
	best := regions[0]
	bestLocality := m.LocalityOfRegion(best, s)
	for _, r := range regions[1:] {
		loc := m.LocalityOfRegion(r, s)
		if loc < bestLocality {
			bestLocality = loc
			best = r
		}
	}
	return best
}

// MinRegionsIfEvenlyDistributed returns floor(numRegionsOfTable(t) / numServers).
func (m *ClusterModel) MinRegionsIfEvenlyDistributed(t TableIndex) int {
	if m.NumServers() == 0 {
		return 0
	}
	return m.regionCountPerTable[t] / m.NumServers()
}

// MaxRegionsIfEvenlyDistributed returns ceil(numRegionsOfTable(t) / numServers).
func (m *ClusterModel) MaxRegionsIfEvenlyDistributed(t TableIndex) int {
	if m.NumServers() == 0 {
		return 0
	}
	n, s := m.regionCountPerTable[t], m.NumServers()
	return (n + s - 1) / s
}

// NumServersWithMaxRegionsIfEvenlyDistributed returns
// numRegionsOfTable(t) mod numServers, or numServers when that is zero.
func (m *ClusterModel) NumServersWithMaxRegionsIfEvenlyDistributed(t TableIndex) int {
	if m.NumServers() == 0 {
		return 0
	}
	rem := m.regionCountPerTable[t] % m.NumServers()
	if rem == 0 {
		return m.NumServers()
	}
	return rem
}

// SortedServersByRegionCount returns server indices sorted ascending by
// current region count. The result is cached and lazily recomputed after
// the next Apply.
func (m *ClusterModel) SortedServersByRegionCount() []ServerIndex {
	if !m.sortedServersDirty && m.sortedServers != nil {
		return m.sortedServers
	}
	servers := make([]ServerIndex, m.NumServers())
	for i := range servers {
		servers[i] = ServerIndex(i)
	}
	sort.Slice(servers, func(i, j int) bool {
		return m.NumRegionsOnServer(servers[i]) < m.NumRegionsOnServer(servers[j])
	})
	m.sortedServers = servers
	m.sortedServersDirty = false
	return servers
}

// Apply mutates every index to reflect the Action. Preconditions (the
// region must currently be on the server the Action claims as its
// source) are enforced as assertions: the search loop only ever
// generates actions derived from the model's own current state, so a
// violation means a programming error upstream, not a data problem.
func (m *ClusterModel) Apply(a Action) error {
	switch a.Kind {
	case ActionNull:
		return nil
	case ActionAssign:
		return m.assign(a.Region, a.To)
	case ActionMove:
		return m.moveRegion(a.Region, a.From, a.To)
	case ActionSwap:
		if err := m.moveRegion(a.Region, a.From, a.To); err != nil {
			return err
		}
		if err := m.moveRegion(a.Region2, a.From2, a.To2); err != nil {
			// Roll back the first half so a failed swap leaves no
			// partial mutation behind.
			_ = m.moveRegion(a.Region, a.To, a.From)
			return err
		}
		return nil
	default:
		return errors.AssertionFailedf("unknown action kind %v", a.Kind)
	}
}

func (m *ClusterModel) assign(r RegionIndex, to ServerIndex) error {
	rec := m.regions[r]
	host := m.servers[to].host
	rack := m.servers[to].rack
	m.regionToServer[r] = to
	m.regionsPerServer[to] = insertSortedUnique(m.regionsPerServer[to], r)
	m.regionsPerHost[host] = insertSortedUnique(m.regionsPerHost[host], r)
	m.regionsPerRack[rack] = insertSortedUnique(m.regionsPerRack[rack], r)
	m.primariesPerServer[to] = insertSortedDup(m.primariesPerServer[to], rec.primaryIdx)
	m.primariesPerHost[host] = insertSortedDup(m.primariesPerHost[host], rec.primaryIdx)
	m.primariesPerRack[rack] = insertSortedDup(m.primariesPerRack[rack], rec.primaryIdx)
	m.regionCountPerServerPerTable[to][rec.table]++
	m.sortedServersDirty = true
	return nil
}

func (m *ClusterModel) moveRegion(r RegionIndex, from, to ServerIndex) error {
	if m.regionToServer[r] != from {
		return errors.AssertionFailedf(
			"precondition violated: region %d is on server %d, not claimed source %d",
			r, m.regionToServer[r], from)
	}
	rec := m.regions[r]
	fromHost, toHost := m.servers[from].host, m.servers[to].host
	fromRack, toRack := m.servers[from].rack, m.servers[to].rack

	m.regionsPerServer[from] = removeSortedOne(m.regionsPerServer[from], r)
	m.regionsPerServer[to] = insertSortedUnique(m.regionsPerServer[to], r)
	m.regionsPerHost[fromHost] = removeSortedOne(m.regionsPerHost[fromHost], r)
	m.regionsPerHost[toHost] = insertSortedUnique(m.regionsPerHost[toHost], r)
	m.regionsPerRack[fromRack] = removeSortedOne(m.regionsPerRack[fromRack], r)
	m.regionsPerRack[toRack] = insertSortedUnique(m.regionsPerRack[toRack], r)

	m.primariesPerServer[from] = removeSortedOne(m.primariesPerServer[from], rec.primaryIdx)
	m.primariesPerServer[to] = insertSortedDup(m.primariesPerServer[to], rec.primaryIdx)
	m.primariesPerHost[fromHost] = removeSortedOne(m.primariesPerHost[fromHost], rec.primaryIdx)
	m.primariesPerHost[toHost] = insertSortedDup(m.primariesPerHost[toHost], rec.primaryIdx)
	m.primariesPerRack[fromRack] = removeSortedOne(m.primariesPerRack[fromRack], rec.primaryIdx)
	m.primariesPerRack[toRack] = insertSortedDup(m.primariesPerRack[toRack], rec.primaryIdx)

	m.regionCountPerServerPerTable[from][rec.table]--
	m.regionCountPerServerPerTable[to][rec.table]++

	m.regionToServer[r] = to
	m.sortedServersDirty = true
	return nil
}

// CheckInvariants re-derives every index from regionToServer and compares
// against the maintained state, returning an error describing the first
// mismatch found. Intended for use from property-based tests, not from
// the hot balancing path.
func (m *ClusterModel) CheckInvariants() error {
	seen := make([]int, len(m.regions))
	for s := 0; s < len(m.servers); s++ {
		prev := RegionIndex(-1)
		for _, r := range m.regionsPerServer[s] {
			if r <= prev {
				return errors.Newf("regionsPerServer[%d] not strictly sorted at region %d", s, r)
			}
			prev = r
			if m.regionToServer[r] != ServerIndex(s) {
				return errors.Newf("region %d listed on server %d but regionToServer says %d", r, s, m.regionToServer[r])
			}
			seen[r]++
		}
	}
	for r, count := range seen {
		if count != 1 {
			return errors.Newf("region %d appears in %d regionsPerServer lists, want 1", r, count)
		}
	}
	return nil
}
