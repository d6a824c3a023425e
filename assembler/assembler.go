// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package assembler sequences the whole overset assembly pass:
// partition/mesh-system reporting, fragment balance, donor finder
// construction, wall-distance annotation, donor search, the status
// state machine, and the inverse-receptor exchange, returning the
// status vector, receptor map, and global-to-local index the host
// solver consumes.
package assembler

import (
	"sort"

	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/goverset/balance"
	"github.com/cpmech/goverset/distance"
	"github.com/cpmech/goverset/donor"
	"github.com/cpmech/goverset/fragment"
	"github.com/cpmech/goverset/holemap"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/receptor"
	"github.com/cpmech/goverset/status"
	"github.com/cpmech/goverset/trace"
	"github.com/cpmech/goverset/xmpi"
)

// Options carries the tunables also exposed as `overset.config` keys.
type Options struct {
	ExtraLayers     int
	MaxHoleMapCells int
	BalanceTarget   int
	ChunkSize       int
	Importance      map[int]float64
	// PromoteMaxReceptors implements the `max-receptors` config key: once
	// assembly converges, out-nodes with a valid donor are promoted to
	// receptors rather than staying blanked.
	PromoteMaxReceptors bool
	// MultiOverlapMaskCells implements the `multi-overlap-mask-cells`
	// config key: the cell budget of step 4's per-component occupancy
	// grid. 0 selects status.DefaultMultiOverlapMaskCells.
	MultiOverlapMaskCells int
}

// PartitionInfo is the lightweight per-rank summary the driver collects
// at startup for trace output.
type PartitionInfo struct {
	Rank         int
	NodeCount    int
	CellCount    int
	FaceCount    int
	ComponentIDs []int
}

// CollectPartitionInfo reports this rank's local partition shape.
func CollectPartitionInfo(v mesh.View, comm *xmpi.Comm) PartitionInfo {
	seen := make(map[int]bool)
	for i := 0; i < v.NodeCount(); i++ {
		seen[v.NodeComponent(i)] = true
	}
	ids := make([]int, 0, len(seen))
	for c := range seen {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	return PartitionInfo{
		Rank: comm.Rank(), NodeCount: v.NodeCount(), CellCount: v.CellCount(),
		FaceCount: v.FaceCount(), ComponentIDs: ids,
	}
}

// Result is the driver's return value: the status vector, the surviving
// receptor map, and a global-to-local index over this rank's owned
// nodes.
type Result struct {
	Statuses      []status.Status
	Receptors     map[uint64]receptor.Receptor
	GlobalToLocal map[uint64]int
}

// Driver holds the cross-cutting handles (communicator, trace sink)
// every stage needs, the same struct-of-state shape a finite-element
// solver's run state carries for a simulation.
type Driver struct {
	Comm *xmpi.Comm
	Sink *trace.Sink
}

// NewDriver builds a driver for the given communicator; sink may be nil
// to disable tracing.
func NewDriver(comm *xmpi.Comm, sink *trace.Sink) *Driver {
	if comm == nil {
		comm = xmpi.New()
	}
	return &Driver{Comm: comm, Sink: sink}
}

// Run executes the full assembly sequence for this rank's local
// partition v. solidFaces supplies, for every OTHER component, the
// locally-owned Solid boundary faces of that component's body (used to
// build its hole map); a rank that owns no piece of a given component
// passes an empty slice for it, and the hole map's internal MAX-reduce
// still produces the correct global crossing mask.
func (d *Driver) Run(v mesh.View, solidFaces map[int][]holemap.Face, opts Options) (*Result, *aerr.Error) {
	if opts.ExtraLayers <= 0 {
		opts.ExtraLayers = status.DefaultExtraLayers
	}

	info := CollectPartitionInfo(v, d.Comm)
	d.Sink.Logf("assembler: rank %d nodes=%d cells=%d faces=%d components=%v",
		info.Rank, info.NodeCount, info.CellCount, info.FaceCount, info.ComponentIDs)

	globalToLocal := make(map[uint64]int, v.NodeCount())
	for i := 0; i < v.NodeCount(); i++ {
		globalToLocal[v.NodeGlobalID(i)] = i
	}

	// fragment balance: find overlap-candidate cells against every
	// other locally-known component's extent, agglomerate, globally
	// bisect, and exchange.
	localExtents := componentExtents(v)
	fragments := d.balanceFragments(v, localExtents, opts.BalanceTarget)

	// wall distances: every other component's fragment surface points
	// annotate this rank's own nodes.
	wallDistances := d.annotateWallDistances(v, fragments, opts.ChunkSize, opts.Importance)

	// donor finder over the fragments received during balance. A remote
	// fragment carries no wall-distance array of its own (distance
	// annotation only computes each node's distance to *other*
	// components' surfaces on the rank that owns it), so every fragment
	// here passes nil: donor.Query then reports every candidate through
	// it as having an unknown (+Inf) interpolated distance, which the
	// distance criterion and the mandatory-receptor reconsideration both
	// treat as "never strictly better than what's already known".
	finder := donor.Build(fragments, nil)

	// overlap-detector routing index: every rank gathers every other
	// rank's per-component extents so a query point is only ever sent to
	// ranks whose fragments could actually hold a donor cell for it,
	// instead of every query always being answered by the querying rank's
	// own (incomplete) Finder.
	overlap := donor.BuildOverlapIndex(d.Comm, finder)

	// component extents for step 4's multi-overlap mask now include every
	// component a received fragment belongs to.
	componentExtentsAll := map[int]mesh.Extent{}
	for c, e := range localExtents {
		componentExtentsAll[c] = e
	}
	for _, frag := range fragments {
		for _, n := range frag.Nodes {
			e := mesh.Extent{Lo: n.Position, Hi: n.Position}
			if cur, ok := componentExtentsAll[n.Component]; ok {
				componentExtentsAll[n.Component] = cur.Union(e)
			} else {
				componentExtentsAll[n.Component] = e
			}
		}
	}

	// hole maps, one per other component.
	holeMaps := d.buildHoleMaps(componentExtentsAll, solidFaces, opts.MaxHoleMapCells)

	// donor search and candidate-receptor formation: every local node's
	// query is routed through the overlap index to whichever ranks can
	// answer it, rather than only ever asking the local rank.
	outgoing := routeQueries(localQueryPoints(v, wallDistances), overlap, d.Comm.Rank())
	var candidates map[uint64][]donor.CandidateDonor
	if opts.ChunkSize > 0 {
		candidates = donor.RunQueriesChunked(d.Comm, finder, outgoing, opts.ChunkSize)
	} else {
		candidates = donor.RunQueries(d.Comm, finder, outgoing)
	}

	m := status.NewMachine(v.NodeCount(), d.Comm)
	m.Positions = make([][3]float64, v.NodeCount())
	m.Components = make([]int, v.NodeCount())
	m.BCTags = make([]mesh.BCTag, v.NodeCount())
	m.WallDistance = make([]float64, v.NodeCount())
	for i := 0; i < v.NodeCount(); i++ {
		m.Positions[i] = v.NodePosition(i)
		m.Components[i] = v.NodeComponent(i)
		m.BCTags[i] = v.NodeBCTag(i)
		m.WallDistance[i] = wallDistances[i]
	}
	// attach the neighbor graph to the status machine.
	m.Neighbors = mesh.BuildNodeGraph(v)
	m.ComponentExtents = componentExtentsAll
	m.HoleMaps = holeMaps
	m.StraddlingCellNodes = straddlingCells(v)
	m.ExtraLayers = opts.ExtraLayers
	m.MultiOverlapMaskCells = opts.MultiOverlapMaskCells
	for gid, cands := range candidates {
		if i, ok := globalToLocal[gid]; ok {
			m.Candidates[i] = cands
		}
	}

	buildAnswerer := d.cellHasInNodeAnswerer(v, candidates)
	if err := m.Run(buildAnswerer); err != nil {
		return nil, err
	}

	if opts.PromoteMaxReceptors {
		promoteOutNodesWithDonors(m)
	}

	// §4.10 inverse-receptor exchange: prune to fringe nodes, re-query
	// for the authoritative donor stencil, collate.
	nodes := make([]receptor.Node, v.NodeCount())
	for i := 0; i < v.NodeCount(); i++ {
		nodes[i] = receptor.Node{
			GlobalID: v.NodeGlobalID(i), Position: v.NodePosition(i),
			Component: v.NodeComponent(i), WallDistance: wallDistances[i],
		}
	}
	fringe := receptor.PruneFringe(nodes, m.Statuses)
	recvOutgoing := receptor.BuildQueries(fringe, func(n receptor.Node) []int {
		qp := donor.QueryPoint{GlobalID: n.GlobalID, Position: n.Position, Component: n.Component}
		return overlap.Route(qp, d.Comm.Rank())
	})
	receptors := receptor.Exchange(d.Comm, finder, recvOutgoing)
	receptor.FillOrphans(fringe, receptors)

	return &Result{Statuses: m.Statuses, Receptors: receptors, GlobalToLocal: globalToLocal}, nil
}

func componentExtents(v mesh.View) map[int]mesh.Extent {
	out := map[int]mesh.Extent{}
	for i := 0; i < v.NodeCount(); i++ {
		c := v.NodeComponent(i)
		e := mesh.Extent{Lo: v.NodePosition(i), Hi: v.NodePosition(i)}
		if cur, ok := out[c]; ok {
			out[c] = cur.Union(e)
		} else {
			out[c] = e
		}
	}
	return out
}

func (d *Driver) balanceFragments(v mesh.View, extents map[int]mesh.Extent, target int) map[int]*fragment.Fragment {
	byComponent := map[int][]int{}
	for c := 0; c < v.CellCount(); c++ {
		comp := v.NodeComponent(v.CellNodes(c)[0])
		byComponent[comp] = append(byComponent[comp], c)
	}
	var candidateCells []int
	for comp, cellIDs := range byComponent {
		var others []mesh.Extent
		for c, e := range extents {
			if c != comp {
				others = append(others, e)
			}
		}
		candidateCells = append(candidateCells, balance.OverlapCandidates(v, cellIDs, others)...)
	}
	if len(candidateCells) == 0 {
		return map[int]*fragment.Fragment{}
	}

	points, ids := balance.Agglomerate(v, candidateCells, target)
	assignment, _ := balance.GlobalPartition(d.Comm, points)

	outgoing := map[int]*fragment.Fragment{}
	for i, dest := range assignment {
		if i >= len(ids) {
			continue
		}
		f := fragment.Build(v, ids[i], d.Comm.Rank())
		if cur, ok := outgoing[dest]; ok {
			outgoing[dest] = fragment.Merge(cur, f)
		} else {
			outgoing[dest] = f
		}
	}

	// a node shared by several blobs destined for different ranks (or
	// duplicated within one destination's merged blobs) appears more than
	// once across outgoing; mark only the first-seen copy as owned so the
	// receiving side's surface-point aggregation does not count the same
	// physical point twice.
	masks := balance.AffinityMap(outgoing)
	for dest, f := range outgoing {
		mask := masks[dest]
		for i := range f.Nodes {
			f.Nodes[i].Owned = i < len(mask) && mask[i]
		}
	}

	return balance.ExchangeFragments(d.Comm, outgoing)
}

func (d *Driver) annotateWallDistances(v mesh.View, fragments map[int]*fragment.Fragment, chunkSize int, importance map[int]float64) []float64 {
	positions := make([][3]float64, v.NodeCount())
	components := make([]int, v.NodeCount())
	for i := range positions {
		positions[i] = v.NodePosition(i)
		components[i] = v.NodeComponent(i)
	}
	surfaces := map[int][][3]float64{}
	for _, frag := range fragments {
		for _, n := range frag.Nodes {
			if !n.Owned {
				continue
			}
			surfaces[n.Component] = append(surfaces[n.Component], n.Position)
		}
	}
	maxChunk := chunkSize
	if maxChunk <= 0 {
		maxChunk = distance.PickMaxChunk(v.NodeCount())
	}
	return distance.Compute(d.Comm, distance.NodeSet{Positions: positions, Components: components}, surfaces, maxChunk, importance)
}

// routeQueries groups query points by every rank overlap.Route says could
// answer them, so a query reaches only the ranks whose fragments cover
// its position rather than every rank or only the querying rank.
func routeQueries(points []donor.QueryPoint, overlap *donor.OverlapIndex, localRank int) map[int][]donor.QueryPoint {
	out := map[int][]donor.QueryPoint{}
	for _, qp := range points {
		for _, r := range overlap.Route(qp, localRank) {
			out[r] = append(out[r], qp)
		}
	}
	return out
}

func localQueryPoints(v mesh.View, wallDistances []float64) []donor.QueryPoint {
	out := make([]donor.QueryPoint, v.NodeCount())
	for i := 0; i < v.NodeCount(); i++ {
		out[i] = donor.QueryPoint{
			GlobalID: v.NodeGlobalID(i), Position: v.NodePosition(i),
			Component: v.NodeComponent(i), WallDistance: wallDistances[i],
		}
	}
	return out
}

func (d *Driver) buildHoleMaps(extents map[int]mesh.Extent, solidFaces map[int][]holemap.Face, maxCells int) map[int]*holemap.HoleMap {
	out := make(map[int]*holemap.HoleMap, len(extents))
	for comp, extent := range extents {
		out[comp] = holemap.Build(extent, solidFaces[comp], maxCells, d.Comm, nil, d.Sink)
	}
	return out
}

func straddlingCells(v mesh.View) [][]int {
	var out [][]int
	for c := 0; c < v.CellCount(); c++ {
		nodes := v.CellNodes(c)
		if len(nodes) == 0 {
			continue
		}
		comp := v.NodeComponent(nodes[0])
		mixed := false
		for _, n := range nodes[1:] {
			if v.NodeComponent(n) != comp {
				mixed = true
				break
			}
		}
		if mixed {
			out = append(out, append([]int(nil), nodes...))
		}
	}
	return out
}

// cellHasInNodeAnswerer returns the builder status.Machine.Run calls
// immediately before step 9: it runs the cross-rank exchange using
// whatever InNode status each rank has reached after steps 1-8 actually
// ran (multi-overlap promotions, straddling/surface forcing, the
// distance criterion, and the definite-in sweep), rather than a static
// pre-pass limited to Solid-tagged and straddling-cell nodes computed
// before the machine starts.
func (d *Driver) cellHasInNodeAnswerer(v mesh.View, candidates map[uint64][]donor.CandidateDonor) func(statuses []status.Status) func(int, int) bool {
	requests := map[int][]int{}
	seen := map[[2]int]bool{}
	for _, cands := range candidates {
		for _, c := range cands {
			key := [2]int{c.OwnerRank, c.OwnerLocalCellID}
			if !seen[key] {
				seen[key] = true
				requests[c.OwnerRank] = append(requests[c.OwnerRank], c.OwnerLocalCellID)
			}
		}
	}

	return func(statuses []status.Status) func(int, int) bool {
		packedReq := make(map[int][]byte, len(requests))
		for r, ids := range requests {
			packedReq[r] = packInts(ids)
		}
		received := d.Comm.Exchange(packedReq)

		packedReply := make(map[int][]byte, len(received))
		for sender, buf := range received {
			ids := unpackInts(buf)
			flags := make([]bool, len(ids))
			for i, cid := range ids {
				flags[i] = cellHasInNodeStatus(v, cid, statuses)
			}
			packedReply[sender] = packBools(flags)
		}
		repliesBack := d.Comm.Exchange(packedReply)

		answers := make(map[[2]int]bool, len(seen))
		for r, ids := range requests {
			flags := unpackBools(repliesBack[r])
			for i, cid := range ids {
				if i < len(flags) {
					answers[[2]int{r, cid}] = flags[i]
				}
			}
		}
		return func(ownerRank, ownerLocalCellID int) bool {
			return answers[[2]int{ownerRank, ownerLocalCellID}]
		}
	}
}

func cellHasInNodeStatus(v mesh.View, cellID int, statuses []status.Status) bool {
	if cellID < 0 || cellID >= v.CellCount() {
		return false
	}
	for _, n := range v.CellNodes(cellID) {
		if n < len(statuses) && statuses[n] == status.InNode {
			return true
		}
	}
	return false
}

// promoteOutNodesWithDonors implements the `max-receptors` config key:
// after assembly, any OutNode with at least one valid donor (per step 9's
// DonorValid) is promoted to FringeNode rather than staying blanked.
func promoteOutNodesWithDonors(m *status.Machine) {
	for i, s := range m.Statuses {
		if s != status.OutNode {
			continue
		}
		for _, ok := range m.DonorValid[i] {
			if ok {
				m.Statuses[i] = status.FringeNode
				break
			}
		}
	}
}

func packInts(ids []int) []byte {
	buf := make([]byte, 4+4*len(ids))
	putI32(buf[0:4], int32(len(ids)))
	for i, v := range ids {
		putI32(buf[4+4*i:8+4*i], int32(v))
	}
	return buf
}

func unpackInts(buf []byte) []int {
	if len(buf) < 4 {
		return nil
	}
	n := int(getI32(buf[0:4]))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(getI32(buf[4+4*i : 8+4*i]))
	}
	return out
}

func packBools(flags []bool) []byte {
	buf := make([]byte, len(flags))
	for i, f := range flags {
		if f {
			buf[i] = 1
		}
	}
	return buf
}

func unpackBools(buf []byte) []bool {
	out := make([]bool, len(buf))
	for i, b := range buf {
		out[i] = b != 0
	}
	return out
}

func putI32(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getI32(b []byte) int32 {
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}
