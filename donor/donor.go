// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package donor builds the per-rank indexed donor search structure from
// the fragments received during balancing: one extent tree per
// (fragment, component) pair, a query/exchange protocol that
// routes query points to the ranks whose fragments can answer them, and
// an owner-side merge into one Receptor record per global node id.
package donor

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cpmech/goverset/fragment"
	"github.com/cpmech/goverset/interp"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/spatial"
	"github.com/cpmech/goverset/xmpi"
)

// DefaultChunkThreshold is the per-rank query-point count above which
// RunQueriesChunked subdivides into rounds to bound peak memory.
const DefaultChunkThreshold = 50000

// QueryPoint is one receptor candidate sent to a remote rank for donor
// search: its position, the component it belongs to (so same-component
// cells are never offered as donors), and the wall distance known at its
// origin.
type QueryPoint struct {
	GlobalID     uint64
	Position     [3]float64
	Component    int
	WallDistance float64
}

// CandidateDonor is one surviving donor stencil for a query point.
type CandidateDonor struct {
	Component           int
	OwnerRank           int
	OwnerLocalCellID    int
	CellType            mesh.CellType
	DonorGlobalIDs      []uint64
	Weights             []float64
	InterpolatedWallDistance float64
}

// cellSegment adapts one fragment cell to spatial.Segment so it can live
// in an Octree; ClosestPoint is only used by Octree.NearestPoint, which
// the donor search itself never calls (it uses Containment), so it
// returns p clamped to the cell's bounding box.
type cellSegment struct {
	extent       mesh.Extent
	component    int
	ownerRank    int
	ownerCell    int
	cellType     mesh.CellType
	verts        [][3]float64
	distances    []float64
	distanceKnown bool
	globalIDs    []uint64
}

func (c *cellSegment) Extent() mesh.Extent { return c.extent }

func (c *cellSegment) ClosestPoint(p [3]float64) [3]float64 {
	return c.extent.ClosestPoint(p)
}

func (c *cellSegment) IntersectsExtent(e mesh.Extent) bool { return c.extent.Intersects(e) }

var _ spatial.Segment = (*cellSegment)(nil)

// tree is one (fragment, component) extent tree.
type tree struct {
	component int
	octree    *spatial.Octree
}

// Finder is the per-rank donor search structure.
type Finder struct {
	trees []tree
}

// Build groups every received fragment's cells by component and builds
// one Octree per (fragment, component) pair. wallDistances supplies the
// per-node wall distance aligned to each fragment's Nodes slice (as
// reported by the distance calculator); pass nil for a fragment whose
// distances are not yet known.
func Build(fragments map[int]*fragment.Fragment, wallDistances map[int][]float64) *Finder {
	f := &Finder{}
	ranks := make([]int, 0, len(fragments))
	for r := range fragments {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	for _, rank := range ranks {
		frag := fragments[rank]
		dist := wallDistances[rank]
		byComponent := make(map[int][]spatial.Segment)
		for _, c := range frag.Cells {
			comp := cellComponent(frag, c)
			verts := make([][3]float64, len(c.NodeIDs))
			dists := make([]float64, len(c.NodeIDs))
			gids := make([]uint64, len(c.NodeIDs))
			e := mesh.Extent{}
			for i, nid := range c.NodeIDs {
				verts[i] = frag.Nodes[nid].Position
				gids[i] = frag.Nodes[nid].GlobalID
				if dist != nil {
					dists[i] = dist[nid]
				}
				if i == 0 {
					e = mesh.Extent{Lo: verts[i], Hi: verts[i]}
				} else {
					for d := 0; d < 3; d++ {
						if verts[i][d] < e.Lo[d] {
							e.Lo[d] = verts[i][d]
						}
						if verts[i][d] > e.Hi[d] {
							e.Hi[d] = verts[i][d]
						}
					}
				}
			}
			seg := &cellSegment{
				extent: e, component: comp, ownerRank: c.OwnerRank, ownerCell: c.CellID,
				cellType: c.CellType, verts: verts, distances: dists, distanceKnown: dist != nil,
				globalIDs: gids,
			}
			byComponent[comp] = append(byComponent[comp], seg)
		}
		comps := make([]int, 0, len(byComponent))
		for c := range byComponent {
			comps = append(comps, c)
		}
		sort.Ints(comps)
		for _, c := range comps {
			f.trees = append(f.trees, tree{component: c, octree: spatial.NewOctree(byComponent[c], 0)})
		}
	}
	return f
}

// ComponentExtents returns the bounding box this Finder's trees cover for
// every component they index, unioned across every (fragment, component)
// tree built for that component. An overlap-routing index uses this to
// decide, without querying, whether a remote rank could possibly hold a
// donor cell for some component.
func (f *Finder) ComponentExtents() map[int]mesh.Extent {
	out := map[int]mesh.Extent{}
	for _, t := range f.trees {
		if t.octree.Len() == 0 {
			continue
		}
		e := t.octree.Extent()
		if cur, ok := out[t.component]; ok {
			out[t.component] = cur.Union(e)
		} else {
			out[t.component] = e
		}
	}
	return out
}

// cellComponent derives a cell's component from its first node; the
// other nodes' components are not consulted.
func cellComponent(frag *fragment.Fragment, c fragment.TransferCell) int {
	if len(c.NodeIDs) == 0 {
		return 0
	}
	return frag.Nodes[c.NodeIDs[0]].Component
}

// Query finds every candidate donor cell for point qp across every
// indexed tree whose component differs from qp.Component.
func (f *Finder) Query(qp QueryPoint) []CandidateDonor {
	var out []CandidateDonor
	point := mesh.Extent{Lo: qp.Position, Hi: qp.Position}
	for _, t := range f.trees {
		if t.component == qp.Component {
			continue
		}
		for _, seg := range t.octree.Containment(point) {
			cs := seg.(*cellSegment)
			weights, ok := interp.InverseMap(cs.cellType, cs.verts, qp.Position)
			if !ok {
				continue
			}
			if e := interp.Verify(cs.verts, weights, qp.Position); e != nil {
				continue
			}
			interpDist := math.Inf(1)
			if cs.distanceKnown {
				interpDist = 0
				for i, w := range weights {
					interpDist += w * cs.distances[i]
				}
			}
			out = append(out, CandidateDonor{
				Component:                cs.component,
				OwnerRank:                cs.ownerRank,
				OwnerLocalCellID:         cs.ownerCell,
				CellType:                 cs.cellType,
				DonorGlobalIDs:           append([]uint64(nil), cs.globalIDs...),
				Weights:                  weights,
				InterpolatedWallDistance: interpDist,
			})
		}
	}
	return out
}

// RunQueries performs the full two-round exchange protocol: route
// outgoing query points to the ranks that might answer them, run each
// rank's local queries, and route the resulting candidates back to the
// originating rank, merged by global id (the owner-side merge into one
// Receptor per global id is exactly this accumulation: callers that need
// a distinct Receptor per id just range over the returned map).
func RunQueries(comm *xmpi.Comm, finder *Finder, outgoing map[int][]QueryPoint) map[uint64][]CandidateDonor {
	packedQueries := make(map[int][]byte, len(outgoing))
	for r, qs := range outgoing {
		packedQueries[r] = packQueries(qs)
	}
	receivedQueries := comm.Exchange(packedQueries)

	resultsForSender := make(map[int][]byte, len(receivedQueries))
	for sender, buf := range receivedQueries {
		qs := unpackQueries(buf)
		var replies []reply
		for _, qp := range qs {
			cands := finder.Query(qp)
			replies = append(replies, reply{globalID: qp.GlobalID, candidates: cands})
		}
		resultsForSender[sender] = packReplies(replies)
	}
	receivedReplies := comm.Exchange(resultsForSender)

	merged := make(map[uint64][]CandidateDonor)
	for _, buf := range receivedReplies {
		for _, r := range unpackReplies(buf) {
			merged[r.globalID] = append(merged[r.globalID], r.candidates...)
		}
	}
	return merged
}

// RunQueriesChunked subdivides each target rank's query list into rounds
// of at most DefaultChunkThreshold points (or chunkSize, if positive),
// bounding peak memory on very large overlap regions.
func RunQueriesChunked(comm *xmpi.Comm, finder *Finder, outgoing map[int][]QueryPoint, chunkSize int) map[uint64][]CandidateDonor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkThreshold
	}
	rounds := 1
	for _, qs := range outgoing {
		n := (len(qs) + chunkSize - 1) / chunkSize
		if n > rounds {
			rounds = n
		}
	}
	merged := make(map[uint64][]CandidateDonor)
	for round := 0; round < rounds; round++ {
		batch := make(map[int][]QueryPoint)
		for r, qs := range outgoing {
			lo := round * chunkSize
			if lo >= len(qs) {
				continue
			}
			hi := lo + chunkSize
			if hi > len(qs) {
				hi = len(qs)
			}
			batch[r] = qs[lo:hi]
		}
		for gid, cands := range RunQueries(comm, finder, batch) {
			merged[gid] = append(merged[gid], cands...)
		}
	}
	return merged
}

type reply struct {
	globalID   uint64
	candidates []CandidateDonor
}

func packQueries(qs []QueryPoint) []byte {
	buf := make([]byte, 0, len(qs)*48)
	var tmp [8]byte
	putU64 := func(v uint64) { binary.LittleEndian.PutUint64(tmp[:], v); buf = append(buf, tmp[:]...) }
	putF64 := func(v float64) { putU64(math.Float64bits(v)) }
	putU64(uint64(len(qs)))
	for _, q := range qs {
		putU64(q.GlobalID)
		putF64(q.Position[0])
		putF64(q.Position[1])
		putF64(q.Position[2])
		putU64(uint64(int64(q.Component)))
		putF64(q.WallDistance)
	}
	return buf
}

func unpackQueries(buf []byte) []QueryPoint {
	off := 0
	getU64 := func() uint64 { v := binary.LittleEndian.Uint64(buf[off:]); off += 8; return v }
	getF64 := func() float64 { return math.Float64frombits(getU64()) }
	if len(buf) == 0 {
		return nil
	}
	n := int(getU64())
	out := make([]QueryPoint, n)
	for i := range out {
		out[i].GlobalID = getU64()
		out[i].Position = [3]float64{getF64(), getF64(), getF64()}
		out[i].Component = int(int64(getU64()))
		out[i].WallDistance = getF64()
	}
	return out
}

func packReplies(replies []reply) []byte {
	buf := make([]byte, 0, len(replies)*64)
	var tmp [8]byte
	putU64 := func(v uint64) { binary.LittleEndian.PutUint64(tmp[:], v); buf = append(buf, tmp[:]...) }
	putI64 := func(v int) { putU64(uint64(int64(v))) }
	putF64 := func(v float64) { putU64(math.Float64bits(v)) }
	putU64(uint64(len(replies)))
	for _, r := range replies {
		putU64(r.globalID)
		putU64(uint64(len(r.candidates)))
		for _, c := range r.candidates {
			putI64(c.Component)
			putI64(c.OwnerRank)
			putI64(c.OwnerLocalCellID)
			putI64(int(c.CellType))
			putF64(c.InterpolatedWallDistance)
			putU64(uint64(len(c.DonorGlobalIDs)))
			for i, gid := range c.DonorGlobalIDs {
				putU64(gid)
				putF64(c.Weights[i])
			}
		}
	}
	return buf
}

func unpackReplies(buf []byte) []reply {
	if len(buf) == 0 {
		return nil
	}
	off := 0
	getU64 := func() uint64 { v := binary.LittleEndian.Uint64(buf[off:]); off += 8; return v }
	getI64 := func() int { return int(int64(getU64())) }
	getF64 := func() float64 { return math.Float64frombits(getU64()) }
	n := int(getU64())
	out := make([]reply, n)
	for i := range out {
		out[i].globalID = getU64()
		nc := int(getU64())
		out[i].candidates = make([]CandidateDonor, nc)
		for j := range out[i].candidates {
			c := &out[i].candidates[j]
			c.Component = getI64()
			c.OwnerRank = getI64()
			c.OwnerLocalCellID = getI64()
			c.CellType = mesh.CellType(getI64())
			c.InterpolatedWallDistance = getF64()
			nd := int(getU64())
			c.DonorGlobalIDs = make([]uint64, nd)
			c.Weights = make([]float64, nd)
			for k := 0; k < nd; k++ {
				c.DonorGlobalIDs[k] = getU64()
				c.Weights[k] = getF64()
			}
		}
	}
	return out
}
