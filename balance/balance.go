// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package balance assigns overlap-candidate cells to destination ranks
// so the donor-search workload stays roughly even across the process
// group: local recursive bisection into blobs, a global recursive
// bisection of the agglomerated blob points, then an all-to-all
// fragment exchange.
package balance

import (
	"sort"

	"github.com/cpmech/goverset/fragment"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/xmpi"
)

// TargetBlobSize is the local-bisection leaf size target (roughly 256
// cells per blob).
const TargetBlobSize = 256

// Tolerance is an imbalance tolerance; no function in this package reads
// it, and the global bisection splits at exact index counts.
const Tolerance = 1e-4

// blob is one agglomerated group of cells produced by local bisection:
// its point is the average of its cells' centroids.
type blob struct {
	point   [3]float64
	cellIDs []int
}

// OverlapCandidates returns the locally owned cells whose extent
// intersects at least one of the other components' extents.
// otherComponentExtents must already exclude the calling cell's own
// component.
func OverlapCandidates(v mesh.View, ownedCellIDs []int, otherComponentExtents []mesh.Extent) []int {
	var out []int
	for _, cid := range ownedCellIDs {
		e := mesh.CellExtent(v, v.CellNodes(cid))
		for _, oe := range otherComponentExtents {
			if e.Intersects(oe) {
				out = append(out, cid)
				break
			}
		}
	}
	return out
}

// Agglomerate runs local recursive bisection on the centroids of
// cellIDs, splitting until every blob holds at most target cells.
func Agglomerate(v mesh.View, cellIDs []int, target int) (points [][3]float64, ids [][]int) {
	if target <= 0 {
		target = TargetBlobSize
	}
	centroids := make([][3]float64, len(cellIDs))
	for i, cid := range cellIDs {
		centroids[i] = centroid(v, cid)
	}
	idx := make([]int, len(cellIDs))
	for i := range idx {
		idx[i] = i
	}
	blobs := bisect(centroids, idx, target)
	points = make([][3]float64, len(blobs))
	ids = make([][]int, len(blobs))
	for b, group := range blobs {
		var sum [3]float64
		cids := make([]int, len(group))
		for i, localIdx := range group {
			cids[i] = cellIDs[localIdx]
			for d := 0; d < 3; d++ {
				sum[d] += centroids[localIdx][d]
			}
		}
		n := float64(len(group))
		points[b] = [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}
		ids[b] = cids
	}
	return
}

func centroid(v mesh.View, cid int) [3]float64 {
	nodes := v.CellNodes(cid)
	var sum [3]float64
	for _, n := range nodes {
		p := v.NodePosition(n)
		for d := 0; d < 3; d++ {
			sum[d] += p[d]
		}
	}
	k := float64(len(nodes))
	return [3]float64{sum[0] / k, sum[1] / k, sum[2] / k}
}

// bisect recursively splits idx (indices into points) on the widest axis
// at the median until every group has at most target entries.
func bisect(points [][3]float64, idx []int, target int) [][]int {
	if len(idx) <= target || len(idx) <= 1 {
		return [][]int{append([]int(nil), idx...)}
	}
	axis := widestAxis(points, idx)
	sorted := append([]int(nil), idx...)
	sort.Slice(sorted, func(i, j int) bool { return points[sorted[i]][axis] < points[sorted[j]][axis] })
	mid := len(sorted) / 2
	left := bisect(points, sorted[:mid], target)
	right := bisect(points, sorted[mid:], target)
	return append(left, right...)
}

func widestAxis(points [][3]float64, idx []int) int {
	lo, hi := points[idx[0]], points[idx[0]]
	for _, i := range idx[1:] {
		for d := 0; d < 3; d++ {
			if points[i][d] < lo[d] {
				lo[d] = points[i][d]
			}
			if points[i][d] > hi[d] {
				hi[d] = points[i][d]
			}
		}
	}
	axis := 0
	width := hi[0] - lo[0]
	for d := 1; d < 3; d++ {
		if w := hi[d] - lo[d]; w > width {
			width = w
			axis = d
		}
	}
	return axis
}

// GlobalPartition runs parallel recursive bisection over every rank's
// agglomerated blob points, producing comm.Size() partitions of roughly
// equal blob count. Every rank computes the same partitioning because
// it first gathers every rank's points via
// xmpi.Comm.AllGatherBytes and bisects the combined set deterministically.
func GlobalPartition(comm *xmpi.Comm, localPoints [][3]float64) (globalAssignment []int, myOffset int) {
	payload := packPoints(localPoints)
	gathered := comm.AllGatherBytes(payload)

	var allPoints [][3]float64
	counts := make([]int, comm.Size())
	for r, buf := range gathered {
		pts := unpackPoints(buf)
		counts[r] = len(pts)
		if r < comm.Rank() {
			myOffset += len(pts)
		}
		allPoints = append(allPoints, pts...)
	}

	idx := make([]int, len(allPoints))
	for i := range idx {
		idx[i] = i
	}
	groups := balancedBisect(allPoints, idx, comm.Size())
	assignment := make([]int, len(allPoints))
	for part, group := range groups {
		for _, i := range group {
			assignment[i] = part
		}
	}
	return assignment, myOffset
}

// balancedBisect splits idx into exactly nparts groups of near-equal size
// by repeated median bisection, matching an exact rank-count partition
// more directly than a fixed-size target would.
func balancedBisect(points [][3]float64, idx []int, nparts int) [][]int {
	if nparts <= 1 || len(idx) <= 1 {
		return [][]int{append([]int(nil), idx...)}
	}
	axis := widestAxis(points, idx)
	sorted := append([]int(nil), idx...)
	sort.Slice(sorted, func(i, j int) bool { return points[sorted[i]][axis] < points[sorted[j]][axis] })
	leftParts := nparts / 2
	rightParts := nparts - leftParts
	splitAt := len(sorted) * leftParts / nparts
	left := balancedBisect(points, sorted[:splitAt], leftParts)
	right := balancedBisect(points, sorted[splitAt:], rightParts)
	return append(left, right...)
}

func packPoints(points [][3]float64) []byte {
	buf := make([]byte, 0, len(points)*24)
	for _, p := range points {
		for d := 0; d < 3; d++ {
			buf = append(buf, f64bytes(p[d])...)
		}
	}
	return buf
}

func unpackPoints(buf []byte) [][3]float64 {
	n := len(buf) / 24
	out := make([][3]float64, n)
	for i := 0; i < n; i++ {
		base := i * 24
		out[i] = [3]float64{
			bytesF64(buf[base : base+8]),
			bytesF64(buf[base+8 : base+16]),
			bytesF64(buf[base+16 : base+24]),
		}
	}
	return out
}

// AffinityMap marks, per destination rank, which fragment-local node
// indices that rank should treat as uniquely owned among all
// destinations (first-seen wins), so duplicated ghost node copies do not
// inflate downstream donor-search queries.
func AffinityMap(fragmentsForRanks map[int]*fragment.Fragment) map[int][]bool {
	seen := make(map[uint64]bool)
	out := make(map[int][]bool, len(fragmentsForRanks))
	ranks := make([]int, 0, len(fragmentsForRanks))
	for r := range fragmentsForRanks {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	for _, r := range ranks {
		frag := fragmentsForRanks[r]
		mask := make([]bool, len(frag.Nodes))
		for i, n := range frag.Nodes {
			if !seen[n.GlobalID] {
				seen[n.GlobalID] = true
				mask[i] = true
			}
		}
		out[r] = mask
	}
	return out
}

// ExchangeFragments performs the all-to-all fragment send that hands
// each rank its assigned overlap-candidate cells.
func ExchangeFragments(comm *xmpi.Comm, outgoing map[int]*fragment.Fragment) map[int]*fragment.Fragment {
	packed := make(map[int][]byte, len(outgoing))
	for r, f := range outgoing {
		packed[r] = f.Pack()
	}
	received := comm.Exchange(packed)
	out := make(map[int]*fragment.Fragment, len(received))
	for r, buf := range received {
		if len(buf) == 0 {
			continue
		}
		out[r] = fragment.Unpack(buf)
	}
	return out
}
