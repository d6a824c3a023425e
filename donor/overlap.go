// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package donor

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/xmpi"
)

// OverlapIndex is the rank-routing index donor search consults before
// sending a query point anywhere: for every rank it knows the bounding
// box of every component that rank's Finder indexes, so a query is only
// ever routed to ranks whose extent could actually contain a donor cell
// for it, not broadcast to the whole process group.
type OverlapIndex struct {
	byRank map[int]map[int]mesh.Extent
}

// BuildOverlapIndex gathers every rank's ComponentExtents and assembles
// the routing index every rank will consult locally from then on.
func BuildOverlapIndex(comm *xmpi.Comm, finder *Finder) *OverlapIndex {
	local := finder.ComponentExtents()
	gathered := comm.AllGatherBytes(packComponentExtents(local))
	idx := &OverlapIndex{byRank: make(map[int]map[int]mesh.Extent, len(gathered))}
	for rank, buf := range gathered {
		idx.byRank[rank] = unpackComponentExtents(buf)
	}
	return idx
}

// Route returns every rank whose indexed extents could hold a donor cell
// for qp: any rank that indexes some component other than qp.Component
// whose bounding box contains qp.Position. localRank is always included
// so a query that matches no remote rank (e.g. a single-rank run, or a
// point genuinely only coverable by the querying rank's own fragments)
// still gets answered rather than silently dropped.
func (o *OverlapIndex) Route(qp QueryPoint, localRank int) []int {
	seen := map[int]bool{localRank: true}
	for rank, comps := range o.byRank {
		for comp, ext := range comps {
			if comp == qp.Component {
				continue
			}
			if ext.Contains(qp.Position) {
				seen[rank] = true
				break
			}
		}
	}
	ranks := make([]int, 0, len(seen))
	for r := range seen {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	return ranks
}

func packComponentExtents(extents map[int]mesh.Extent) []byte {
	comps := make([]int, 0, len(extents))
	for c := range extents {
		comps = append(comps, c)
	}
	sort.Ints(comps)

	buf := make([]byte, 0, 8+len(comps)*(8+48))
	var tmp [8]byte
	putU64 := func(v uint64) { binary.LittleEndian.PutUint64(tmp[:], v); buf = append(buf, tmp[:]...) }
	putI64 := func(v int) { putU64(uint64(int64(v))) }
	putF64 := func(v float64) { putU64(math.Float64bits(v)) }

	putU64(uint64(len(comps)))
	for _, c := range comps {
		e := extents[c]
		putI64(c)
		for d := 0; d < 3; d++ {
			putF64(e.Lo[d])
		}
		for d := 0; d < 3; d++ {
			putF64(e.Hi[d])
		}
	}
	return buf
}

func unpackComponentExtents(buf []byte) map[int]mesh.Extent {
	out := map[int]mesh.Extent{}
	if len(buf) == 0 {
		return out
	}
	off := 0
	getU64 := func() uint64 { v := binary.LittleEndian.Uint64(buf[off:]); off += 8; return v }
	getI64 := func() int { return int(int64(getU64())) }
	getF64 := func() float64 { return math.Float64frombits(getU64()) }

	n := int(getU64())
	for i := 0; i < n; i++ {
		c := getI64()
		var e mesh.Extent
		for d := 0; d < 3; d++ {
			e.Lo[d] = getF64()
		}
		for d := 0; d < 3; d++ {
			e.Hi[d] = getF64()
		}
		out[c] = e
	}
	return out
}
