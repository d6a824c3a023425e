// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fragment holds the serializable mesh sub-region that travels
// between ranks during balancing and donor search: a compact, locally
// re-indexed copy of the nodes and cells overlapping some spatial
// region. Cells are kept in one slice in the order they were selected,
// each carrying its own CellType; they are not grouped by cell type.
package fragment

import (
	"encoding/binary"
	"math"

	"github.com/cpmech/goverset/mesh"
)

// TransferNode is one fragment-local node record: the information a
// remote rank needs to use this node as a donor candidate or to resume
// ownership bookkeeping after the exchange.
type TransferNode struct {
	GlobalID  uint64
	Position  [3]float64
	Component int
	Owner     int
	// Owned marks this copy as the one the sending rank's
	// balance.AffinityMap picked to represent its global id; a node
	// shared across several destination fragments carries Owned only on
	// the first (lowest destination rank), so surface-point and donor
	// aggregation on the receiving side can skip the rest instead of
	// double-counting the same physical point.
	Owned bool
}

// TransferCell is one fragment-local cell record: the node ids are
// fragment-local indices into TransferNode, not the source partition's
// global or local ids.
type TransferCell struct {
	NodeIDs   []int
	CellType  mesh.CellType
	CellID    int
	OwnerRank int
}

// Fragment is the packed, self-contained sub-mesh exchanged between
// ranks. Nodes are de-duplicated and locally re-indexed so the fragment
// carries no dependency on the source rank's own indexing.
type Fragment struct {
	Nodes []TransferNode
	Cells []TransferCell
}

// Build extracts the fragment covering the given cells of v, owned by
// rank. Mirrors VoxelFragment::fillFragment: a node appears once no
// matter how many of the selected cells reference it, and every cell's
// node ids are rewritten to point into the fragment's own Nodes slice.
func Build(v mesh.View, cellIDs []int, rank int) *Fragment {
	const notInFragment = -1
	localID := make([]int, v.NodeCount())
	for i := range localID {
		localID[i] = notInFragment
	}
	var nodes []TransferNode
	for _, cid := range cellIDs {
		for _, n := range v.CellNodes(cid) {
			if localID[n] == notInFragment {
				localID[n] = len(nodes)
				nodes = append(nodes, TransferNode{
					GlobalID:  v.NodeGlobalID(n),
					Position:  v.NodePosition(n),
					Component: v.NodeComponent(n),
					Owner:     v.NodeOwner(n),
				})
			}
		}
	}
	cells := make([]TransferCell, 0, len(cellIDs))
	for _, cid := range cellIDs {
		srcNodes := v.CellNodes(cid)
		ids := make([]int, len(srcNodes))
		for i, n := range srcNodes {
			ids[i] = localID[n]
		}
		cells = append(cells, TransferCell{
			NodeIDs:   ids,
			CellType:  v.CellType(cid),
			CellID:    cid,
			OwnerRank: rank,
		})
	}
	return &Fragment{Nodes: nodes, Cells: cells}
}

// Extent returns the bounding box of every node in the fragment.
func (f *Fragment) Extent() mesh.Extent {
	if len(f.Nodes) == 0 {
		return mesh.Extent{}
	}
	e := mesh.Extent{Lo: f.Nodes[0].Position, Hi: f.Nodes[0].Position}
	for _, n := range f.Nodes[1:] {
		for d := 0; d < 3; d++ {
			if n.Position[d] < e.Lo[d] {
				e.Lo[d] = n.Position[d]
			}
			if n.Position[d] > e.Hi[d] {
				e.Hi[d] = n.Position[d]
			}
		}
	}
	return e
}

// Pack serializes the fragment to a flat little-endian byte buffer, the
// wire form carried across xmpi.Comm.Exchange during balancing and donor
// search. Layout: node count, then each node (global id, xyz, component,
// owner, owned flag); cell count, then each cell (type, cell id, owner rank, node
// count, node ids...).
func (f *Fragment) Pack() []byte {
	size := 8
	for range f.Nodes {
		size += 8 + 8*3 + 8 + 8 + 8
	}
	size += 8
	for _, c := range f.Cells {
		size += 8 + 8 + 8 + 8 + 8*len(c.NodeIDs)
	}
	buf := make([]byte, size)
	off := 0
	putU64 := func(v uint64) { binary.LittleEndian.PutUint64(buf[off:], v); off += 8 }
	putI64 := func(v int) { putU64(uint64(int64(v))) }
	putF64 := func(v float64) { putU64(math.Float64bits(v)) }

	putBool := func(v bool) {
		if v {
			putI64(1)
		} else {
			putI64(0)
		}
	}
	putU64(uint64(len(f.Nodes)))
	for _, n := range f.Nodes {
		putU64(n.GlobalID)
		putF64(n.Position[0])
		putF64(n.Position[1])
		putF64(n.Position[2])
		putI64(n.Component)
		putI64(n.Owner)
		putBool(n.Owned)
	}
	putU64(uint64(len(f.Cells)))
	for _, c := range f.Cells {
		putI64(int(c.CellType))
		putI64(c.CellID)
		putI64(c.OwnerRank)
		putI64(len(c.NodeIDs))
		for _, id := range c.NodeIDs {
			putI64(id)
		}
	}
	return buf
}

// Unpack reverses Pack. It does not validate that buf was produced by
// Pack; callers only ever hand it bytes that came back out of
// xmpi.Comm.Exchange, which preserves length exactly.
func Unpack(buf []byte) *Fragment {
	off := 0
	getU64 := func() uint64 { v := binary.LittleEndian.Uint64(buf[off:]); off += 8; return v }
	getI64 := func() int { return int(int64(getU64())) }
	getF64 := func() float64 { return math.Float64frombits(getU64()) }

	nNodes := int(getU64())
	nodes := make([]TransferNode, nNodes)
	for i := range nodes {
		nodes[i].GlobalID = getU64()
		nodes[i].Position = [3]float64{getF64(), getF64(), getF64()}
		nodes[i].Component = getI64()
		nodes[i].Owner = getI64()
		nodes[i].Owned = getI64() != 0
	}
	nCells := int(getU64())
	cells := make([]TransferCell, nCells)
	for i := range cells {
		cells[i].CellType = mesh.CellType(getI64())
		cells[i].CellID = getI64()
		cells[i].OwnerRank = getI64()
		n := getI64()
		ids := make([]int, n)
		for j := range ids {
			ids[j] = getI64()
		}
		cells[i].NodeIDs = ids
	}
	return &Fragment{Nodes: nodes, Cells: cells}
}

// Merge concatenates the nodes and cells of every given fragment into a
// new fragment, shifting each cell's node ids by the number of nodes
// already taken, with no de-duplication: callers that need de-duplicated nodes (e.g. a donor
// index spanning several received fragments) re-key on GlobalID
// themselves.
func Merge(fragments ...*Fragment) *Fragment {
	out := &Fragment{}
	for _, frag := range fragments {
		if frag == nil {
			continue
		}
		base := len(out.Nodes)
		out.Nodes = append(out.Nodes, frag.Nodes...)
		for _, c := range frag.Cells {
			shifted := TransferCell{
				CellType:  c.CellType,
				CellID:    c.CellID,
				OwnerRank: c.OwnerRank,
				NodeIDs:   make([]int, len(c.NodeIDs)),
			}
			for i, id := range c.NodeIDs {
				shifted.NodeIDs[i] = id + base
			}
			out.Cells = append(out.Cells, shifted)
		}
	}
	return out
}
