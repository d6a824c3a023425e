// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fragment

import (
	"testing"

	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/gosl/chk"
)

func twoTetsView() *mesh.ArrayView {
	return &mesh.ArrayView{
		Positions: [][3]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1},
		},
		GlobalIDs:  []uint64{10, 11, 12, 13, 14},
		Owners:     []int{0, 0, 0, 0, 0},
		Components: []int{0, 0, 0, 0, 0},
		NodeTags:   []mesh.BCTag{mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary},
		Types:      []mesh.CellType{mesh.Tet, mesh.Tet},
		Cells: [][]int{
			{0, 1, 2, 3},
			{1, 2, 3, 4},
		},
	}
}

// Test_buildDedup checks that the shared nodes between the two tets are
// not duplicated in the fragment, mirroring VoxelFragment's
// fragment_node_id de-duplication.
func Test_buildDedup(tst *testing.T) {
	chk.PrintTitle("fragment: shared nodes are not duplicated")
	v := twoTetsView()
	f := Build(v, []int{0, 1}, 0)
	if len(f.Nodes) != 5 {
		tst.Fatalf("expected 5 distinct nodes, got %d", len(f.Nodes))
	}
	if len(f.Cells) != 2 {
		tst.Fatalf("expected 2 cells, got %d", len(f.Cells))
	}
	for _, c := range f.Cells {
		for _, id := range c.NodeIDs {
			if id < 0 || id >= len(f.Nodes) {
				tst.Fatalf("cell node id %d out of fragment range", id)
			}
		}
	}
}

// Test_packUnpack round-trips a fragment through its wire encoding.
func Test_packUnpack(tst *testing.T) {
	chk.PrintTitle("fragment: pack/unpack round trip")
	v := twoTetsView()
	f := Build(v, []int{0, 1}, 3)
	buf := f.Pack()
	got := Unpack(buf)
	if len(got.Nodes) != len(f.Nodes) || len(got.Cells) != len(f.Cells) {
		tst.Fatalf("round trip changed counts: nodes %d->%d cells %d->%d",
			len(f.Nodes), len(got.Nodes), len(f.Cells), len(got.Cells))
	}
	for i, n := range f.Nodes {
		if n.GlobalID != got.Nodes[i].GlobalID || n.Position != got.Nodes[i].Position ||
			n.Component != got.Nodes[i].Component || n.Owner != got.Nodes[i].Owner {
			tst.Fatalf("node %d changed across round trip: %+v -> %+v", i, n, got.Nodes[i])
		}
	}
	for i, c := range f.Cells {
		if c.CellType != got.Cells[i].CellType || c.CellID != got.Cells[i].CellID || c.OwnerRank != got.Cells[i].OwnerRank {
			tst.Fatalf("cell %d header changed across round trip: %+v -> %+v", i, c, got.Cells[i])
		}
		chk.IntAssert(len(c.NodeIDs), len(got.Cells[i].NodeIDs))
		for j := range c.NodeIDs {
			if c.NodeIDs[j] != got.Cells[i].NodeIDs[j] {
				tst.Fatalf("cell %d node %d changed across round trip", i, j)
			}
		}
	}
}

// Test_merge checks that Merge shifts the second fragment's node ids by
// the first fragment's node count, so cell-node references stay valid in
// the merged fragment.
func Test_merge(tst *testing.T) {
	chk.PrintTitle("fragment: merge re-bases node ids")
	v := twoTetsView()
	a := Build(v, []int{0}, 0)
	b := Build(v, []int{1}, 1)
	m := Merge(a, b)
	if len(m.Nodes) != len(a.Nodes)+len(b.Nodes) {
		tst.Fatalf("expected merged node count %d, got %d", len(a.Nodes)+len(b.Nodes), len(m.Nodes))
	}
	for _, id := range m.Cells[1].NodeIDs {
		if id < len(a.Nodes) {
			tst.Fatalf("second fragment's cell references a node before the rebase offset")
		}
	}
}
