// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mesh

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// twoTetsView builds the S4 scenario: two disconnected tets (disjoint
// node-edge graphs) on the same rank.
func twoTetsView() *ArrayView {
	return &ArrayView{
		Positions: [][3]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
			{5, 5, 5}, {6, 5, 5}, {5, 6, 5}, {5, 5, 6},
		},
		GlobalIDs:  []uint64{0, 1, 2, 3, 4, 5, 6, 7},
		Owners:     []int{0, 0, 0, 0, 0, 0, 0, 0},
		Components: []int{0, 0, 0, 0, 0, 0, 0, 0},
		NodeTags:   []BCTag{NotABoundary, NotABoundary, NotABoundary, NotABoundary, NotABoundary, NotABoundary, NotABoundary, NotABoundary},
		Types:      []CellType{Tet, Tet},
		Cells:      [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}},
	}
}

func Test_component01(tst *testing.T) {
	chk.PrintTitle("component01: two disjoint tets get distinct ordinals (S4)")
	v := twoTetsView()
	ids := AssignComponentIDs(v)
	if ids[0] == ids[4] {
		tst.Errorf("expected distinct component ids, got %v", ids)
	}
	for _, i := range []int{0, 1, 2, 3} {
		if ids[i] != ids[0] {
			tst.Errorf("node %d: expected component %d, got %d", i, ids[0], ids[i])
		}
	}
	for _, i := range []int{4, 5, 6, 7} {
		if ids[i] != ids[4] {
			tst.Errorf("node %d: expected component %d, got %d", i, ids[4], ids[i])
		}
	}
}

func Test_extent01(tst *testing.T) {
	chk.PrintTitle("extent01: cell extent and closest point")
	v := twoTetsView()
	e := CellExtent(v, v.CellNodes(0))
	chk.Vector(tst, "lo", 1e-15, e.Lo[:], []float64{0, 0, 0})
	chk.Vector(tst, "hi", 1e-15, e.Hi[:], []float64{1, 1, 1})
	cp := e.ClosestPoint([3]float64{-1, 0.5, 2})
	chk.Vector(tst, "closest", 1e-15, cp[:], []float64{0, 0.5, 1})
}
