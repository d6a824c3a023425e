// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package receptor

import (
	"testing"

	"github.com/cpmech/goverset/donor"
	"github.com/cpmech/goverset/fragment"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/status"
	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/chk"
)

func singleTetFragment(componentID int, dists []float64) *fragment.Fragment {
	return &fragment.Fragment{
		Nodes: []fragment.TransferNode{
			{GlobalID: 200, Position: [3]float64{0, 0, 0}, Component: componentID},
			{GlobalID: 201, Position: [3]float64{1, 0, 0}, Component: componentID},
			{GlobalID: 202, Position: [3]float64{0, 1, 0}, Component: componentID},
			{GlobalID: 203, Position: [3]float64{0, 0, 1}, Component: componentID},
		},
		Cells: []fragment.TransferCell{
			{NodeIDs: []int{0, 1, 2, 3}, CellType: mesh.Tet, CellID: 9, OwnerRank: 0},
		},
	}
}

// Test_pruneFringe checks that only FringeNode entries survive.
func Test_pruneFringe(tst *testing.T) {
	chk.PrintTitle("receptor: prune keeps only fringe nodes")
	nodes := []Node{{GlobalID: 1}, {GlobalID: 2}, {GlobalID: 3}}
	statuses := []status.Status{status.FringeNode, status.InNode, status.FringeNode}
	pruned := PruneFringe(nodes, statuses)
	if len(pruned) != 2 || pruned[0].GlobalID != 1 || pruned[1].GlobalID != 3 {
		tst.Fatalf("unexpected pruned set: %+v", pruned)
	}
}

// Test_exchangeFindsDonorAndFillsOrphan runs the full inverse-receptor
// exchange for one fringe node with a donor and one with none, and
// checks FillOrphans reports the second with an empty donor list.
func Test_exchangeFindsDonorAndFillsOrphan(tst *testing.T) {
	chk.PrintTitle("receptor: exchange collates a donor stencil and fills an orphan")
	frag := singleTetFragment(1, []float64{0, 1, 1, 1})
	finder := donor.Build(map[int]*fragment.Fragment{0: frag}, map[int][]float64{0: {0, 1, 1, 1}})
	comm := xmpi.New()

	found := Node{GlobalID: 42, Position: [3]float64{0.25, 0.25, 0.25}, Component: 0}
	orphan := Node{GlobalID: 43, Position: [3]float64{99, 99, 99}, Component: 0}
	nodes := []Node{found, orphan}

	outgoing := BuildQueries(nodes, func(Node) []int { return []int{comm.Rank()} })
	receptors := Exchange(comm, finder, outgoing)
	FillOrphans(nodes, receptors)

	r, ok := receptors[42]
	if !ok || len(r.Donors) != 4 {
		tst.Fatalf("expected a 4-node donor stencil for node 42, got %+v", r)
	}
	var sum float64
	for _, d := range r.Donors {
		sum += d.Weight
	}
	chk.Scalar(tst, "weights sum to one", 1e-9, sum, 1.0)

	o, ok := receptors[43]
	if !ok || len(o.Donors) != 0 {
		tst.Fatalf("expected orphan node 43 to have an empty donor list, got %+v", o)
	}
}
