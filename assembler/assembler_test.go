// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assembler

import (
	"testing"

	"github.com/cpmech/goverset/holemap"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/status"
	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/chk"
)

// twoComponentMesh builds a single-rank, two-component test mesh: a
// static solid-surfaced tet (component 0) and an overlapping tet whose
// far vertex sits on an interpolation boundary (component 1). Node 4
// lies geometrically inside component 0's tet, so it is the only
// component-1 node with a valid donor.
func twoComponentMesh() *mesh.ArrayView {
	return &mesh.ArrayView{
		Positions: [][3]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, // component 0
			{0.2, 0.2, 0.2}, {1.2, 0.2, 0.2}, {0.2, 1.2, 0.2}, {0.2, 0.2, 1.2}, // component 1
		},
		GlobalIDs:  []uint64{0, 1, 2, 3, 4, 5, 6, 7},
		Owners:     []int{0, 0, 0, 0, 0, 0, 0, 0},
		Components: []int{0, 0, 0, 0, 1, 1, 1, 1},
		NodeTags: []mesh.BCTag{
			mesh.Solid, mesh.Solid, mesh.Solid, mesh.NotABoundary,
			mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary, mesh.Interpolation,
		},
		Types: []mesh.CellType{mesh.Tet, mesh.Tet},
		Cells: [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}},
	}
}

// Test_runTwoComponentMesh drives the whole §4.11 sequence for a small
// single-rank mesh: the solid component ends entirely InNode, the one
// component-1 node with a geometrically valid donor becomes a
// FringeNode, and the rest of component 1 (mandatory receptors with no
// donor) is flood-filtered to OutNode rather than left Orphan.
func Test_runTwoComponentMesh(tst *testing.T) {
	chk.PrintTitle("assembler: end-to-end run over a two-component mesh")
	v := twoComponentMesh()
	d := NewDriver(xmpi.New(), nil)
	result, err := d.Run(v, map[int][]holemap.Face{}, Options{})
	if err != nil {
		tst.Fatalf("unexpected assembly failure: %v", err)
	}

	want := []status.Status{
		status.InNode, status.InNode, status.InNode, status.InNode,
		status.FringeNode, status.OutNode, status.OutNode, status.OutNode,
	}
	for i, w := range want {
		if result.Statuses[i] != w {
			tst.Fatalf("node %d: expected %v, got %v", i, w, result.Statuses[i])
		}
	}

	r, ok := result.Receptors[4]
	if !ok || len(r.Donors) != 4 {
		tst.Fatalf("expected node 4 to carry a 4-node donor stencil, got %+v", r)
	}
	var sum float64
	for _, dn := range r.Donors {
		sum += dn.Weight
	}
	chk.Scalar(tst, "donor weights sum to one", 1e-9, sum, 1.0)

	if len(result.GlobalToLocal) != 8 {
		tst.Fatalf("expected a global-to-local entry for every node, got %d", len(result.GlobalToLocal))
	}
}

// twoOverlappingCubesMesh builds the S5 scenario: two unit hex cubes,
// component A at [0,1]^3 and component B shifted by (0.5,0,0) to
// [0.5,1.5]x[0,1]x[0,1]. None of A's nodes carry a Solid tag, so A can
// only end InNode through step 8 (markDefiniteIn) — the path the stale
// donor-validity answerer used to miss, since it never saw anything
// promoted after the static table it built before Run started. B's four
// nodes on the shared x=0.5 plane sit strictly inside A's cube along x
// and are tagged Interpolation, so they become mandatory receptors whose
// only candidate donor cell is A's single hex.
func twoOverlappingCubesMesh() *mesh.ArrayView {
	return &mesh.ArrayView{
		Positions: [][3]float64{
			{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}, // component 0 (A)
			{0.5, 0, 0}, {1.5, 0, 0}, {1.5, 1, 0}, {0.5, 1, 0},
			{0.5, 0, 1}, {1.5, 0, 1}, {1.5, 1, 1}, {0.5, 1, 1}, // component 1 (B)
		},
		GlobalIDs: []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		Owners:    []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		Components: []int{
			0, 0, 0, 0, 0, 0, 0, 0,
			1, 1, 1, 1, 1, 1, 1, 1,
		},
		NodeTags: []mesh.BCTag{
			mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary,
			mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary,
			mesh.Interpolation, mesh.NotABoundary, mesh.NotABoundary, mesh.Interpolation,
			mesh.Interpolation, mesh.NotABoundary, mesh.NotABoundary, mesh.Interpolation,
		},
		Types: []mesh.CellType{mesh.Hex, mesh.Hex},
		Cells: [][]int{
			{0, 1, 2, 3, 4, 5, 6, 7},
			{8, 9, 10, 11, 12, 13, 14, 15},
		},
	}
}

// Test_S5 checks that every interior B node covered by A's cell ends up
// Receptor/FringeNode rather than InNode, while A itself (classified
// through the non-Solid markDefiniteIn path) ends fully InNode — never
// both In on the overlapping pair.
func Test_S5(tst *testing.T) {
	chk.PrintTitle("S5: two overlapping unit cubes, interior B nodes receptor against live A status")
	v := twoOverlappingCubesMesh()
	d := NewDriver(xmpi.New(), nil)
	result, err := d.Run(v, map[int][]holemap.Face{}, Options{})
	if err != nil {
		tst.Fatalf("unexpected assembly failure: %v", err)
	}

	for i := 0; i < 8; i++ {
		if result.Statuses[i] != status.InNode {
			tst.Fatalf("component A node %d: expected InNode, got %v", i, result.Statuses[i])
		}
	}

	for _, i := range []int{8, 11, 12, 15} {
		if result.Statuses[i] == status.InNode {
			tst.Fatalf("component B node %d: expected it to yield to A, got InNode on both sides", i)
		}
		if result.Statuses[i] != status.FringeNode {
			tst.Fatalf("component B node %d: expected FringeNode (valid donor in A), got %v", i, result.Statuses[i])
		}
		if _, ok := result.Receptors[uint64(i)]; !ok {
			tst.Fatalf("component B node %d: expected a donor stencil", i)
		}
	}
}

// Test_promoteMaxReceptors checks that enabling the `max-receptors`
// config key leaves an already-fringe node unchanged when no OutNode
// carries a donor candidate.
func Test_promoteMaxReceptors(tst *testing.T) {
	chk.PrintTitle("assembler: max-receptors leaves an existing fringe node unchanged")
	v := twoComponentMesh()
	d := NewDriver(xmpi.New(), nil)
	result, err := d.Run(v, map[int][]holemap.Face{}, Options{PromoteMaxReceptors: true})
	if err != nil {
		tst.Fatalf("unexpected assembly failure: %v", err)
	}
	// node 4 was already a fringe node without promotion; this option
	// only matters for nodes that ended OutNode with a leftover
	// candidate, none of which exist in this fixture, so the result
	// must be unchanged from the non-promoted run.
	if result.Statuses[4] != status.FringeNode {
		tst.Fatalf("expected node 4 to remain FringeNode, got %v", result.Statuses[4])
	}
}
