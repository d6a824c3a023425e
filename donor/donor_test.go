// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package donor

import (
	"testing"

	"github.com/cpmech/goverset/fragment"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/chk"
)

// singleTetFragment builds a one-tet fragment belonging to componentID.
// dists is not stored in the fragment; wall distances reach the Finder
// through Build's wallDistances argument.
func singleTetFragment(componentID int, dists []float64) *fragment.Fragment {
	return &fragment.Fragment{
		Nodes: []fragment.TransferNode{
			{GlobalID: 100, Position: [3]float64{0, 0, 0}, Component: componentID},
			{GlobalID: 101, Position: [3]float64{1, 0, 0}, Component: componentID},
			{GlobalID: 102, Position: [3]float64{0, 1, 0}, Component: componentID},
			{GlobalID: 103, Position: [3]float64{0, 0, 1}, Component: componentID},
		},
		Cells: []fragment.TransferCell{
			{NodeIDs: []int{0, 1, 2, 3}, CellType: mesh.Tet, CellID: 7, OwnerRank: 2},
		},
	}
}

// Test_queryFindsDonor checks that a query point from a different
// component finds the tet as a donor and reproduces the interpolated
// wall distance exactly for a linear distance field (the tet shape
// functions are affine, so least-squares-exact linear reproduction
// applies here too).
func Test_queryFindsDonor(tst *testing.T) {
	chk.PrintTitle("donor: query finds a donor cell from another component")
	frag := singleTetFragment(1, []float64{0, 1, 1, 1})
	finder := Build(map[int]*fragment.Fragment{0: frag}, map[int][]float64{0: {0, 1, 1, 1}})
	qp := QueryPoint{GlobalID: 55, Position: [3]float64{0.25, 0.25, 0.25}, Component: 0}
	cands := finder.Query(qp)
	if len(cands) != 1 {
		tst.Fatalf("expected exactly one candidate donor, got %d", len(cands))
	}
	c := cands[0]
	if c.Component != 1 || c.OwnerRank != 2 || c.OwnerLocalCellID != 7 {
		tst.Fatalf("unexpected candidate metadata: %+v", c)
	}
	chk.Scalar(tst, "interpolated wall distance", 1e-12, c.InterpolatedWallDistance, 0.75)
}

// Test_querySkipsSameComponent checks that a query point from the same
// component as the only indexed tree never returns a candidate.
func Test_querySkipsSameComponent(tst *testing.T) {
	chk.PrintTitle("donor: query never returns a same-component donor")
	frag := singleTetFragment(0, []float64{0, 0, 0, 0})
	finder := Build(map[int]*fragment.Fragment{0: frag}, nil)
	qp := QueryPoint{GlobalID: 1, Position: [3]float64{0.1, 0.1, 0.1}, Component: 0}
	if cands := finder.Query(qp); len(cands) != 0 {
		tst.Fatalf("expected no candidates for a same-component query, got %d", len(cands))
	}
}

// Test_runQueriesSingleRank exercises the two-round exchange protocol
// with comm size 1, where a rank is both the sender and the owner of
// its own fragment.
func Test_runQueriesSingleRank(tst *testing.T) {
	chk.PrintTitle("donor: exchange protocol round trip, single rank")
	frag := singleTetFragment(1, []float64{0, 1, 1, 1})
	finder := Build(map[int]*fragment.Fragment{0: frag}, map[int][]float64{0: {0, 1, 1, 1}})
	comm := xmpi.New()
	outgoing := map[int][]QueryPoint{
		0: {{GlobalID: 99, Position: [3]float64{0.25, 0.25, 0.25}, Component: 0}},
	}
	merged := RunQueries(comm, finder, outgoing)
	cands, ok := merged[99]
	if !ok || len(cands) != 1 {
		tst.Fatalf("expected one merged candidate for global id 99, got %v", cands)
	}
}

// Test_runQueriesChunked checks that chunking into rounds of 1 still
// finds every candidate for two query points.
func Test_runQueriesChunked(tst *testing.T) {
	chk.PrintTitle("donor: chunked queries still find every candidate")
	frag := singleTetFragment(1, []float64{0, 1, 1, 1})
	finder := Build(map[int]*fragment.Fragment{0: frag}, map[int][]float64{0: {0, 1, 1, 1}})
	comm := xmpi.New()
	outgoing := map[int][]QueryPoint{
		0: {
			{GlobalID: 1, Position: [3]float64{0.25, 0.25, 0.25}, Component: 0},
			{GlobalID: 2, Position: [3]float64{0.1, 0.1, 0.1}, Component: 0},
		},
	}
	merged := RunQueriesChunked(comm, finder, outgoing, 1)
	chk.IntAssert(len(merged), 2)
}
