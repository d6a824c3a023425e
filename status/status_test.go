// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package status

import (
	"testing"

	"github.com/cpmech/goverset/donor"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/chk"
)

// Test_S6 checks that an orphan on an interpolation boundary with no
// valid donor ends OutNode, not Orphan, once the spurious-orphan flood
// filter (step 15) runs.
func Test_S6(tst *testing.T) {
	chk.PrintTitle("S6: orphan on an interpolation boundary with no donor becomes Out")
	m := NewMachine(1, xmpi.New())
	m.Positions = [][3]float64{{0, 0, 0}}
	m.Neighbors = [][]int{nil}
	m.Components = []int{0}
	m.BCTags = []mesh.BCTag{mesh.Interpolation}
	m.WallDistance = []float64{0}

	if err := m.Run(nil); err != nil {
		tst.Fatalf("unexpected sanity-check failure: %v", err)
	}
	if m.Statuses[0] != OutNode {
		tst.Fatalf("expected node 0 to end OutNode, got %v", m.Statuses[0])
	}
}

// Test_convertCandidatesToFringe checks step 11: a ReceptorCandidate with
// at least one valid donor becomes a FringeNode.
func Test_convertCandidatesToFringe(tst *testing.T) {
	chk.PrintTitle("status: candidate receptor with a valid donor becomes fringe")
	m := NewMachine(1, xmpi.New())
	m.Statuses[0] = ReceptorCandidate
	m.Candidates[0] = []donor.CandidateDonor{{OwnerRank: 0, OwnerLocalCellID: 1}}
	m.DonorValid[0] = []bool{true}
	m.convertCandidates()
	if m.Statuses[0] != FringeNode {
		tst.Fatalf("expected FringeNode, got %v", m.Statuses[0])
	}
}

// Test_convertMandatoryReceptorsNoDonor checks step 13: a mandatory
// receptor with no valid donor becomes an Orphan.
func Test_convertMandatoryReceptorsNoDonor(tst *testing.T) {
	chk.PrintTitle("status: mandatory receptor with no valid donor becomes orphan")
	m := NewMachine(1, xmpi.New())
	m.Statuses[0] = MandatoryReceptor
	m.convertMandatoryReceptors()
	if m.Statuses[0] != Orphan {
		tst.Fatalf("expected Orphan, got %v", m.Statuses[0])
	}
}

// Test_distanceCriterionPromotesToIn checks step 7: a node whose own
// wall distance beats every donor candidate's interpolated distance, and
// has no Out neighbor, becomes InNode.
func Test_distanceCriterionPromotesToIn(tst *testing.T) {
	chk.PrintTitle("status: distance criterion promotes a closer node to In")
	m := NewMachine(2, xmpi.New())
	m.Neighbors = [][]int{{1}, {0}}
	m.WallDistance = []float64{0, 1}
	m.Candidates[1] = []donor.CandidateDonor{{InterpolatedWallDistance: 5}}
	m.distanceCriterion()
	if m.Statuses[1] != InNode {
		tst.Fatalf("expected node 1 to become InNode, got %v", m.Statuses[1])
	}
}

// Test_markMandatoryReceptorsExpandsLayers checks step 2: an
// interpolation-boundary node's mandatory-receptor marking propagates
// ExtraLayers hops through the node graph.
func Test_markMandatoryReceptorsExpandsLayers(tst *testing.T) {
	chk.PrintTitle("status: mandatory receptors expand through extra layers")
	m := NewMachine(3, xmpi.New())
	m.Neighbors = [][]int{{1}, {0, 2}, {1}}
	m.BCTags = []mesh.BCTag{mesh.Interpolation, mesh.NotABoundary, mesh.NotABoundary}
	m.ExtraLayers = 2
	m.markMandatoryReceptors()
	for i, s := range m.Statuses {
		if s != MandatoryReceptor {
			tst.Fatalf("expected node %d to be MandatoryReceptor after 2 layers, got %v", i, s)
		}
	}
}

// Test_convertMandatoryReceptorsWithDonor checks step 13's other branch:
// a mandatory receptor with a valid donor becomes a FringeNode, not an
// Orphan.
func Test_convertMandatoryReceptorsWithDonor(tst *testing.T) {
	chk.PrintTitle("status: mandatory receptor with a valid donor becomes fringe")
	m := NewMachine(1, xmpi.New())
	m.Statuses[0] = MandatoryReceptor
	m.Candidates[0] = []donor.CandidateDonor{{InterpolatedWallDistance: 1}}
	m.DonorValid[0] = []bool{true}
	m.convertMandatoryReceptors()
	if m.Statuses[0] != FringeNode {
		tst.Fatalf("expected FringeNode, got %v", m.Statuses[0])
	}
}

// Test_sanityCheckRejectsNonTerminalStatus checks step 16 catches any
// node left in a non-terminal status.
func Test_sanityCheckRejectsNonTerminalStatus(tst *testing.T) {
	chk.PrintTitle("status: sanity check rejects a leftover non-terminal status")
	m := NewMachine(1, xmpi.New())
	m.Statuses[0] = ReceptorCandidate
	if err := m.sanityCheck(); err == nil {
		tst.Fatalf("expected a sanity-check error for a leftover ReceptorCandidate")
	}
}
