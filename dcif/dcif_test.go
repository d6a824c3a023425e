// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dcif

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cpmech/goverset/receptor"
	"github.com/cpmech/goverset/status"
	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/chk"
)

func Test_writeSingleRank(tst *testing.T) {
	chk.PrintTitle("dcif: single-rank header, fringe, donor and footer layout")
	nodes := []NodeReport{
		{GlobalID: 0, Status: status.InNode, Component: 0},
		{GlobalID: 1, Status: status.InNode, Component: 0},
		{GlobalID: 2, Status: status.FringeNode, Component: 1},
		{GlobalID: 3, Status: status.OutNode, Component: 1},
	}
	receptors := map[uint64]receptor.Receptor{
		2: {GlobalID: 2, Donors: []receptor.DonorPoint{
			{GlobalID: 0, OwnerRank: 0, Weight: 0.4},
			{GlobalID: 1, OwnerRank: 0, Weight: 0.6},
		}},
	}

	var out bytes.Buffer
	comm := xmpi.New()
	if err := Write(comm, &out, nodes, receptors); err != nil {
		tst.Fatalf("unexpected write error: %v", err)
	}

	r := bytes.NewReader(out.Bytes())
	var nnodes, nfringes, ndonors int64
	var ncomponents int32
	mustRead(tst, r, &nnodes)
	mustRead(tst, r, &nfringes)
	mustRead(tst, r, &ndonors)
	mustRead(tst, r, &ncomponents)
	chk.IntAssert(int(nnodes), 4)
	chk.IntAssert(int(nfringes), 1)
	chk.IntAssert(int(ndonors), 2)
	chk.IntAssert(int(ncomponents), 2)

	var fringeID int64
	mustRead(tst, r, &fringeID)
	chk.IntAssert(int(fringeID), 3) // 1-based: global id 2 + 1

	var donorCount int8
	mustRead(tst, r, &donorCount)
	chk.IntAssert(int(donorCount), 2)

	var d0, d1 int64
	mustRead(tst, r, &d0)
	mustRead(tst, r, &d1)
	chk.IntAssert(int(d0), 1) // global id 0 + 1
	chk.IntAssert(int(d1), 2) // global id 1 + 1

	var w0, w1 float64
	mustRead(tst, r, &w0)
	mustRead(tst, r, &w1)
	chk.Scalar(tst, "donor weight 0", 1e-15, w0, 0.4)
	chk.Scalar(tst, "donor weight 1", 1e-15, w1, 0.6)

	iblank := make([]int8, 4)
	mustRead(tst, r, &iblank)
	want := []int8{1, 1, -1, 0}
	for i := range want {
		if iblank[i] != want[i] {
			tst.Fatalf("iblank[%d]: expected %d, got %d", i, want[i], iblank[i])
		}
	}

	var start0, end0 int64
	var imesh0 int32
	mustRead(tst, r, &start0)
	mustRead(tst, r, &end0)
	mustRead(tst, r, &imesh0)
	chk.IntAssert(int(start0), 0)
	chk.IntAssert(int(end0), 2)
	chk.IntAssert(int(imesh0), 1) // component 0, not the last, so 0+1

	var start1, end1 int64
	var imesh1 int32
	mustRead(tst, r, &start1)
	mustRead(tst, r, &end1)
	mustRead(tst, r, &imesh1)
	chk.IntAssert(int(start1), 2)
	chk.IntAssert(int(end1), 4)
	chk.IntAssert(int(imesh1), 0) // component 1 is the last (stationary) grid
}

func mustRead(tst *testing.T, r *bytes.Reader, v interface{}) {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		tst.Fatalf("unexpected read error: %v", err)
	}
}

func Test_nonTerminalStatusIsInvariantError(tst *testing.T) {
	chk.PrintTitle("dcif: a non-terminal status at export time is an invariant error")
	nodes := []NodeReport{{GlobalID: 0, Status: status.ReceptorCandidate, Component: 0}}
	var out bytes.Buffer
	comm := xmpi.New()
	if err := Write(comm, &out, nodes, nil); err == nil {
		tst.Fatal("expected an invariant error for a non-terminal status")
	}
}
