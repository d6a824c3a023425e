// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package dcif writes the binary domain-connectivity-information file,
// gathering every rank's owned nodes and fringe receptors onto rank 0
// before writing.
package dcif

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/goverset/receptor"
	"github.com/cpmech/goverset/status"
	"github.com/cpmech/goverset/xmpi"
)

// NodeReport describes one owned node as known on its owning rank.
type NodeReport struct {
	GlobalID  uint64
	Status    status.Status
	Component int
}

func iblank(s status.Status) (int8, *aerr.Error) {
	switch s {
	case status.OutNode:
		return 0, nil
	case status.InNode:
		return 1, nil
	case status.FringeNode:
		return -1, nil
	case status.Orphan:
		return -2, nil
	}
	return 0, aerr.New(aerr.Invariant, "non-terminal status %v reached dcif export", s)
}

// Write gathers every rank's owned nodes and fringe receptors onto rank
// 0 and writes the binary file to w. Non-root ranks participate in the
// collective gather but write nothing themselves.
func Write(comm *xmpi.Comm, w io.Writer, owned []NodeReport, receptors map[uint64]receptor.Receptor) *aerr.Error {
	payload, err := encodeLocal(owned, receptors)
	if err != nil {
		return err
	}
	gathered := comm.AllGatherBytes(payload)
	if !comm.Root() {
		return nil
	}
	var allNodes []NodeReport
	var allReceptors []receptor.Receptor
	for _, blob := range gathered {
		nodes, recs, decErr := decodeRank(blob)
		if decErr != nil {
			return aerr.New(aerr.Invariant, "corrupt dcif gather payload: %v", decErr)
		}
		allNodes = append(allNodes, nodes...)
		allReceptors = append(allReceptors, recs...)
	}
	return writeFile(w, allNodes, allReceptors)
}

func writeFile(w io.Writer, nodes []NodeReport, receptors []receptor.Receptor) *aerr.Error {
	ndonors := 0
	for _, r := range receptors {
		ndonors += len(r.Donors)
	}
	if err := writeHeader(w, int64(len(nodes)), int64(len(receptors)), int64(ndonors), countComponents(nodes)); err != nil {
		return aerr.New(aerr.Invariant, "dcif header write failed: %v", err)
	}
	for _, r := range receptors {
		if err := binary.Write(w, binary.LittleEndian, int64(r.GlobalID+1)); err != nil {
			return aerr.New(aerr.Invariant, "dcif fringe id write failed: %v", err)
		}
	}
	for _, r := range receptors {
		if len(r.Donors) > 127 {
			return aerr.New(aerr.Invariant, "receptor %d carries more than 127 donors", r.GlobalID)
		}
		if err := binary.Write(w, binary.LittleEndian, int8(len(r.Donors))); err != nil {
			return aerr.New(aerr.Invariant, "dcif donor count write failed: %v", err)
		}
	}
	for _, r := range receptors {
		for _, d := range r.Donors {
			if err := binary.Write(w, binary.LittleEndian, int64(d.GlobalID+1)); err != nil {
				return aerr.New(aerr.Invariant, "dcif donor id write failed: %v", err)
			}
		}
	}
	for _, r := range receptors {
		for _, d := range r.Donors {
			if err := binary.Write(w, binary.LittleEndian, d.Weight); err != nil {
				return aerr.New(aerr.Invariant, "dcif donor weight write failed: %v", err)
			}
		}
	}
	iblankArr, aerrv := sortedIblank(nodes)
	if aerrv != nil {
		return aerrv
	}
	if err := binary.Write(w, binary.LittleEndian, iblankArr); err != nil {
		return aerr.New(aerr.Invariant, "dcif iblank write failed: %v", err)
	}
	return writeFooter(w, nodes)
}

func writeHeader(w io.Writer, nnodes, nfringes, ndonors int64, ncomponents int32) error {
	if err := binary.Write(w, binary.LittleEndian, nnodes); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, nfringes); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ndonors); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, ncomponents)
}

func countComponents(nodes []NodeReport) int32 {
	seen := map[int]bool{}
	for _, n := range nodes {
		seen[n.Component] = true
	}
	return int32(len(seen))
}

// sortedIblank builds the per-node status array ordered by raw (0-based)
// global id, not the Fortran-shifted ids used for fringe/donor lists.
func sortedIblank(nodes []NodeReport) ([]int8, *aerr.Error) {
	out := make([]int8, len(nodes))
	for _, n := range nodes {
		if n.GlobalID >= uint64(len(nodes)) {
			return nil, aerr.New(aerr.Domain, "global id %d out of range for %d owned nodes", n.GlobalID, len(nodes))
		}
		v, err := iblank(n.Status)
		if err != nil {
			return nil, err
		}
		out[n.GlobalID] = v
	}
	return out, nil
}

// writeFooter emits the per-component [start,end) node-count range and
// fun3d-imesh id, in ascending component-id order: the last
// (largest-id) component is the stationary grid and reports imesh 0,
// every other component reports component_id+1.
func writeFooter(w io.Writer, nodes []NodeReport) *aerr.Error {
	counts := map[int]int{}
	for _, n := range nodes {
		counts[n.Component]++
	}
	ids := make([]int, 0, len(counts))
	for c := range counts {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	if len(ids) == 0 {
		return nil
	}
	last := ids[len(ids)-1]
	var offset int64
	for _, c := range ids {
		start := offset
		offset += int64(counts[c])
		imesh := int32(c + 1)
		if c == last {
			imesh = 0
		}
		if err := binary.Write(w, binary.LittleEndian, start); err != nil {
			return aerr.New(aerr.Invariant, "dcif footer write failed: %v", err)
		}
		if err := binary.Write(w, binary.LittleEndian, offset); err != nil {
			return aerr.New(aerr.Invariant, "dcif footer write failed: %v", err)
		}
		if err := binary.Write(w, binary.LittleEndian, imesh); err != nil {
			return aerr.New(aerr.Invariant, "dcif footer write failed: %v", err)
		}
	}
	return nil
}
