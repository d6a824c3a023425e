// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package holemap implements the coarse Cartesian blanking of solid
// interiors: one regular Cartesian block per solid body, a MAX-reduced
// crossing mask so every rank agrees on which cells touch a solid
// boundary face, and a flood fill from the exterior that leaves
// unreached cells classified as InHole.
package holemap

import (
	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/spatial"
	"github.com/cpmech/goverset/trace"
	"github.com/cpmech/goverset/xmpi"
)

// CellState is one of the four hole-map cell classifications.
type CellState int

const (
	Untouched CellState = iota
	Crossing
	InHole
	OutOfHole
)

// DefaultMaxCells is the `max-hole-map-cells` config default.
const DefaultMaxCells = 8000

// HoleMap is the coarse blanking image for one solid-surface component.
type HoleMap struct {
	Block  *spatial.CartesianBlock
	States []CellState // [Nx*Ny*Nz]
}

// Face is the minimal boundary-face geometry holemap needs: its triangle
// or quad extent, used only to find which Cartesian cells it crosses.
type Face struct {
	Nodes [][3]float64
}

func (f Face) extent() mesh.Extent {
	e := mesh.Extent{Lo: f.Nodes[0], Hi: f.Nodes[0]}
	for _, p := range f.Nodes[1:] {
		for d := 0; d < 3; d++ {
			if p[d] < e.Lo[d] {
				e.Lo[d] = p[d]
			}
			if p[d] > e.Hi[d] {
				e.Hi[d] = p[d]
			}
		}
	}
	return e
}

// Build constructs the hole map for a solid body given its local
// boundary faces (step 1-2), synchronizes the crossing mask across ranks
// with a MAX reduce (step 3), seeds the exterior from the unmarked block
// boundary minus any symmetry-plane cells (steps 4-5), and flood-fills
// the rest (step 6). onSymmetryPlane reports whether cell (i,j,k) lies on
// a symmetry plane of the same component and should not seed the fill;
// pass nil when there is none.
func Build(bodyExtent mesh.Extent, faces []Face, maxCells int, comm *xmpi.Comm, onSymmetryPlane func(i, j, k int) bool, sink *trace.Sink) *HoleMap {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	block := spatial.NewCartesianBlock(bodyExtent, maxCells)
	n := block.NumCells()
	crossing := make([]int, n)

	for _, f := range faces {
		fe := f.extent()
		i0, i1, j0, j1, k0, k1 := block.Range(fe)
		for i := i0; i <= i1; i++ {
			for j := j0; j <= j1; j++ {
				for k := k0; k <= k1; k++ {
					crossing[block.CellID(i, j, k)] = 1
				}
			}
		}
	}

	// step 3: synchronize across ranks so every rank sees the same
	// crossing set, regardless of which rank owns which boundary faces.
	comm.ElementalMaxInt(crossing)

	states := make([]CellState, n)
	for id, c := range crossing {
		if c > 0 {
			states[id] = Crossing
		}
	}

	// steps 4-5: exterior seeds are unmarked boundary cells, minus any
	// lying on a symmetry plane of the same component.
	var seeds []int
	for i := 0; i < block.Nx; i++ {
		for j := 0; j < block.Ny; j++ {
			for k := 0; k < block.Nz; k++ {
				if !block.IsOnBoundary(i, j, k) {
					continue
				}
				id := block.CellID(i, j, k)
				if states[id] == Crossing {
					continue
				}
				if onSymmetryPlane != nil && onSymmetryPlane(i, j, k) {
					continue
				}
				seeds = append(seeds, id)
			}
		}
	}

	// step 6: iterative stack flood fill from the seeds.
	stack := append([]int(nil), seeds...)
	for _, id := range seeds {
		states[id] = OutOfHole
	}
	crossingCount, outCount := 0, 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		k := id / (block.Nx * block.Ny)
		rem := id % (block.Nx * block.Ny)
		j := rem / block.Nx
		i := rem % block.Nx
		for _, nb := range block.Neighbors6(i, j, k) {
			nid := block.CellID(nb[0], nb[1], nb[2])
			if states[nid] == Untouched {
				states[nid] = OutOfHole
				stack = append(stack, nid)
			}
		}
	}
	for _, s := range states {
		switch s {
		case Crossing:
			crossingCount++
		case OutOfHole:
			outCount++
		}
	}
	inCount := 0
	for id, s := range states {
		if s == Untouched {
			states[id] = InHole
			inCount++
		}
	}

	sink.Logf("holemap: cells=%d crossing=%d out=%d in=%d", n, crossingCount, outCount, inCount)
	if len(faces) == 0 {
		aerr.Warn("holemap: body extent has no local solid boundary faces on rank %d", comm.Rank())
	}
	return &HoleMap{Block: block, States: states}
}

// Classify reports the hole-map state of point p.
func (h *HoleMap) Classify(p [3]float64) CellState {
	if !h.Block.Extent.Contains(p) {
		return OutOfHole
	}
	id := h.Block.ContainingCell(p)
	return h.States[id]
}

// Equal reports whether two hole maps have identical cell states; used
// to check the testable "hole-map symmetry" property across ranks.
func Equal(a, b *HoleMap) bool {
	if a.Block.Nx != b.Block.Nx || a.Block.Ny != b.Block.Ny || a.Block.Nz != b.Block.Nz {
		return false
	}
	for i := range a.States {
		if a.States[i] != b.States[i] {
			return false
		}
	}
	return true
}
