// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spatial

import (
	"math"

	"github.com/cpmech/goverset/mesh"
)

// CartesianBlock is a regular Nx*Ny*Nz grid over an extent, used both
// by the hole map and by the "improve multi-overlap" mandatory-receptor
// mask.
type CartesianBlock struct {
	Extent     mesh.Extent
	Nx, Ny, Nz int
}

// PickDims chooses (Nx,Ny,Nz) to match the extent's aspect ratio while
// keeping the total cell count at or below maxCells.
func PickDims(e mesh.Extent, maxCells int) (nx, ny, nz int) {
	dx := e.Hi[0] - e.Lo[0]
	dy := e.Hi[1] - e.Lo[1]
	dz := e.Hi[2] - e.Lo[2]
	if dx <= 0 {
		dx = 1e-12
	}
	if dy <= 0 {
		dy = 1e-12
	}
	if dz <= 0 {
		dz = 1e-12
	}
	// cells per unit length k solves k^3 * dx*dy*dz = maxCells
	vol := dx * dy * dz
	k := math.Cbrt(float64(maxCells) / vol)
	nx = clampDim(int(math.Round(k * dx)))
	ny = clampDim(int(math.Round(k * dy)))
	nz = clampDim(int(math.Round(k * dz)))
	for nx*ny*nz > maxCells && (nx > 1 || ny > 1 || nz > 1) {
		// shrink the largest dimension until we fit under the cap
		if nx >= ny && nx >= nz && nx > 1 {
			nx--
		} else if ny >= nx && ny >= nz && ny > 1 {
			ny--
		} else if nz > 1 {
			nz--
		} else {
			break
		}
	}
	return
}

func clampDim(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// NewCartesianBlock builds a block over e with dimensions picked by
// PickDims.
func NewCartesianBlock(e mesh.Extent, maxCells int) *CartesianBlock {
	nx, ny, nz := PickDims(e, maxCells)
	return &CartesianBlock{Extent: e, Nx: nx, Ny: ny, Nz: nz}
}

// CellID returns the linear cell id for grid indices (i,j,k).
func (b *CartesianBlock) CellID(i, j, k int) int {
	return (k*b.Ny+j)*b.Nx + i
}

// NumCells returns the total cell count.
func (b *CartesianBlock) NumCells() int { return b.Nx * b.Ny * b.Nz }

// IJK returns the grid indices containing point p, clamped to the block.
func (b *CartesianBlock) IJK(p [3]float64) (i, j, k int) {
	i = clampIdx(int((p[0]-b.Extent.Lo[0])/b.cellSize(0)), b.Nx)
	j = clampIdx(int((p[1]-b.Extent.Lo[1])/b.cellSize(1)), b.Ny)
	k = clampIdx(int((p[2]-b.Extent.Lo[2])/b.cellSize(2)), b.Nz)
	return
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (b *CartesianBlock) cellSize(d int) float64 {
	n := [3]int{b.Nx, b.Ny, b.Nz}[d]
	size := (b.Extent.Hi[d] - b.Extent.Lo[d]) / float64(n)
	if size <= 0 {
		return 1
	}
	return size
}

// ContainingCell returns the linear cell id containing point p.
func (b *CartesianBlock) ContainingCell(p [3]float64) int {
	i, j, k := b.IJK(p)
	return b.CellID(i, j, k)
}

// CellExtent returns the extent of cell (i,j,k).
func (b *CartesianBlock) CellExtent(i, j, k int) mesh.Extent {
	sx, sy, sz := b.cellSize(0), b.cellSize(1), b.cellSize(2)
	lo := [3]float64{
		b.Extent.Lo[0] + float64(i)*sx,
		b.Extent.Lo[1] + float64(j)*sy,
		b.Extent.Lo[2] + float64(k)*sz,
	}
	hi := [3]float64{lo[0] + sx, lo[1] + sy, lo[2] + sz}
	return mesh.Extent{Lo: lo, Hi: hi}
}

// Range returns the inclusive range of cell indices overlapping e.
func (b *CartesianBlock) Range(e mesh.Extent) (i0, i1, j0, j1, k0, k1 int) {
	i0, j0, k0 = b.IJK(e.Lo)
	i1, j1, k1 = b.IJK(e.Hi)
	return
}

// IsOnBoundary reports whether cell (i,j,k) sits on the outer shell of
// the block, used to seed the exterior flood fill in holemap (§4.4).
func (b *CartesianBlock) IsOnBoundary(i, j, k int) bool {
	return i == 0 || j == 0 || k == 0 || i == b.Nx-1 || j == b.Ny-1 || k == b.Nz-1
}

// Neighbors6 returns the up-to-6 face-adjacent cell ids of (i,j,k).
func (b *CartesianBlock) Neighbors6(i, j, k int) [][3]int {
	var out [][3]int
	deltas := [6][3]int{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}}
	for _, d := range deltas {
		ni, nj, nk := i+d[0], j+d[1], k+d[2]
		if ni < 0 || nj < 0 || nk < 0 || ni >= b.Nx || nj >= b.Ny || nk >= b.Nz {
			continue
		}
		out = append(out, [3]int{ni, nj, nk})
	}
	return out
}
